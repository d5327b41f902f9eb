// 版权所有 2024 PacketFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的全链路指标采集能力，覆盖
Packet、Filter 与 Relay 三大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组，便于 Grafana 等工具进行可视化与告警。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram 等
    Prometheus 向量指标，按业务域分组管理。

# 主要能力

  - Packet 指标：创建与完成计数（按 scope 分组）、装饰附加计数
    （按 type 分组）、forward-all 拷贝的装饰总量。
  - Filter 指标：激活总数（按 filter/mode/status 分组，mode 区分
    inline 与 deferred）、激活耗时 Histogram。
  - Relay 指标：调用总数（按 mode/status 分组，status 覆盖
    ok/unwired/throttled/mismatch）、输出槽填充计数（按 type 分组）。
*/
package metrics
