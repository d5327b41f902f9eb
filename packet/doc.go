// Copyright (c) PacketFlow Authors.
// Licensed under the MIT License.

/*
Package packet 提供 PacketFlow 的数据包、装饰存储与子图执行引擎。

# 概述

packet 实现一次图调用的数据载体：Packet 按类型标识持有装饰
（decoration），Factory 负责铸造数据包并在其上驱动已注册的过滤器图。
数据包以 staged 状态诞生，Dispatch 将其转为 armed，保证调度前附加的
全部装饰在首个过滤器激活前原子可见。

# 核心接口与类型

  - Packet      — 一次性类型值载体（装饰、订阅、完成、转发）
  - Deferred[T] — 一次写入结果槽（Fill 深拷贝一层指针目标）
  - Factory     — 按作用域铸造数据包并调度过滤器图
  - Filter      — 图节点（Filter1/2/3 泛型构造，Deferred 切换到工作池）

# 主要能力

  - 装饰发布：Decorate[T] / Get[T] / Has[T]，重复与完成后发布返回结构化错误
  - 一次性订阅：OnInputReady[T]（按类型）、OnComplete（整包完成）
  - 结果回传：ForwardAllTo 快照式转发，跳过目标已持有的类型
  - 过滤器图：多输入激活、每包至多一次、延迟过滤器经 pump 异步执行
  - 可观测性：zap 日志、Prometheus 指标、每次 Dispatch 一个 OTel span
*/
package packet
