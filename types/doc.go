// Copyright (c) PacketFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 PacketFlow 框架的全局共享类型定义。

# 概述

types 是框架最底层的公共包，不依赖任何内部包，为 scope、packet、stile、
quick 等上层模块提供统一的类型契约。所有跨包共享的类型标识、错误码和
context 传播助手均定义于此，以避免循环依赖。

# 核心接口与类型

  - Key               — 装饰与单例的类型标识（KeyOf[T] 编译期取得）
  - Error / ErrorCode — 结构化错误体系，含 Retryable 标记与底层 Cause

# 主要能力

  - Context 传播：WithTraceID / WithRunID 及对应提取函数
  - 错误工具链：IsRetryable / GetErrorCode
  - 错误码覆盖：作用域（SCOPE_CLOSED、DUPLICATE_MEMBER）、数据包
    （DUPLICATE_DECORATION、PACKET_COMPLETED、FACTORY_CLOSED）、中继
    （SHAPE_MISMATCH）与基础设施（POOL_FULL、POOL_CLOSED、INVALID_CONFIG）
*/
package types
