// Copyright (c) PacketFlow Authors.
// Licensed under the MIT License.

/*
Package scope 提供 PacketFlow 的层级执行上下文树。

# 概述

scope 是框架的宿主层：每个 Scope 是上下文树中的一个节点，可按类型挂载
单例成员（最典型的是 packet.Factory），并支持在成员可解析时发出一次性
通知。中继（stile 包）通过 Ref 弱引用观察目标 Scope，从不拥有它。

# 核心接口与类型

  - Scope — 上下文树节点（New 创建根，Child 嵌套）
  - Ref   — 非持有型句柄（Deref / Alive，零值永久失效）

# 主要能力

  - 类型单例：Install[T] / Find[T] / FindRecursive[T]（深度优先遍历子树）
  - 一次性订阅：NotifyWhenInstalled[T]（已存在则立即触发，否则等待安装）
  - 生命周期：Close 递归关闭整棵子树，丢弃成员与未触发的订阅
*/
package scope
