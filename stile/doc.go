// Copyright (c) PacketFlow Authors.
// Licensed under the MIT License.

/*
Package stile 提供跨上下文数据包中继（stile，取"跨越围栏的阶梯"之意）。

# 概述

stile 让运行在子执行上下文中的整张过滤器图，对父图表现为一个普通过滤
器：调用方提供一组类型化参数，构造时即确定每个参数是流入子图的输入
（In[T]）还是从子图提取的结果槽（Out[T]）。中继通过 Leash 惰性绑定子
图的数据包工厂，绑定目标不存在或已销毁都是正常状态而非错误。

# 核心接口与类型

  - Stile — 中继本体（New 构造，Leash 绑定，Invoke 调用）
  - Arg   — 角色标记参数（In[T] 共享引用，Out[T] 填充一次写入槽）

# 主要能力

  - 惰性重绑定：Leash 可随时调用，后绑定覆盖先绑定（代数计数器保证）
  - 两种回传策略：有 Out 参数时逐槽定向提取，全 In 时完成后整包转发
  - 非阻塞调用：Invoke 布线后立即返回，结果经订阅回调异步到达
  - 形状钉定：首次调用钉定参数 (角色, 类型) 形状，
    后续不一致返回 SHAPE_MISMATCH，这是 Invoke 唯一的错误
  - 限流：WithThrottle 将超额调用降级为计数空操作
*/
package stile
