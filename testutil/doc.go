// Copyright (c) PacketFlow Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 PacketFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertNoError / AssertError / AssertErrorCode
  - 异步断言: AssertEventuallyTrue / AssertEventuallyEqual，
    支持超时轮询等待条件满足
  - 数据包断言: AssertDecorated / AssertFilled / AssertUnfilled，
    校验装饰存储与延迟槽状态
  - 通道辅助: WaitFor / WaitForChannel，用于异步结果回传测试

# 使用示例

	ctx := testutil.TestContext(t)
	testutil.AssertEventuallyTrue(t, func() bool { return p.Completed() }, time.Second)
	got := testutil.AssertFilled(t, slot)
*/
package testutil
