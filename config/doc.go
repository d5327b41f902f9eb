// Package config 提供 PacketFlow 的配置管理功能。
//
// 包含工作池、分发限流、日志、指标与遥测各段的配置结构，
// 支持从 YAML 文件和环境变量加载配置，
// 加载优先级为默认值、文件、环境变量逐层覆盖。
package config
