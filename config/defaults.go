// =============================================================================
// 📦 PacketFlow 默认配置
// =============================================================================
// 为所有配置段提供开箱即用的默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回完整的默认配置
func DefaultConfig() *Config {
	return &Config{
		Pump:      DefaultPumpConfig(),
		Dispatch:  DefaultDispatchConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultPumpConfig 返回默认工作池配置
func DefaultPumpConfig() PumpConfig {
	return PumpConfig{
		MaxWorkers:  16,
		QueueSize:   256,
		IdleTimeout: 60 * time.Second,
	}
}

// DefaultDispatchConfig 返回默认分发配置
//
// 默认不限流，由调用方按需开启。
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		RateLimitRPS:   0,
		RateLimitBurst: 0,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "packetflow",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "packetflow",
		SampleRate:   1.0,
	}
}
