package config

type TelemetryConfig struct {
	MetricsEnabled bool    `yaml:"metrics_enabled"`
	OTLPEndpoint   string  `yaml:"otlp_endpoint"`
	OTLPInsecure   bool    `yaml:"otlp_insecure"`
	SampleRatio    float64 `yaml:"sample_ratio"`
}

// TracingEnabled reports whether spans should be exported.
func (t *TelemetryConfig) TracingEnabled() bool {
	return t.OTLPEndpoint != ""
}

func loadTelemetryConfig() *TelemetryConfig {
	return &TelemetryConfig{
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:   getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		SampleRatio:    getEnvAsFloat("OTEL_SAMPLE_RATIO", 1.0),
	}
}
