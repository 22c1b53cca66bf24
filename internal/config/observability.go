package config

// TracingConfig configures OTLP trace export to a local collector agent.
type TracingConfig struct {
	// Endpoint is the collector's OTLP HTTP endpoint (default: localhost:4318)
	Endpoint string `mapstructure:"endpoint"`
	// Environment is the deployment environment tag (default: dev)
	Environment string `mapstructure:"environment"`
	// ServiceName is the service name attached to exported spans (default: noor)
	ServiceName string `mapstructure:"service_name"`
}
