package config

// TracingConfig holds OTLP trace export configuration.
//
// Traces are exported to a local collector agent over OTLP HTTP;
// the agent handles authentication, buffering, and forwarding.
// See internal/app/setup.go for the exporter wiring.
type TracingConfig struct {
	// Enabled turns trace export on (default: false)
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// AgentHost is the collector's OTLP endpoint (default: localhost:4318)
	AgentHost string `mapstructure:"agent_host" json:"agent_host"`
	// Environment is the deployment environment tag (default: dev)
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName is the service name reported on spans (default: parley)
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}
