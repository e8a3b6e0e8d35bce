package metrics

// Config controls how the assistant's Prometheus metrics are named and labelled.
type Config struct {
	// Namespace prefixes every metric, e.g. "docbook" -> docbook_turns_total.
	Namespace string `envconfig:"METRICS_NAMESPACE" default:"docbook"`

	// ServiceName is attached as a constant "service" label.
	ServiceName string `envconfig:"METRICS_SERVICE_NAME" default:"appointment-assistant"`

	// EnableDefaultCollectors registers Go runtime and process collectors.
	EnableDefaultCollectors bool `envconfig:"METRICS_ENABLE_DEFAULT_COLLECTORS" default:"true"`
}
