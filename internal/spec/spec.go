package spec

type StdoutSink struct {
	Format      string `yaml:"format"` // json|yaml
	PrintHeader bool   `yaml:"print_header"`
}

type KafkaSink struct {
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic"`
	RequiredAcks int16    `yaml:"required_acks"` // 0,1,-1
}

type PostgresSink struct {
	DSN            string `yaml:"dsn"`
	Table          string `yaml:"table"`
	CreateTable    bool   `yaml:"create_table"`
	QueryTimeoutMS int    `yaml:"query_timeout_ms"`
}

type sinkConfigs struct {
	Stdout   StdoutSink   `yaml:"stdout"`
	Kafka    KafkaSink    `yaml:"kafka"`
	Postgres PostgresSink `yaml:"postgres"`
}

type File struct {
	SchemaVersion string `yaml:"schema_version"`

	Source struct {
		Driver string `yaml:"driver"` // "static"
	} `yaml:"source"`

	// Sinks receive the loaded snapshot after every successful load, in order.
	Sinks       []string    `yaml:"sinks"`
	SinkConfigs sinkConfigs `yaml:"sink_configs"`
}
