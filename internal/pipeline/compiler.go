package pipeline

import (
	"fmt"
	"time"

	"etldemo/internal/config"
	"etldemo/internal/telemetry"
	"etldemo/sink"
	"etldemo/sink/kafka"
	"etldemo/sink/postgres"
	"etldemo/sink/stdout"
	"etldemo/source"
)

// Compile builds a State from an optional pipeline YAML. An empty path
// yields the static source with no sinks.
func Compile(path string, m *telemetry.Metrics) (*State, error) {
	s := NewState()
	s.SetMetrics(m)
	if path == "" {
		return s, nil
	}
	if err := LoadYAML(path, s); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func LoadYAML(path string, s *State) error {
	cfg, err := config.LoadPipelineSpec(path)
	if err != nil {
		return err
	}

	src, err := source.NewAdapter(cfg.Source.Driver)
	if err != nil {
		return err
	}
	s.SetSource(src)

	for _, name := range cfg.Sinks {
		sDrv, err := sink.NewAdapter(name)
		if err != nil {
			return err
		}

		sc := cfg.SinkConfigs
		switch name {
		case "stdout":
			err = sDrv.Configure(stdout.Config{
				Format:      sc.Stdout.Format,
				PrintHeader: sc.Stdout.PrintHeader,
			})
		case "kafka":
			err = sDrv.Configure(kafka.Config{
				Brokers: sc.Kafka.Brokers,
				Topic:   sc.Kafka.Topic,
				Acks:    sc.Kafka.RequiredAcks,
			})
		case "postgres":
			err = sDrv.Configure(postgres.Config{
				DSN:          sc.Postgres.DSN,
				Table:        sc.Postgres.Table,
				CreateTable:  sc.Postgres.CreateTable,
				QueryTimeout: time.Duration(sc.Postgres.QueryTimeoutMS) * time.Millisecond,
			})
		default:
			err = fmt.Errorf("no config block for sink %q", name)
		}
		if err != nil {
			return fmt.Errorf("sink %s: %w", name, err)
		}
		s.AddSink(name, sDrv)
	}
	return nil
}
