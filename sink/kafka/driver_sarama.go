package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"

	"etldemo/internal/record"
	"etldemo/sink"
)

type Config struct {
	Brokers []string
	Topic   string
	Acks    int16 // 0,1,-1
}

// producerFactory is swapped in tests for a sarama mock.
type producerFactory func(brokers []string, sc *sarama.Config) (sarama.SyncProducer, error)

type driver struct {
	cfg         Config
	p           sarama.SyncProducer
	newProducer producerFactory
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config, got %T", c)
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return fmt.Errorf("kafka-sink: brokers and topic are required")
	}
	d.cfg = cfg

	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Successes = true // SyncProducer requires it

	if d.newProducer == nil {
		d.newProducer = sarama.NewSyncProducer
	}
	p, err := d.newProducer(cfg.Brokers, sc)
	if err != nil {
		return &sink.Error{Sink: "kafka", Op: "connect", Err: err}
	}
	d.p = p
	return nil
}

// Push publishes one message per record, keyed by record id.
func (d *driver) Push(_ context.Context, rs []record.Record) error {
	if d.p == nil {
		return &sink.Error{Sink: "kafka", Op: "push", Err: fmt.Errorf("not configured")}
	}
	if len(rs) == 0 {
		return nil
	}
	msgs := make([]*sarama.ProducerMessage, 0, len(rs))
	for _, r := range rs {
		v, err := json.Marshal(r)
		if err != nil {
			return &sink.Error{Sink: "kafka", Op: "encode", Err: err}
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: d.cfg.Topic,
			Key:   sarama.StringEncoder(strconv.Itoa(r.ID)),
			Value: sarama.ByteEncoder(v),
		})
	}
	if err := d.p.SendMessages(msgs); err != nil {
		return &sink.Error{Sink: "kafka", Op: "push", Err: err}
	}
	return nil
}

func (d *driver) Close() error {
	if d.p == nil {
		return nil
	}
	err := d.p.Close()
	d.p = nil
	return err
}

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
