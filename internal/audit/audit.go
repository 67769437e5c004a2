// Package audit publishes order submission events to Kafka for the rest
// of the back office. Publishing is best effort: a lost event never fails
// the submission that produced it.
package audit

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"

	"github.com/kargopost/orderwizard/internal/audit/config"
)

// SubmissionEvent - событие об отправленном заказе
type SubmissionEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	TrackingNumber string    `json:"tracking_number"`
	RemoteID       string    `json:"remote_id"`
	Mode           string    `json:"mode"`
	Operator       string    `json:"operator"`
}

type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher connects a sync producer. Returns nil when no brokers are
// configured; a nil Publisher drops events silently.
func NewPublisher(cfg config.Config) (*Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, nil
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Timeout = 5 * time.Second
	producer, err := sarama.NewSyncProducer(cfg.KafkaBrokers, saramaCfg)
	if err != nil {
		return nil, err
	}

	return &Publisher{producer: producer, topic: cfg.KafkaTopic}, nil
}

func (p *Publisher) Publish(event SubmissionEvent) error {
	if p == nil {
		return nil
	}

	message, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(message),
	})
	return err
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
