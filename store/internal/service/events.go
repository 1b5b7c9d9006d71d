package service

import (
	"encoding/json"

	"github.com/IBM/sarama"

	"github.com/bookhub/store-service/pkg/kafka"
)

//go:generate go run github.com/golang/mock/mockgen -source=events.go -destination=mocks/mock.go

// StatsLog is a best-effort event sink for catalog activity.
type StatsLog interface {
	Log(event kafka.EventStats) error
}

type statsLog struct {
	producer sarama.AsyncProducer
	topic    string
}

// NewStatsLog publishes events through the async producer. A nil producer
// disables publishing, so the service runs without a broker.
func NewStatsLog(producer sarama.AsyncProducer, topic string) *statsLog {
	return &statsLog{
		producer: producer,
		topic:    topic,
	}
}

func (l *statsLog) Log(event kafka.EventStats) error {
	if l.producer == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{Topic: l.topic, Value: sarama.StringEncoder(data)}
	l.producer.Input() <- msg
	return nil
}
