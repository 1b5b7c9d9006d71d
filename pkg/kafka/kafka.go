package kafka

import (
	"time"

	"github.com/IBM/sarama"
	"github.com/shopspring/decimal"
)

type Config struct {
	Addrs []string `yaml:"addrs" envconfig:"KAFKA_ADDRS"`
}

const (
	StatsTopic = "store-stats"
)

// Event types published to StatsTopic.
const (
	EventBookCreated      = "book_created"
	EventBookDeleted      = "book_deleted"
	EventRatingRecomputed = "rating_recomputed"
)

type EventStats struct {
	EventID   string              `json:"eventID"`
	Type      string              `json:"type"`
	Username  string              `json:"username"`
	BookID    int64               `json:"bookID"`
	Rating    decimal.NullDecimal `json:"rating"`
	CreatedAt time.Time           `json:"createdAt"`
}

func NewAsyncProducer(cfg Config) (sarama.AsyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForLocal
	defaultCfg.Producer.Return.Successes = false

	return sarama.NewAsyncProducer(cfg.Addrs, defaultCfg)
}
