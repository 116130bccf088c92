package kafka

import (
	"fmt"

	"log/slog"

	"github.com/IBM/sarama"
)

func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_0_0_0
	config.ClientID = "chat-backend"
	config.Producer.MaxMessageBytes = 1000000

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return producer, nil
}

// EventJournal publishes every dispatched chat event to a Kafka topic so
// offline consumers (push, analytics) can replay them. Journal failures are
// logged and never surfaced to the fan-out path.
type EventJournal struct {
	producer sarama.SyncProducer
	topic    string
}

func NewEventJournal(producer sarama.SyncProducer, topic string) *EventJournal {
	return &EventJournal{
		producer: producer,
		topic:    topic,
	}
}

// Record publishes one serialized event keyed by chat so per-chat order is
// preserved within a partition.
func (j *EventJournal) Record(chatID uint, eventType string, payload []byte) {
	msg := &sarama.ProducerMessage{
		Topic: j.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("chat-%d", chatID)),
		Value: sarama.ByteEncoder(payload),
	}

	if _, _, err := j.producer.SendMessage(msg); err != nil {
		slog.Error("Failed to journal chat event", "chatID", chatID, "type", eventType, "error", err)
	}
}

func (j *EventJournal) Close() error {
	return j.producer.Close()
}
