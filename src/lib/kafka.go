package lib

import (
	"calbook/src/types"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

var kafkaProducer *kafka.Producer

func GetKafkaProducer() (*kafka.Producer, error) {
	if kafkaProducer != nil {
		return kafkaProducer, nil
	}
	broker := os.Getenv("KAFKA_BROKER")
	if broker == "" {
		return nil, fmt.Errorf("no kafka broker configured")
	}
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": broker,
		"client.id":         "calbook-api",
		"acks":              "all",
	})
	if err != nil {
		log.Printf("Error on producer: %s\n", err.Error())
		return nil, err
	}
	kafkaProducer = p
	return p, nil
}

// KafkaProduceMessage publishes one JSON message. Used as a best-effort
// side channel for booking lifecycle events; callers log failures and move
// on, delivery is never awaited by the booking path itself.
func KafkaProduceMessage(topic string, body types.JSONB) error {
	p, err := GetKafkaProducer()
	if err != nil {
		return err
	}
	value, err := json.Marshal(&body)
	if err != nil {
		return err
	}
	deliveryChan := make(chan kafka.Event, 1)
	err = p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
	}, deliveryChan)
	if err != nil {
		return err
	}
	ev := <-deliveryChan
	m, ok := ev.(*kafka.Message)
	if !ok {
		return fmt.Errorf("unexpected delivery event: %v", ev)
	}
	if m.TopicPartition.Error != nil {
		return m.TopicPartition.Error
	}
	return nil
}
