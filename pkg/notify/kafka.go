/*
Copyright the Velero contributors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package notify

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// KafkaNotifier publishes events to a Kafka topic, keyed by restore id.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
	log      logrus.FieldLogger
}

// NewSaramaConfig returns the producer configuration used for
// notifications.
func NewSaramaConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.ClientID = "gitops-restore"
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	return config
}

// NewKafkaNotifier connects a sync producer to brokers.
func NewKafkaNotifier(brokers []string, topic string, log logrus.FieldLogger) (*KafkaNotifier, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	producer, err := sarama.NewSyncProducer(brokers, NewSaramaConfig())
	if err != nil {
		return nil, errors.Wrap(err, "error creating kafka producer")
	}
	return NewKafkaNotifierFromProducer(producer, topic, log), nil
}

// NewKafkaNotifierFromProducer wraps an existing producer.
func NewKafkaNotifierFromProducer(producer sarama.SyncProducer, topic string, log logrus.FieldLogger) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic, log: log}
}

func (k *KafkaNotifier) Notify(_ context.Context, event *Event) error {
	value, err := event.encode()
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic:     k.topic,
		Value:     sarama.ByteEncoder(value),
		Timestamp: event.Timestamp,
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-id"), Value: []byte(event.ID)},
			{Key: []byte("event-type"), Value: []byte(event.Type)},
		},
	}
	if event.Result != nil {
		msg.Key = sarama.StringEncoder(event.Result.RestoreID)
	}

	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return errors.Wrapf(err, "error publishing notification to topic %s", k.topic)
	}

	k.log.WithFields(logrus.Fields{
		"event":     event.ID,
		"topic":     k.topic,
		"partition": partition,
		"offset":    offset,
	}).Debug("Published kafka notification")
	return nil
}

// Close closes the underlying producer.
func (k *KafkaNotifier) Close() error {
	return k.producer.Close()
}
