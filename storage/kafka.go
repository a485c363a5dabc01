package storage

import (
	"encoding/json"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/janelia-flyem/segeval/core"

	"github.com/Shopify/sarama"
)

// KafkaMaxMessageSize is the max message size in bytes for a Kafka message.
const KafkaMaxMessageSize = 980 * 1000

// DefaultKafkaTopic receives evaluation summaries if no topic is configured.
const DefaultKafkaTopic = "segeval-results"

// KafkaConfig describes kafka servers and the topic for evaluation results.
type KafkaConfig struct {
	Servers    []string `toml:"servers"`
	Topic      string   `toml:"topic"`
	BufferSize int      `toml:"buffer_size"` // max number of messages buffered before sending
}

// Publisher sends evaluation results to a Kafka topic.  A nil *Publisher
// drops everything, so callers need not check whether Kafka is configured.
type Publisher struct {
	producer sarama.AsyncProducer
	topic    string
	wg       sync.WaitGroup
}

// NewPublisher connects to the configured Kafka servers.  If no servers are
// given, it returns a nil Publisher and no error.
func NewPublisher(kc KafkaConfig) (*Publisher, error) {
	if len(kc.Servers) == 0 {
		return nil, nil
	}
	config := sarama.NewConfig()
	config.Producer.MaxMessageBytes = KafkaMaxMessageSize
	if kc.BufferSize > 0 {
		config.ChannelBufferSize = kc.BufferSize
	}
	producer, err := sarama.NewAsyncProducer(kc.Servers, config)
	if err != nil {
		return nil, err
	}
	p := PublisherFromProducer(producer, kc.Topic)
	core.Infof("Kafka topic for evaluation results: %s\n", p.topic)
	return p, nil
}

var badTopicChars = regexp.MustCompile(`[^a-zA-Z0-9\._\-]+`)

// PublisherFromProducer returns a Publisher using an existing producer, e.g., a
// mock in tests.
func PublisherFromProducer(producer sarama.AsyncProducer, topic string) *Publisher {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	p := &Publisher{
		producer: producer,
		topic:    badTopicChars.ReplaceAllString(topic, "-"),
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for err := range producer.Errors() {
			core.Errorf("error on kafka send to topic %q: %v\n", err.Msg.Topic, err.Err)
		}
	}()
	return p
}

// Topic returns the topic receiving messages.
func (p *Publisher) Topic() string {
	if p == nil {
		return ""
	}
	return p.topic
}

// Publish queues a JSON encoding of v.  The key is the run id, or the current
// time if there is none.
func (p *Publisher) Publish(runID string, v interface{}) error {
	if p == nil {
		return nil
	}
	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	key := runID
	if key == "" {
		key = strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	return nil
}

// Close flushes queued messages and stops the producer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	err := p.producer.Close()
	p.wg.Wait()
	if err != nil {
		core.Errorf("Kafka producer had error on close: %v\n", err)
		return err
	}
	core.Infof("Kafka producer for topic %q closed.\n", p.topic)
	return nil
}
