package output

import (
	"encoding/json"
	"fmt"
	"time"

	"tracelens/pkg/models"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// KafkaOutput Kafka输出器
type KafkaOutput struct {
	logger   *logrus.Logger
	topics   map[string]string // 数据类型到topic的映射
	producer sarama.SyncProducer
}

// NewKafkaOutput 创建Kafka输出器
func NewKafkaOutput(brokers []string, topics map[string]string, logger *logrus.Logger) (*KafkaOutput, error) {
	logger.Infof("初始化Kafka输出器，brokers: %v", brokers)
	logger.Infof("Kafka topics配置: %v", topics)

	// 配置Kafka生产者
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 5 * time.Second
	config.Version = sarama.V2_8_0_0

	// 创建同步生产者
	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("创建Kafka生产者失败: %w", err)
	}

	logger.Info("Kafka生产者已创建")

	return &KafkaOutput{
		logger:   logger,
		topics:   topics,
		producer: producer,
	}, nil
}

// sendToKafka 发送数据到Kafka
func (k *KafkaOutput) sendToKafka(topic string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化数据失败: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.StringEncoder(jsonData),
	}

	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("发送消息到Kafka失败: %w", err)
	}

	k.logger.Infof("成功发送数据到Kafka topic '%s' (partition: %d, offset: %d)",
		topic, partition, offset)

	return nil
}

// WriteRawTrace 写入原始 trace 记录
func (k *KafkaOutput) WriteRawTrace(response *models.TraceResponse) error {
	if response == nil {
		return nil
	}

	topic, exists := k.topics["trace_records"]
	if !exists {
		topic = "trace_records"
	}

	return k.sendToKafka(topic, response)
}

// WriteRenderedTrace 写入渲染结果
func (k *KafkaOutput) WriteRenderedTrace(rendered *models.RenderedTrace) error {
	if rendered == nil {
		return nil
	}

	topic, exists := k.topics["trace_rendered"]
	if !exists {
		topic = "trace_rendered"
	}

	return k.sendToKafka(topic, rendered)
}

// WriteSourceCode 源码不进Kafka，保持接口完整
func (k *KafkaOutput) WriteSourceCode(contractName, sourceCode string) error {
	return nil
}

// Close 关闭Kafka连接
func (k *KafkaOutput) Close() error {
	if k.producer != nil {
		return k.producer.Close()
	}
	return nil
}
