package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"tracelens/internal/config"
	"tracelens/pkg/models"

	"github.com/sirupsen/logrus"
)

// Output 渲染产物输出接口
type Output interface {
	WriteRawTrace(response *models.TraceResponse) error
	WriteRenderedTrace(rendered *models.RenderedTrace) error
	WriteSourceCode(contractName, sourceCode string) error
	Close() error
}

// 源码文件名只保留安全字符
var unsafeNameChars = regexp.MustCompile(`[^\w\-_\.]`)

// FileOutput 文件输出
type FileOutput struct {
	outputDir string
	sourceDir string
	logger    *logrus.Logger
}

// NewOutput 创建输出器
func NewOutput(outputDir, format string, logger *logrus.Logger) (Output, error) {
	return NewOutputWithConfig(outputDir, format, "", nil, logger)
}

// NewOutputWithConfig 创建输出器（带配置）
func NewOutputWithConfig(outputDir, format, sourceDir string, kafkaConfig *config.KafkaConfig, logger *logrus.Logger) (Output, error) {
	// Kafka输出
	if format == "kafka" {
		brokers := []string{"localhost:9092"}
		if kafkaBrokers := os.Getenv("KAFKA_BROKERS"); kafkaBrokers != "" {
			brokers = strings.Split(kafkaBrokers, ",")
		}

		topics := map[string]string{
			"trace_rendered": "trace_rendered",
			"trace_records":  "trace_records",
		}

		if kafkaConfig != nil {
			if len(kafkaConfig.Brokers) > 0 {
				brokers = kafkaConfig.Brokers
			}
			if len(kafkaConfig.Topics) > 0 {
				topics = kafkaConfig.Topics
			}
		}

		return NewKafkaOutput(brokers, topics, logger)
	}

	// 确保输出目录存在
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	if sourceDir == "" {
		sourceDir = filepath.Join(outputDir, "source_code")
	}

	return &FileOutput{
		outputDir: outputDir,
		sourceDir: sourceDir,
		logger:    logger,
	}, nil
}

// WriteRawTrace 把原始 trace 响应写入 trace.json
func (f *FileOutput) WriteRawTrace(response *models.TraceResponse) error {
	if response == nil {
		return nil
	}

	data, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化 trace 数据失败: %w", err)
	}

	path := filepath.Join(f.outputDir, "trace.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("保存 trace 文件失败: %w", err)
	}

	f.logger.Infof("原始 trace 已保存到 %s", path)
	return nil
}

// WriteRenderedTrace 把渲染结果写入带时间戳的文本文件
func (f *FileOutput) WriteRenderedTrace(rendered *models.RenderedTrace) error {
	if rendered == nil {
		return nil
	}

	timestamp := time.Now().Format("20060102_150405")
	path := filepath.Join(f.outputDir, fmt.Sprintf("readableTrace%s.txt", timestamp))

	content := strings.Join(rendered.Lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("保存渲染结果失败: %w", err)
	}

	f.logger.Infof("渲染结果已保存到 %s", path)
	return nil
}

// WriteSourceCode 把合约源码按名称落盘
func (f *FileOutput) WriteSourceCode(contractName, sourceCode string) error {
	if contractName == "" || sourceCode == "" {
		return nil
	}

	if err := os.MkdirAll(f.sourceDir, 0755); err != nil {
		return fmt.Errorf("创建源码目录失败: %w", err)
	}

	safeName := unsafeNameChars.ReplaceAllString(contractName, "_")
	path := filepath.Join(f.sourceDir, safeName+".txt")

	if err := os.WriteFile(path, []byte(sourceCode), 0644); err != nil {
		return fmt.Errorf("保存源码失败: %w", err)
	}

	f.logger.Debugf("合约源码已保存: %s", path)
	return nil
}

// Close 关闭文件输出
func (f *FileOutput) Close() error {
	return nil
}
