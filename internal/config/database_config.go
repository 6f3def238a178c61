package config

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// DatabaseConfig 数据库配置管理器
type DatabaseConfig struct {
	DB     *sql.DB
	logger *logrus.Logger
}

// NewDatabaseConfig 创建数据库配置管理器
func NewDatabaseConfig(dsn string, logger *logrus.Logger) (*DatabaseConfig, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	return &DatabaseConfig{
		DB:     db,
		logger: logger,
	}, nil
}

// LoadConfig 从数据库加载完整配置
func (dc *DatabaseConfig) LoadConfig() (*Config, error) {
	config := GetDefaultConfig()

	// 加载链配置
	chains, err := dc.loadChains()
	if err != nil {
		return nil, fmt.Errorf("加载链配置失败: %w", err)
	}
	if len(chains) > 0 {
		config.Chains = chains
	}

	// 加载Etherscan配置
	etherscanConfig, err := dc.loadEtherscanConfig()
	if err != nil {
		return nil, fmt.Errorf("加载Etherscan配置失败: %w", err)
	}
	config.Etherscan = etherscanConfig

	// 加载输出配置
	outputConfig, err := dc.loadOutputConfig()
	if err != nil {
		return nil, fmt.Errorf("加载输出配置失败: %w", err)
	}
	config.Output = outputConfig

	return config, nil
}

// loadChains 加载链配置
func (dc *DatabaseConfig) loadChains() ([]*ChainConfig, error) {
	query := `SELECT name, chain_id, rpc_url, rate_limit, priority FROM chains WHERE is_active = true ORDER BY priority`
	rows, err := dc.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chains []*ChainConfig
	for rows.Next() {
		var chain ChainConfig
		err := rows.Scan(&chain.Name, &chain.ChainID, &chain.RPCURL, &chain.RateLimit, &chain.Priority)
		if err != nil {
			return nil, err
		}
		chains = append(chains, &chain)
	}

	return chains, nil
}

// loadEtherscanConfig 加载Etherscan配置
func (dc *DatabaseConfig) loadEtherscanConfig() (*EtherscanConfig, error) {
	query := `SELECT config_key, config_value FROM etherscan_config WHERE is_active = true`
	rows, err := dc.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	config := GetDefaultConfig().Etherscan

	for rows.Next() {
		var key, value string
		err := rows.Scan(&key, &value)
		if err != nil {
			return nil, err
		}

		switch key {
		case "api_url":
			config.APIURL = value
		case "api_key":
			config.APIKey = value
		case "request_delay":
			config.RequestDelay = value
		case "timeout":
			config.Timeout = value
		case "max_retries":
			if v, err := strconv.Atoi(value); err == nil {
				config.MaxRetries = v
			}
		}
	}

	return config, nil
}

// loadOutputConfig 加载输出配置
func (dc *DatabaseConfig) loadOutputConfig() (*OutputConfig, error) {
	query := `SELECT config_key, config_value FROM output_config WHERE is_active = true`
	rows, err := dc.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	config := &OutputConfig{
		Format:    "file",
		Directory: "./outputs",
	}

	for rows.Next() {
		var key, value string
		err := rows.Scan(&key, &value)
		if err != nil {
			return nil, err
		}

		switch key {
		case "format":
			config.Format = value
		case "directory":
			config.Directory = value
		case "kafka_brokers":
			var brokers []string
			if err := json.Unmarshal([]byte(value), &brokers); err == nil {
				config.Kafka = &KafkaConfig{
					Brokers: brokers,
				}
			}
		}
	}

	// 加载Kafka主题配置
	if strings.HasPrefix(config.Format, "kafka") {
		topics, err := dc.loadKafkaTopics()
		if err != nil {
			return nil, err
		}
		if config.Kafka == nil {
			config.Kafka = &KafkaConfig{}
		}
		config.Kafka.Topics = topics
	}

	return config, nil
}

// loadKafkaTopics 加载Kafka主题配置
func (dc *DatabaseConfig) loadKafkaTopics() (map[string]string, error) {
	query := `SELECT data_type, topic_name FROM kafka_topics WHERE is_active = true`
	rows, err := dc.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	topics := make(map[string]string)
	for rows.Next() {
		var dataType, topicName string
		err := rows.Scan(&dataType, &topicName)
		if err != nil {
			return nil, err
		}
		topics[dataType] = topicName
	}

	return topics, nil
}

// UpdateConfig 更新配置
func (dc *DatabaseConfig) UpdateConfig(configType, key, value string) error {
	tableName, err := configTable(configType)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (config_key, config_value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (config_key)
		DO UPDATE SET config_value = $2, updated_at = CURRENT_TIMESTAMP
	`, tableName)

	_, err = dc.DB.Exec(query, key, value)
	return err
}

// GetConfig 获取配置值
func (dc *DatabaseConfig) GetConfig(configType, key string) (string, error) {
	tableName, err := configTable(configType)
	if err != nil {
		return "", err
	}

	query := fmt.Sprintf(`SELECT config_value FROM %s WHERE config_key = $1 AND is_active = true`, tableName)
	var value string
	err = dc.DB.QueryRow(query, key).Scan(&value)
	return value, err
}

// configTable 配置类型到表名的映射
func configTable(configType string) (string, error) {
	switch configType {
	case "etherscan":
		return "etherscan_config", nil
	case "output":
		return "output_config", nil
	case "system":
		return "system_config", nil
	default:
		return "", fmt.Errorf("不支持的配置类型: %s", configType)
	}
}

// Close 关闭数据库连接
func (dc *DatabaseConfig) Close() error {
	if dc.DB != nil {
		return dc.DB.Close()
	}
	return nil
}
