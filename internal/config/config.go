package config

import (
	"fmt"
	"os"

	"tracelens/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config 主配置
type Config struct {
	Chains    []*ChainConfig     `mapstructure:"chains"`
	Etherscan *EtherscanConfig   `mapstructure:"etherscan"`
	Cache     *CacheConfig       `mapstructure:"cache"`
	Output    *OutputConfig      `mapstructure:"output"`
	Logging   *logging.LogConfig `mapstructure:"logging"`
}

// ChainConfig 链配置
type ChainConfig struct {
	Name      string `mapstructure:"name"`
	ChainID   int64  `mapstructure:"chain_id"`
	RPCURL    string `mapstructure:"rpc_url"`
	RateLimit int    `mapstructure:"rate_limit"`
	Priority  int    `mapstructure:"priority"`
}

// EtherscanConfig 合约元数据查询配置
type EtherscanConfig struct {
	APIURL       string `mapstructure:"api_url"`
	APIKey       string `mapstructure:"api_key"`
	RequestDelay string `mapstructure:"request_delay"`
	Timeout      string `mapstructure:"timeout"`
	MaxRetries   int    `mapstructure:"max_retries"`
}

// CacheConfig 合约缓存配置
type CacheConfig struct {
	Enable    bool   `mapstructure:"enable"`
	SourceDir string `mapstructure:"source_dir"`
	DBPath    string `mapstructure:"db_path"`
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	Brokers []string          `mapstructure:"brokers"`
	Topics  map[string]string `mapstructure:"topics"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	Format    string       `mapstructure:"format"`
	Directory string       `mapstructure:"directory"`
	Kafka     *KafkaConfig `mapstructure:"kafka"`
}

// LoadConfig 加载配置（自动检测配置源）
func LoadConfig(configPath string) (*Config, error) {
	// 首先尝试从环境变量获取数据库配置
	dbDSN := os.Getenv("TRACELENS_DB_DSN")
	if dbDSN != "" {
		logger := logrus.New()
		dbConfig, err := NewDatabaseConfig(dbDSN, logger)
		if err != nil {
			return nil, fmt.Errorf("连接数据库失败: %w", err)
		}
		defer dbConfig.Close()

		config, err := dbConfig.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("从数据库加载配置失败: %w", err)
		}

		logger.Info("已从数据库加载配置")
		return config, nil
	}

	// 检查是否存在数据库配置文件
	dbConfigFile := "configs/database.yaml"
	if _, err := os.Stat(dbConfigFile); err == nil {
		dbViper := viper.New()
		dbViper.SetConfigFile(dbConfigFile)
		dbViper.SetConfigType("yaml")

		if err := dbViper.ReadInConfig(); err == nil {
			dbDSN := dbViper.GetString("database.dsn")
			if dbDSN != "" {
				logger := logrus.New()
				dbConfig, err := NewDatabaseConfig(dbDSN, logger)
				if err == nil {
					defer dbConfig.Close()

					config, err := dbConfig.LoadConfig()
					if err == nil {
						logger.Info("已从数据库加载配置")
						return config, nil
					}
				}
			}
		}
	}

	// 如果数据库配置不可用，回退到YAML文件
	return LoadConfigFromFile(configPath)
}

// LoadConfigFromFile 从文件加载配置
func LoadConfigFromFile(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	applyDefaults(&config)
	return &config, nil
}

// applyDefaults 补全缺失的配置段
func applyDefaults(config *Config) {
	defaults := GetDefaultConfig()

	if len(config.Chains) == 0 {
		config.Chains = defaults.Chains
	}
	if config.Etherscan == nil {
		config.Etherscan = defaults.Etherscan
	}
	if config.Etherscan.APIKey == "" {
		config.Etherscan.APIKey = os.Getenv("ETHERSCAN_API_KEY")
	}
	if config.Cache == nil {
		config.Cache = defaults.Cache
	}
	if config.Output == nil {
		config.Output = defaults.Output
	}
	if config.Logging == nil {
		config.Logging = defaults.Logging
	}
}

// FindChain 按名称查找链配置（大小写不敏感由调用方保证）
func (c *Config) FindChain(name string) (*ChainConfig, error) {
	for _, chain := range c.Chains {
		if chain.Name == name {
			return chain, nil
		}
	}
	return nil, fmt.Errorf("不支持的链: %s", name)
}

// GetDefaultConfig 获取默认配置
func GetDefaultConfig() *Config {
	return &Config{
		Chains: []*ChainConfig{
			{
				Name:      "ETH",
				ChainID:   1,
				RPCURL:    os.Getenv("RPC_ETH"),
				RateLimit: 10,
				Priority:  1,
			},
			{
				Name:      "BSC",
				ChainID:   56,
				RPCURL:    os.Getenv("RPC_BSC"),
				RateLimit: 10,
				Priority:  2,
			},
			{
				Name:      "POLYGON",
				ChainID:   137,
				RPCURL:    os.Getenv("RPC_POLYGON"),
				RateLimit: 10,
				Priority:  3,
			},
		},
		Etherscan: &EtherscanConfig{
			APIURL:       "https://api.etherscan.io/v2/api",
			APIKey:       os.Getenv("ETHERSCAN_API_KEY"),
			RequestDelay: "200ms",
			Timeout:      "30s",
			MaxRetries:   3,
		},
		Cache: &CacheConfig{
			Enable:    true,
			SourceDir: "./source_code",
			DBPath:    "./data/contracts.db",
		},
		Output: &OutputConfig{
			Format:    "file",
			Directory: "./outputs",
			Kafka: &KafkaConfig{
				Brokers: []string{"localhost:9092"},
				Topics: map[string]string{
					"trace_rendered": "trace_rendered",
					"trace_records":  "trace_records",
				},
			},
		},
		Logging: &logging.LogConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			Rotation:   false,
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 3,
			Compress:   true,
		},
	}
}
