package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDefaultConfig(t *testing.T) {
	config := GetDefaultConfig()

	assert.NotNil(t, config)
	assert.NotNil(t, config.Etherscan)
	assert.NotNil(t, config.Cache)
	assert.NotNil(t, config.Output)
	assert.NotNil(t, config.Logging)

	// 测试链配置
	assert.Len(t, config.Chains, 3)
	names := make(map[string]int64)
	for _, chain := range config.Chains {
		names[chain.Name] = chain.ChainID
	}
	assert.Equal(t, int64(1), names["ETH"])
	assert.Equal(t, int64(56), names["BSC"])
	assert.Equal(t, int64(137), names["POLYGON"])

	// 测试Etherscan配置
	assert.Equal(t, "https://api.etherscan.io/v2/api", config.Etherscan.APIURL)
	assert.Equal(t, "200ms", config.Etherscan.RequestDelay)
	assert.Equal(t, "30s", config.Etherscan.Timeout)
	assert.Equal(t, 3, config.Etherscan.MaxRetries)

	// 测试缓存配置
	assert.True(t, config.Cache.Enable)
	assert.Equal(t, "./source_code", config.Cache.SourceDir)
	assert.Equal(t, "./data/contracts.db", config.Cache.DBPath)

	// 测试输出配置
	assert.Equal(t, "file", config.Output.Format)
	assert.Equal(t, "./outputs", config.Output.Directory)
	assert.NotNil(t, config.Output.Kafka)
	assert.Equal(t, []string{"localhost:9092"}, config.Output.Kafka.Brokers)

	// 测试日志配置
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "stdout", config.Logging.Output)
}

func TestFindChain(t *testing.T) {
	config := GetDefaultConfig()

	chain, err := config.FindChain("BSC")
	assert.NoError(t, err)
	assert.Equal(t, int64(56), chain.ChainID)

	_, err = config.FindChain("UNKNOWN")
	assert.Error(t, err)
}

func TestLoadConfigFromFile(t *testing.T) {
	content := `
chains:
  - name: "ETH"
    chain_id: 1
    rpc_url: "https://eth.example.com"
    rate_limit: 5
    priority: 1

etherscan:
  api_url: "https://api.etherscan.io/v2/api"
  api_key: "test-key"
  request_delay: "500ms"
  timeout: "10s"
  max_retries: 2
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfigFromFile(path)
	assert.NoError(t, err)

	assert.Len(t, config.Chains, 1)
	assert.Equal(t, "https://eth.example.com", config.Chains[0].RPCURL)
	assert.Equal(t, "test-key", config.Etherscan.APIKey)
	assert.Equal(t, "500ms", config.Etherscan.RequestDelay)

	// 缺失的配置段补默认值
	assert.NotNil(t, config.Cache)
	assert.NotNil(t, config.Output)
	assert.NotNil(t, config.Logging)
}

func TestLoadConfigFromFile_Missing(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
