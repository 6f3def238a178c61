package contracts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"tracelens/internal/config"
	"tracelens/internal/retry"

	"github.com/sirupsen/logrus"
)

// EtherscanClient Etherscan v2 合约源码查询客户端
type EtherscanClient struct {
	apiURL  string
	apiKey  string
	chainID int64
	client  *http.Client
	retrier *retry.Retrier
	logger  *logrus.Logger

	// 请求频率控制
	requestDelay time.Duration
	mu           sync.Mutex
	lastRequest  time.Time
}

// etherscanEnvelope Etherscan API 响应外层结构
//
// Result 在出错时可能是字符串而非数组，因此延迟解析。
type etherscanEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// sourceCodeResult getsourcecode 的单条结果
type sourceCodeResult struct {
	ContractName string `json:"ContractName"`
	SourceCode   string `json:"SourceCode"`
	ABI          string `json:"ABI"`
}

// NewEtherscanClient 创建Etherscan客户端
func NewEtherscanClient(cfg *config.EtherscanConfig, chainID int64, logger *logrus.Logger) *EtherscanClient {
	if cfg == nil {
		cfg = config.GetDefaultConfig().Etherscan
	}

	// 解析超时时间
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		timeout = 30 * time.Second
		logger.Warnf("解析API超时时间失败，使用默认值30s: %v", err)
	}

	// 解析请求间隔
	requestDelay, err := time.ParseDuration(cfg.RequestDelay)
	if err != nil {
		requestDelay = 200 * time.Millisecond
		logger.Warnf("解析请求间隔失败，使用默认值200ms: %v", err)
	}

	retryConfig := retry.EtherscanRetryConfig
	if cfg.MaxRetries > 0 {
		retryConfig = &retry.RetryConfig{
			MaxAttempts:         cfg.MaxRetries,
			InitialInterval:     retry.EtherscanRetryConfig.InitialInterval,
			MaxInterval:         retry.EtherscanRetryConfig.MaxInterval,
			BackoffFactor:       retry.EtherscanRetryConfig.BackoffFactor,
			RandomizationFactor: retry.EtherscanRetryConfig.RandomizationFactor,
			EnableJitter:        retry.EtherscanRetryConfig.EnableJitter,
		}
	}

	return &EtherscanClient{
		apiURL:       cfg.APIURL,
		apiKey:       cfg.APIKey,
		chainID:      chainID,
		client:       &http.Client{Timeout: timeout},
		retrier:      retry.NewRetrier(retryConfig, logger),
		logger:       logger,
		requestDelay: requestDelay,
	}
}

// FetchContractMetadata 查询合约源码和 ABI
//
// 未验证的合约返回 (nil, nil)；只有传输层故障才返回 error。
func (c *EtherscanClient) FetchContractMetadata(ctx context.Context, address string) (*Metadata, error) {
	var meta *Metadata

	err := c.retrier.Execute(ctx, fmt.Sprintf("getsourcecode %s", address), func() error {
		m, err := c.fetchOnce(ctx, address)
		if err != nil {
			return err
		}
		meta = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	return meta, nil
}

// fetchOnce 单次 getsourcecode 请求
func (c *EtherscanClient) fetchOnce(ctx context.Context, address string) (*Metadata, error) {
	c.waitForRateLimit()

	params := url.Values{}
	params.Set("chainid", strconv.FormatInt(c.chainID, 10))
	params.Set("module", "contract")
	params.Set("action", "getsourcecode")
	params.Set("address", address)
	params.Set("apikey", c.apiKey)

	c.logger.Debugf("请求合约信息: %s", address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("构建请求失败: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("Etherscan 返回错误状态: %d", resp.StatusCode)
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry.NewRetryableError(err, retryable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	var envelope etherscanEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	if envelope.Status != "1" {
		// 速率限制需要重试，其余按未验证处理
		if strings.Contains(strings.ToLower(envelope.Message), "rate limit") ||
			strings.Contains(strings.ToLower(string(envelope.Result)), "rate limit") {
			return nil, retry.NewRetryableError(fmt.Errorf("Etherscan 速率限制: %s", envelope.Message), true)
		}
		c.logger.Debugf("Etherscan 无结果 %s: %s", address, envelope.Message)
		return nil, nil
	}

	var results []sourceCodeResult
	if err := json.Unmarshal(envelope.Result, &results); err != nil {
		return nil, fmt.Errorf("解析合约结果失败: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	result := results[0]
	if result.ContractName == "" {
		// 合约未验证
		return nil, nil
	}

	abiPayload := result.ABI
	if abiPayload == "Contract source code not verified" {
		abiPayload = ""
	}

	return &Metadata{
		Name:       result.ContractName,
		ABI:        abiPayload,
		SourceCode: result.SourceCode,
	}, nil
}

// waitForRateLimit 控制请求频率
func (c *EtherscanClient) waitForRateLimit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < c.requestDelay {
		time.Sleep(c.requestDelay - elapsed)
	}
	c.lastRequest = time.Now()
}
