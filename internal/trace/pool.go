package trace

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tracelens/internal/config"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// ClientPool 按链名维护的 RPC 客户端池
//
// 客户端按需建立，同一条链复用同一个连接。trace_transaction 需要
// 节点开启 trace 模块，连接失败直接上抛给调用方重试。
type ClientPool struct {
	chains  map[string]*config.ChainConfig
	clients map[string]*ethclient.Client
	logger  *logrus.Logger
	mu      sync.Mutex
}

// NewClientPool 创建客户端池
func NewClientPool(chains []*config.ChainConfig, logger *logrus.Logger) *ClientPool {
	chainMap := make(map[string]*config.ChainConfig, len(chains))
	for _, chain := range chains {
		chainMap[strings.ToUpper(chain.Name)] = chain
	}

	return &ClientPool{
		chains:  chainMap,
		clients: make(map[string]*ethclient.Client),
		logger:  logger,
	}
}

// Client 获取指定链的客户端，必要时建立连接
func (p *ClientPool) Client(ctx context.Context, chain string) (*ethclient.Client, *config.ChainConfig, error) {
	key := strings.ToUpper(chain)

	p.mu.Lock()
	defer p.mu.Unlock()

	chainConfig, exists := p.chains[key]
	if !exists {
		return nil, nil, fmt.Errorf("不支持的链: %s", chain)
	}
	if chainConfig.RPCURL == "" {
		return nil, nil, fmt.Errorf("链 %s 没有配置 RPC 节点", key)
	}

	if client, ok := p.clients[key]; ok {
		return client, chainConfig, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := ethclient.DialContext(dialCtx, chainConfig.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("连接节点失败: %w", err)
	}

	// 测试连接
	if _, err := client.ChainID(dialCtx); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("测试连接失败: %w", err)
	}

	p.clients[key] = client
	p.logger.Infof("已连接到 %s 节点: %s", key, chainConfig.RPCURL)
	return client, chainConfig, nil
}

// Chains 返回已配置的链名列表
func (p *ClientPool) Chains() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.chains))
	for name := range p.chains {
		names = append(names, name)
	}
	return names
}

// Stats 获取连接统计信息
func (p *ClientPool) Stats() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := make(map[string]interface{})
	for name, chain := range p.chains {
		_, connected := p.clients[name]
		stats[name] = map[string]interface{}{
			"chain_id":  chain.ChainID,
			"connected": connected,
		}
	}
	return stats
}

// Close 关闭所有连接
func (p *ClientPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, client := range p.clients {
		client.Close()
		delete(p.clients, name)
	}

	p.logger.Info("RPC 连接池已关闭")
}
