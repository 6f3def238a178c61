package trace

import (
	"context"
	"fmt"
	"strings"

	"tracelens/internal/retry"
	"tracelens/pkg/models"

	"github.com/sirupsen/logrus"
)

// Fetcher 通过 trace_transaction 拉取交易 trace
type Fetcher struct {
	pool    *ClientPool
	retrier *retry.Retrier
	logger  *logrus.Logger
}

// NewFetcher 创建 trace 拉取器
func NewFetcher(pool *ClientPool, logger *logrus.Logger) *Fetcher {
	return &Fetcher{
		pool:    pool,
		retrier: retry.NewRetrier(retry.NetworkRetryConfig, logger),
		logger:  logger,
	}
}

// FetchTrace 拉取指定交易的完整 trace 记录
//
// 节点未开启 trace 模块或交易不存在时返回错误，记录为空不算错误。
func (f *Fetcher) FetchTrace(ctx context.Context, chain, txHash string) ([]*models.TraceRecord, error) {
	if !strings.HasPrefix(txHash, "0x") || len(txHash) != 66 {
		return nil, fmt.Errorf("非法的交易哈希: %s", txHash)
	}

	client, chainConfig, err := f.pool.Client(ctx, chain)
	if err != nil {
		return nil, err
	}

	f.logger.Infof("拉取 trace: chain=%s chain_id=%d tx=%s", chain, chainConfig.ChainID, txHash)

	var records []*models.TraceRecord
	err = f.retrier.Execute(ctx, fmt.Sprintf("trace_transaction %s", txHash), func() error {
		return client.Client().CallContext(ctx, &records, "trace_transaction", txHash)
	})
	if err != nil {
		return nil, fmt.Errorf("trace_transaction 调用失败: %w", err)
	}

	f.logger.Infof("获取到 %d 条 trace 记录", len(records))
	return records, nil
}
