package contracts

import (
	"context"
	"strings"
	"sync"

	"tracelens/internal/abiutil"
	"tracelens/pkg/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// SourceWriter 合约源码落盘接口，由输出层实现
type SourceWriter interface {
	WriteSourceCode(contractName, sourceCode string) error
}

// Cache 地址级合约元数据缓存
//
// 三态条目：map 中不存在 = 未查询；值为 nil = 已确认无已验证元数据；
// 非 nil = 已解析。外部查询在持锁状态下进行，保证同一地址在整个
// 进程生命周期内至多触发一次外部调用，与 trace 记录数无关。
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*models.ContractRecord
	provider Provider
	store    *Store       // 可选：跨运行的持久化存储
	sources  SourceWriter // 可选：源码落盘
	logger   *logrus.Logger

	// 统计
	lookups int // 外部查询次数
	hits    int // 内存命中次数
}

// NewCache 创建元数据缓存
func NewCache(provider Provider, logger *logrus.Logger) *Cache {
	return &Cache{
		entries:  make(map[string]*models.ContractRecord),
		provider: provider,
		logger:   logger,
	}
}

// SetStore 设置持久化存储
func (c *Cache) SetStore(store *Store) {
	c.store = store
}

// SetSourceWriter 设置源码落盘实现
func (c *Cache) SetSourceWriter(w SourceWriter) {
	c.sources = w
}

// Resolve 解析地址对应的合约记录，无已验证元数据时返回 nil
//
// 非法地址（长度或前缀错误）直接拒绝且不缓存：这是调用方的数据问题，
// 不是地址本身的属性。
func (c *Cache) Resolve(ctx context.Context, address string) *models.ContractRecord {
	if !common.IsHexAddress(address) {
		return nil
	}

	key := strings.ToLower(address)

	c.mu.Lock()
	defer c.mu.Unlock()

	if record, exists := c.entries[key]; exists {
		c.hits++
		return record
	}

	// 先查持久化存储，避免重复的外部调用
	if c.store != nil {
		if stored, found := c.store.Get(key); found {
			record := &models.ContractRecord{
				Address:   key,
				Name:      stored.Name,
				Functions: make(map[string]*models.FunctionDescriptor),
				ABI:       stored.ABI,
			}
			if stored.ABI != "" {
				record.Functions = abiutil.ResolveFunctions(stored.ABI, c.logger)
			}
			c.entries[key] = record
			return record
		}
	}

	c.lookups++
	meta, err := c.provider.FetchContractMetadata(ctx, key)
	if err != nil {
		// 查询失败与未验证同样缓存为缺失，本次运行内不再重试
		c.logger.Warnf("获取合约信息失败 %s: %v", key, err)
		c.entries[key] = nil
		return nil
	}

	if meta == nil || meta.Name == "" {
		c.logger.Debugf("合约未验证: %s", key)
		c.entries[key] = nil
		return nil
	}

	functions := make(map[string]*models.FunctionDescriptor)
	if meta.ABI != "" {
		functions = abiutil.ResolveFunctions(meta.ABI, c.logger)
		c.logger.Debugf("成功解析 ABI: %s (%d 个函数)", meta.Name, len(functions))
	}

	record := &models.ContractRecord{
		Address:   key,
		Name:      meta.Name,
		Functions: functions,
		ABI:       meta.ABI,
	}

	// 保存源代码
	if c.sources != nil && meta.SourceCode != "" {
		if err := c.sources.WriteSourceCode(meta.Name, meta.SourceCode); err != nil {
			c.logger.Warnf("保存源代码失败 %s: %v", meta.Name, err)
		}
	}

	// 只持久化确认已验证的结果，临时故障不会污染后续运行
	if c.store != nil {
		if err := c.store.Put(record); err != nil {
			c.logger.Warnf("持久化合约信息失败 %s: %v", key, err)
		}
	}

	c.entries[key] = record
	c.logger.Infof("成功获取合约信息: %s", meta.Name)
	return record
}

// Name 返回地址的展示名称，无已验证名称时原样返回传入地址
func (c *Cache) Name(ctx context.Context, address string) string {
	record := c.Resolve(ctx, address)
	if record != nil && record.Name != "" {
		return record.Name
	}
	return address
}

// Function 按选择器查找地址上的函数描述，未命中返回 nil
func (c *Cache) Function(ctx context.Context, address, selector string) *models.FunctionDescriptor {
	record := c.Resolve(ctx, address)
	if record == nil {
		return nil
	}
	return record.Functions[selector]
}

// Stats 获取缓存统计信息
func (c *Cache) Stats() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	resolved := 0
	absent := 0
	for _, record := range c.entries {
		if record != nil {
			resolved++
		} else {
			absent++
		}
	}

	return map[string]interface{}{
		"resolved_contracts": resolved,
		"absent_contracts":   absent,
		"external_lookups":   c.lookups,
		"memory_hits":        c.hits,
	}
}
