package contracts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tracelens/pkg/models"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	// 默认数据库路径
	DefaultDBPath = "./data/contracts.db"

	// 存储桶名称
	ContractsBucket = "contracts"
	MetaBucket      = "meta"

	// 元数据键
	LastUpdateTimeKey = "last_update_time"
)

// StoredContract 持久化的合约记录
type StoredContract struct {
	Address   string    `json:"address"`
	Name      string    `json:"name"`
	ABI       string    `json:"abi"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Store 合约元数据的持久化存储
//
// 只保存确认已验证的合约，临时查询失败不落盘。
type Store struct {
	db     *bolt.DB
	logger *logrus.Logger
	dbPath string
}

// NewStore 创建合约存储
func NewStore(dbPath string, logger *logrus.Logger) (*Store, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}

	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	// 打开BoltDB数据库
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("打开合约数据库失败: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
		dbPath: dbPath,
	}

	if err := store.initDB(); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}

	logger.Infof("合约存储已初始化，数据库路径: %s", dbPath)
	return store, nil
}

// initDB 初始化数据库结构
func (s *Store) initDB() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(ContractsBucket)); err != nil {
			return fmt.Errorf("创建合约存储桶失败: %w", err)
		}

		if _, err := tx.CreateBucketIfNotExists([]byte(MetaBucket)); err != nil {
			return fmt.Errorf("创建元数据存储桶失败: %w", err)
		}

		return nil
	})
}

// Get 按小写地址读取合约记录
func (s *Store) Get(address string) (*StoredContract, bool) {
	var stored *StoredContract

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(ContractsBucket))
		if bucket == nil {
			return nil
		}

		data := bucket.Get([]byte(address))
		if data == nil {
			return nil
		}

		var sc StoredContract
		if err := json.Unmarshal(data, &sc); err != nil {
			return fmt.Errorf("反序列化合约记录失败: %w", err)
		}
		stored = &sc
		return nil
	})
	if err != nil {
		s.logger.Warnf("读取合约记录失败 %s: %v", address, err)
		return nil, false
	}

	return stored, stored != nil
}

// Put 写入合约记录
func (s *Store) Put(record *models.ContractRecord) error {
	if record == nil {
		return nil
	}

	stored := &StoredContract{
		Address:   record.Address,
		Name:      record.Name,
		ABI:       record.ABI,
		FetchedAt: time.Now(),
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("序列化合约记录失败: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(ContractsBucket))
		if bucket == nil {
			return fmt.Errorf("合约存储桶不存在")
		}

		if err := bucket.Put([]byte(stored.Address), data); err != nil {
			return fmt.Errorf("保存合约记录失败: %w", err)
		}

		// 记录最后更新时间
		meta := tx.Bucket([]byte(MetaBucket))
		if meta != nil {
			if timeData, err := json.Marshal(stored.FetchedAt); err == nil {
				meta.Put([]byte(LastUpdateTimeKey), timeData)
			}
		}

		return nil
	})
}

// Count 统计已持久化的合约数量
func (s *Store) Count() int {
	count := 0

	s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(ContractsBucket))
		if bucket == nil {
			return nil
		}
		count = bucket.Stats().KeyN
		return nil
	})

	return count
}

// Stats 获取存储统计信息
func (s *Store) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"db_path":   s.dbPath,
		"contracts": s.Count(),
	}

	s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(MetaBucket))
		if meta == nil {
			return nil
		}
		if data := meta.Get([]byte(LastUpdateTimeKey)); data != nil {
			var lastUpdate time.Time
			if err := json.Unmarshal(data, &lastUpdate); err == nil {
				stats["last_update_time"] = lastUpdate.Format(time.RFC3339)
			}
		}
		return nil
	})

	return stats
}

// Reset 清空所有合约记录
//
// 直接重建存储桶，遍历中删除在 bbolt 里是未定义行为。
func (s *Store) Reset() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(ContractsBucket)); err != nil && err != bolt.ErrBucketNotFound {
			return fmt.Errorf("删除合约存储桶失败: %w", err)
		}

		if _, err := tx.CreateBucketIfNotExists([]byte(ContractsBucket)); err != nil {
			return fmt.Errorf("重建合约存储桶失败: %w", err)
		}

		return nil
	})
}

// GetDBPath 获取数据库路径
func (s *Store) GetDBPath() string {
	return s.dbPath
}

// Close 关闭合约存储
func (s *Store) Close() error {
	if s.db != nil {
		s.logger.Info("关闭合约存储")
		return s.db.Close()
	}
	return nil
}
