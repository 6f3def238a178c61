package contracts

import (
	"path/filepath"
	"testing"

	"tracelens/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "contracts.db"), logrus.New())
	assert.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestStore_PutAndGet(t *testing.T) {
	store := newTestStore(t)

	record := &models.ContractRecord{
		Address: "0x1234567890abcdef1234567890abcdef12345678",
		Name:    "TestToken",
		ABI:     testERC20ABI,
	}

	assert.NoError(t, store.Put(record))

	stored, found := store.Get(record.Address)
	assert.True(t, found)
	assert.Equal(t, "TestToken", stored.Name)
	assert.Equal(t, testERC20ABI, stored.ABI)
	assert.False(t, stored.FetchedAt.IsZero())
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	stored, found := store.Get("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")
	assert.False(t, found)
	assert.Nil(t, stored)
}

func TestStore_Count(t *testing.T) {
	store := newTestStore(t)

	assert.Equal(t, 0, store.Count())

	store.Put(&models.ContractRecord{Address: "0x1111111111111111111111111111111111111111", Name: "A"})
	store.Put(&models.ContractRecord{Address: "0x2222222222222222222222222222222222222222", Name: "B"})

	assert.Equal(t, 2, store.Count())

	// 同一地址覆盖写入不增加计数
	store.Put(&models.ContractRecord{Address: "0x1111111111111111111111111111111111111111", Name: "A2"})
	assert.Equal(t, 2, store.Count())
}

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)

	store.Put(&models.ContractRecord{Address: "0x1111111111111111111111111111111111111111", Name: "A"})
	store.Put(&models.ContractRecord{Address: "0x2222222222222222222222222222222222222222", Name: "B"})
	store.Put(&models.ContractRecord{Address: "0x3333333333333333333333333333333333333333", Name: "C"})

	assert.NoError(t, store.Reset())
	assert.Equal(t, 0, store.Count())

	_, found := store.Get("0x1111111111111111111111111111111111111111")
	assert.False(t, found)

	// 清空后仍可正常写入
	assert.NoError(t, store.Put(&models.ContractRecord{Address: "0x4444444444444444444444444444444444444444", Name: "D"}))
	assert.Equal(t, 1, store.Count())
}

func TestStore_Stats(t *testing.T) {
	store := newTestStore(t)

	store.Put(&models.ContractRecord{Address: "0x1111111111111111111111111111111111111111", Name: "A"})

	stats := store.Stats()
	assert.Equal(t, 1, stats["contracts"])
	assert.NotEmpty(t, stats["db_path"])
	assert.NotEmpty(t, stats["last_update_time"])
}
