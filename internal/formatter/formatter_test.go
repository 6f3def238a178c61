package formatter

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"tracelens/internal/contracts"
	"tracelens/pkg/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// fakeProvider 返回固定元数据的测试提供方
type fakeProvider struct {
	metadata map[string]*contracts.Metadata
}

func (p *fakeProvider) FetchContractMetadata(ctx context.Context, address string) (*contracts.Metadata, error) {
	return p.metadata[address], nil
}

func newTestFormatter(metadata map[string]*contracts.Metadata) *Formatter {
	provider := &fakeProvider{metadata: metadata}
	if provider.metadata == nil {
		provider.metadata = make(map[string]*contracts.Metadata)
	}
	return NewFormatter(contracts.NewCache(provider, logrus.New()))
}

func TestFormat_Integers(t *testing.T) {
	f := newTestFormatter(nil)
	ctx := context.Background()

	tests := []struct {
		value    interface{}
		typeTag  string
		expected string
	}{
		{big.NewInt(1000000), "uint256", "1,000,000"},
		{big.NewInt(100), "uint256", "100"},
		{big.NewInt(1000), "uint256", "1,000"},
		{big.NewInt(0), "uint8", "0"},
		{big.NewInt(-1234567), "int256", "-1,234,567"},
		{uint8(255), "uint8", "255"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, f.Format(ctx, tt.value, tt.typeTag))
	}
}

func TestFormat_Bool(t *testing.T) {
	f := newTestFormatter(nil)
	ctx := context.Background()

	assert.Equal(t, "true", f.Format(ctx, true, "bool"))
	assert.Equal(t, "false", f.Format(ctx, false, "bool"))
}

func TestFormat_Address(t *testing.T) {
	f := newTestFormatter(nil)
	ctx := context.Background()

	// EIP-55 规范中的校验和示例地址
	checksummed := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	addr := common.HexToAddress(strings.ToLower(checksummed))

	assert.Equal(t, checksummed, f.Format(ctx, addr, "address"))
	assert.Equal(t, checksummed, f.Format(ctx, strings.ToLower(checksummed), "address"))

	// 指针形式同样格式化，空指针走通用兜底
	assert.Equal(t, checksummed, f.Format(ctx, &addr, "address"))
	assert.Equal(t, "<nil>", f.Format(ctx, (*common.Address)(nil), "address"))
}

func TestFormat_AddressWithKnownName(t *testing.T) {
	addr := "0x1234567890abcdef1234567890abcdef12345678"
	f := newTestFormatter(map[string]*contracts.Metadata{
		addr: {Name: "TestToken"},
	})
	ctx := context.Background()

	// 已知合约地址替换为合约名
	assert.Equal(t, "TestToken", f.Format(ctx, common.HexToAddress(addr), "address"))
}

func TestFormat_Bytes(t *testing.T) {
	f := newTestFormatter(nil)
	ctx := context.Background()

	assert.Equal(t, "0xdeadbeef", f.Format(ctx, []byte{0xde, 0xad, 0xbe, 0xef}, "bytes"))

	// bytes4 解码为定长数组
	assert.Equal(t, "0x01020304", f.Format(ctx, [4]byte{1, 2, 3, 4}, "bytes4"))
}

func TestFormat_Arrays(t *testing.T) {
	f := newTestFormatter(nil)
	ctx := context.Background()

	values := []*big.Int{big.NewInt(1000), big.NewInt(2000000)}
	assert.Equal(t, "[1,000, 2,000,000]", f.Format(ctx, values, "uint256[]"))

	addrs := []common.Address{
		common.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"),
	}
	assert.Equal(t, "[0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed]", f.Format(ctx, addrs, "address[]"))
}

func TestFormat_UnknownTypeFallsBack(t *testing.T) {
	f := newTestFormatter(nil)
	ctx := context.Background()

	// 任何输入都必须产出字符串
	assert.Equal(t, "hello", f.Format(ctx, "hello", "string"))
	assert.NotEmpty(t, f.Format(ctx, struct{ X int }{1}, "tuple"))
}

func TestFormatParameters(t *testing.T) {
	f := newTestFormatter(nil)
	ctx := context.Background()

	params := []models.DecodedParameter{
		{Name: "to", Type: "address", Value: common.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")},
		{Name: "amount", Type: "uint256", Value: big.NewInt(1000000)},
	}

	result := f.FormatParameters(ctx, params)
	assert.Equal(t, "to=0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed, amount=1,000,000", result)

	assert.Equal(t, "", f.FormatParameters(ctx, nil))
}

func TestGroupDigits(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"0", "0"},
		{"999", "999"},
		{"1000", "1,000"},
		{"1000000", "1,000,000"},
		{"123456789", "123,456,789"},
		{"-1000", "-1,000"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.out, groupDigits(tt.in))
	}
}
