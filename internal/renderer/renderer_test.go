package renderer

import (
	"context"
	"strings"
	"testing"

	"tracelens/internal/contracts"
	"tracelens/pkg/models"

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

const (
	senderAddress = "0x1111111111111111111111111111111111111111"
	tokenAddress  = "0x2222222222222222222222222222222222222222"
	plainAddress  = "0x3333333333333333333333333333333333333333"

	erc20ABI = `[{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}]`

	transferInput = "0xa9059cbb" +
		"0000000000000000000000001234567890abcdef1234567890abcdef12345678" +
		"00000000000000000000000000000000000000000000000000000000000f4240"
)

func newTestRenderer() *Renderer {
	provider := &fakeProvider{
		metadata: map[string]*contracts.Metadata{
			tokenAddress: {Name: "Token", ABI: erc20ABI},
		},
	}
	logger := logrus.New()
	return New(contracts.NewCache(provider, logger), logger)
}

func callRecord(from, to, callType, value, input string, traceAddress []int) *models.TraceRecord {
	return &models.TraceRecord{
		Action: models.TraceAction{
			From:     from,
			To:       to,
			CallType: callType,
			Value:    value,
			Input:    input,
		},
		Result:       &models.TraceResult{Output: "0x"},
		Type:         "call",
		TraceAddress: traceAddress,
	}
}

func TestRender_EmptyTrace(t *testing.T) {
	r := newTestRenderer()

	lines := r.Render(context.Background(), nil, false)
	assert.Equal(t, []string{NoTraceDataLine}, lines)

	lines = r.Render(context.Background(), []*models.TraceRecord{}, false)
	assert.Len(t, lines, 1)
}

func TestRender_SenderLine(t *testing.T) {
	r := newTestRenderer()

	records := []*models.TraceRecord{
		callRecord(senderAddress, tokenAddress, "call", "0x0", transferInput, []int{}),
	}
	lines := r.Render(context.Background(), records, false)

	assert.Len(t, lines, 2)
	assert.Equal(t, "[Sender] "+senderAddress, lines[0])
}

func TestRender_TransferLine(t *testing.T) {
	r := newTestRenderer()

	records := []*models.TraceRecord{
		callRecord(senderAddress, tokenAddress, "call", "0x0", transferInput, []int{}),
	}
	lines := r.Render(context.Background(), records, false)

	line := lines[1]
	assert.True(t, strings.HasPrefix(line, "0 [CALL] Token.transfer("), line)
	assert.Contains(t, line, "to=")
	assert.Contains(t, line, "amount=1,000,000")
	assert.True(t, strings.HasSuffix(line, "=> ()"), line)
}

func TestRender_DepthIndentation(t *testing.T) {
	r := newTestRenderer()

	records := []*models.TraceRecord{
		callRecord(senderAddress, plainAddress, "call", "0x0", "0x", []int{}),
		callRecord(plainAddress, plainAddress, "call", "0x0", "0x", []int{0}),
		callRecord(plainAddress, plainAddress, "call", "0x0", "0x", []int{0, 2}),
	}
	lines := r.Render(context.Background(), records, false)

	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "0 [CALL]"))
	assert.True(t, strings.HasPrefix(lines[2], "  1 [CALL]"))
	// 深度由 traceAddress 长度决定，与元素值无关
	assert.True(t, strings.HasPrefix(lines[3], "    2 [CALL]"))
}

func TestRender_StaticCallFiltering(t *testing.T) {
	r := newTestRenderer()

	records := []*models.TraceRecord{
		callRecord(senderAddress, plainAddress, "call", "0x0", "0x", []int{}),
		callRecord(plainAddress, plainAddress, "staticcall", "0x0", "0x", []int{0}),
	}

	// 默认跳过 STATICCALL
	lines := r.Render(context.Background(), records, false)
	assert.Len(t, lines, 2)
	for _, line := range lines {
		assert.NotContains(t, line, "STATICCALL")
	}

	// 开启后保留
	lines = r.Render(context.Background(), records, true)
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[2], "[STATICCALL]")
}

func TestRender_ValuePrefix(t *testing.T) {
	r := newTestRenderer()

	// 1 Ether = 0xde0b6b3a7640000 wei
	records := []*models.TraceRecord{
		callRecord(senderAddress, plainAddress, "call", "0xde0b6b3a7640000", "0x", []int{}),
	}
	lines := r.Render(context.Background(), records, false)
	assert.Contains(t, lines[1], "[value: 1 Ether] ")

	// 零值不加前缀
	records = []*models.TraceRecord{
		callRecord(senderAddress, plainAddress, "call", "0x0", "0x", []int{}),
	}
	lines = r.Render(context.Background(), records, false)
	assert.NotContains(t, lines[1], "value:")
}

func TestRender_Create(t *testing.T) {
	r := newTestRenderer()

	records := []*models.TraceRecord{
		{
			Action: models.TraceAction{
				From:  senderAddress,
				Value: "0x0",
				Init:  "0x6080",
			},
			Result: &models.TraceResult{
				Address: plainAddress,
				Code:    "0x6080",
			},
			Type:         "create",
			TraceAddress: []int{},
		},
	}
	lines := r.Render(context.Background(), records, false)

	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], "[CREATE]")
	// 创建调用的目标是部署出的合约地址
	assert.Contains(t, lines[1], plainAddress)
	// 部署字节码不当作调用数据，函数名渲染为 <empty> 且无参数
	assert.Contains(t, lines[1], ".<empty>()")
	assert.NotContains(t, lines[1], "0x6080")
	assert.True(t, strings.HasSuffix(lines[1], "=> ()"), lines[1])
}

func TestRender_UnverifiedContractFallback(t *testing.T) {
	r := newTestRenderer()

	records := []*models.TraceRecord{
		callRecord(senderAddress, plainAddress, "call", "0x0", transferInput, []int{}),
	}
	lines := r.Render(context.Background(), records, false)

	// 未验证合约显示原始地址和选择器
	assert.Contains(t, lines[1], plainAddress)
	assert.Contains(t, lines[1], "0xa9059cbb")
}

func TestRender_EmptyInputShowsEmptySelector(t *testing.T) {
	r := newTestRenderer()

	records := []*models.TraceRecord{
		callRecord(senderAddress, plainAddress, "call", "0xde0b6b3a7640000", "0x", []int{}),
	}
	lines := r.Render(context.Background(), records, false)

	assert.Contains(t, lines[1], ".<empty>()")
}

func TestWeiToEther(t *testing.T) {
	tests := []struct {
		value    string
		expected string
		positive bool
	}{
		{"0xde0b6b3a7640000", "1", true},
		{"1000000000000000000", "1", true},
		{"0x0", "", false},
		{"0", "", false},
		{"", "", false},
		{"0x6f05b59d3b20000", "0.5", true},
		{"not-a-number", "", false},
	}

	for _, tt := range tests {
		got, positive := weiToEther(tt.value)
		assert.Equal(t, tt.positive, positive, tt.value)
		assert.Equal(t, tt.expected, got, tt.value)
	}
}
