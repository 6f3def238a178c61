package abiutil

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSelector_KnownSignatures(t *testing.T) {
	// 链上广泛使用的标准函数选择器
	tests := []struct {
		name       string
		inputTypes []string
		expected   string
	}{
		{"transfer", []string{"address", "uint256"}, "0xa9059cbb"},
		{"approve", []string{"address", "uint256"}, "0x095ea7b3"},
		{"balanceOf", []string{"address"}, "0x70a08231"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Selector(tt.name, tt.inputTypes))
		})
	}
}

func TestSelector_Deterministic(t *testing.T) {
	first := Selector("transfer", []string{"address", "uint256"})
	second := Selector("transfer", []string{"address", "uint256"})
	assert.Equal(t, first, second)
}

func TestSelector_NoParameters(t *testing.T) {
	// 无参函数的规范签名是 name()
	selector := Selector("totalSupply", nil)
	assert.Equal(t, "0x18160ddd", selector)
	assert.Len(t, selector, 10)
}

func TestResolveFunctions_BasicABI(t *testing.T) {
	abiJSON := `[
		{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
		{"type":"function","name":"balanceOf","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"balance","type":"uint256"}]}
	]`

	functions := ResolveFunctions(abiJSON, logrus.New())

	assert.Len(t, functions, 2)

	transfer := functions["0xa9059cbb"]
	assert.NotNil(t, transfer)
	assert.Equal(t, "transfer", transfer.Name)
	assert.Equal(t, []string{"address", "uint256"}, transfer.InputTypes)
	assert.Equal(t, []string{"to", "amount"}, transfer.InputNames)
	assert.Equal(t, []string{"bool"}, transfer.OutputTypes)

	balanceOf := functions["0x70a08231"]
	assert.NotNil(t, balanceOf)
	assert.Equal(t, "balanceOf", balanceOf.Name)
}

func TestResolveFunctions_IgnoresNonFunctions(t *testing.T) {
	abiJSON := `[
		{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address"}]},
		{"type":"constructor","inputs":[{"name":"supply","type":"uint256"}]},
		{"type":"fallback"},
		{"type":"function","name":"decimals","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
	]`

	functions := ResolveFunctions(abiJSON, logrus.New())

	assert.Len(t, functions, 1)
	for _, desc := range functions {
		assert.Equal(t, "decimals", desc.Name)
	}
}

func TestResolveFunctions_SelectorCollisionLastWins(t *testing.T) {
	// 同一选择器出现两次时保留后出现的条目
	abiJSON := `[
		{"type":"function","name":"transfer","inputs":[{"name":"a","type":"address"},{"name":"b","type":"uint256"}],"outputs":[]},
		{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"ok","type":"bool"}]}
	]`

	functions := ResolveFunctions(abiJSON, logrus.New())

	assert.Len(t, functions, 1)
	desc := functions["0xa9059cbb"]
	assert.NotNil(t, desc)
	assert.Equal(t, []string{"to", "amount"}, desc.InputNames)
	assert.Equal(t, []string{"bool"}, desc.OutputTypes)
}

func TestResolveFunctions_MalformedJSON(t *testing.T) {
	functions := ResolveFunctions("not valid json", logrus.New())
	assert.Empty(t, functions)
}

func TestResolveFunctions_EmptyABI(t *testing.T) {
	functions := ResolveFunctions("[]", logrus.New())
	assert.Empty(t, functions)
}
