package decoder

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"tracelens/internal/contracts"
	"tracelens/pkg/models"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/sirupsen/logrus"
)

// EmptySelector 空调用数据的占位符（纯转账等场景）
const EmptySelector = "<empty>"

// Decoder 调用数据解码器
//
// 负责选择器提取、函数名解析和 ABI 参数解码。解码失败一律降级为
// 空结果，渲染照常进行。
type Decoder struct {
	cache  *contracts.Cache
	logger *logrus.Logger
}

// NewDecoder 创建解码器
func NewDecoder(cache *contracts.Cache, logger *logrus.Logger) *Decoder {
	return &Decoder{
		cache:  cache,
		logger: logger,
	}
}

// SelectorFromInput 提取调用数据的函数选择器
//
// 空输入返回 EmptySelector；不足 4 字节的输入原样返回。
func SelectorFromInput(input string) string {
	if input == "" || input == "0x" {
		return EmptySelector
	}
	if len(input) >= 10 {
		return input[:10]
	}
	return input
}

// FunctionName 解析调用对应的函数名
//
// 能匹配到 ABI 时返回函数名，否则返回原始选择器。
func (d *Decoder) FunctionName(ctx context.Context, address, input string) string {
	selector := SelectorFromInput(input)
	if selector == EmptySelector {
		return EmptySelector
	}

	if desc := d.cache.Function(ctx, address, selector); desc != nil {
		return desc.Name
	}
	return selector
}

// DecodeInputs 解码调用输入参数
//
// 无法解码时返回空切片，调用方按未解码处理。
func (d *Decoder) DecodeInputs(ctx context.Context, address, input string) []models.DecodedParameter {
	selector := SelectorFromInput(input)
	if selector == EmptySelector || len(input) <= 10 {
		return nil
	}

	desc := d.cache.Function(ctx, address, selector)
	if desc == nil || len(desc.InputTypes) == 0 {
		return nil
	}

	// 跳过前 4 字节选择器
	return d.unpack(desc.InputTypes, desc.InputNames, input[10:], "param", address, selector)
}

// DecodeOutputs 解码调用返回值
func (d *Decoder) DecodeOutputs(ctx context.Context, address, input, output string) []models.DecodedParameter {
	if output == "" || output == "0x" {
		return nil
	}

	selector := SelectorFromInput(input)
	if selector == EmptySelector {
		return nil
	}

	desc := d.cache.Function(ctx, address, selector)
	if desc == nil || len(desc.OutputTypes) == 0 {
		return nil
	}

	return d.unpack(desc.OutputTypes, desc.OutputNames, strings.TrimPrefix(output, "0x"), "output", address, selector)
}

// unpack 按类型列表解码十六进制数据
func (d *Decoder) unpack(types, names []string, hexData, fallbackPrefix, address, selector string) []models.DecodedParameter {
	data, err := hex.DecodeString(strings.TrimPrefix(hexData, "0x"))
	if err != nil {
		d.logger.Debugf("解码十六进制数据失败 %s %s: %v", address, selector, err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	args := make(gethabi.Arguments, 0, len(types))
	for _, t := range types {
		ty, err := gethabi.NewType(t, "", nil)
		if err != nil {
			d.logger.Debugf("不支持的参数类型 %s (%s %s): %v", t, address, selector, err)
			return nil
		}
		args = append(args, gethabi.Argument{Type: ty})
	}

	values, err := args.UnpackValues(data)
	if err != nil {
		d.logger.Debugf("ABI 解码失败 %s %s: %v", address, selector, err)
		return nil
	}
	if len(values) != len(types) {
		d.logger.Warnf("解码结果数量不匹配 %s %s: 期望 %d 实际 %d", address, selector, len(types), len(values))
		return nil
	}

	params := make([]models.DecodedParameter, 0, len(values))
	for i, value := range values {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		if name == "" {
			name = fmt.Sprintf("%s%d", fallbackPrefix, i)
		}
		params = append(params, models.DecodedParameter{
			Name:  name,
			Type:  types[i],
			Value: value,
		})
	}

	return params
}
