package formatter

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"tracelens/internal/contracts"
	"tracelens/pkg/models"

	"github.com/ethereum/go-ethereum/common"
)

// Formatter 解码值的展示格式化器
//
// 按 ABI 类型标签分派。格式化必须对任意输入产出字符串，未识别的
// 类型走通用格式化兜底。
type Formatter struct {
	cache *contracts.Cache
}

// NewFormatter 创建格式化器
func NewFormatter(cache *contracts.Cache) *Formatter {
	return &Formatter{cache: cache}
}

// Format 按类型标签格式化单个解码值
func (f *Formatter) Format(ctx context.Context, value interface{}, typeTag string) string {
	// 数组类型先于基础类型判断，address[] 不能落到 address 分支
	if strings.HasSuffix(typeTag, "[]") {
		return f.formatArray(ctx, value, strings.TrimSuffix(typeTag, "[]"))
	}

	switch {
	case typeTag == "address":
		return f.formatAddress(ctx, value)
	case typeTag == "bool":
		return fmt.Sprintf("%v", value)
	case strings.HasPrefix(typeTag, "uint"), strings.HasPrefix(typeTag, "int"):
		return formatInteger(value)
	case strings.HasPrefix(typeTag, "bytes"):
		return formatBytes(value)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// FormatParameters 格式化参数列表为 "name=value, name=value"
func (f *Formatter) FormatParameters(ctx context.Context, params []models.DecodedParameter) string {
	if len(params) == 0 {
		return ""
	}

	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("%s=%s", p.Name, f.Format(ctx, p.Value, p.Type)))
	}
	return strings.Join(parts, ", ")
}

// formatArray 逐元素递归格式化
func (f *Formatter) formatArray(ctx context.Context, value interface{}, elemTag string) string {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Sprintf("%v", value)
	}

	parts := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		parts = append(parts, f.Format(ctx, rv.Index(i).Interface(), elemTag))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// formatAddress 校验和格式化地址，已知合约替换为名称
func (f *Formatter) formatAddress(ctx context.Context, value interface{}) string {
	var checksummed string

	switch v := value.(type) {
	case common.Address:
		checksummed = v.Hex()
	case *common.Address:
		if v == nil {
			return fmt.Sprintf("%v", value)
		}
		checksummed = v.Hex()
	case string:
		if !common.IsHexAddress(v) {
			return v
		}
		checksummed = common.HexToAddress(v).Hex()
	default:
		return fmt.Sprintf("%v", value)
	}

	if f.cache != nil {
		if name := f.cache.Name(ctx, checksummed); name != checksummed {
			return name
		}
	}
	return checksummed
}

// formatInteger 整数加千位分隔符
func formatInteger(value interface{}) string {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return "0"
		}
		return groupDigits(v.String())
	case big.Int:
		return groupDigits(v.String())
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return groupDigits(fmt.Sprintf("%d", v))
	default:
		return fmt.Sprintf("%v", value)
	}
}

// groupDigits 从低位起每三位插入逗号
func groupDigits(s string) string {
	negative := strings.HasPrefix(s, "-")
	digits := strings.TrimPrefix(s, "-")

	if len(digits) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}

	if negative {
		return "-" + b.String()
	}
	return b.String()
}

// formatBytes 字节类型统一输出 0x 前缀十六进制
func formatBytes(value interface{}) string {
	switch v := value.(type) {
	case []byte:
		return "0x" + hex.EncodeToString(v)
	case string:
		if strings.HasPrefix(v, "0x") {
			return v
		}
		return "0x" + v
	default:
		// bytesN 解码为 [N]byte 定长数组
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
			buf := make([]byte, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				buf[i] = byte(rv.Index(i).Uint())
			}
			return "0x" + hex.EncodeToString(buf)
		}
		return fmt.Sprintf("%v", value)
	}
}
