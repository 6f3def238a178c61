package renderer

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"tracelens/internal/contracts"
	"tracelens/internal/decoder"
	"tracelens/internal/formatter"
	"tracelens/internal/logging"
	"tracelens/pkg/models"

	"github.com/sirupsen/logrus"
)

// NoTraceDataLine 空 trace 的提示行
const NoTraceDataLine = "没有找到 trace 数据"

// weiPerEther 1 Ether = 10^18 wei
var weiPerEther = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// Renderer 调用树渲染器
//
// 把 trace_transaction 风格的扁平记录逐条渲染为可读文本。缩进由
// traceAddress 长度决定，不重建树结构。
type Renderer struct {
	cache            *contracts.Cache
	decoder          *decoder.Decoder
	formatter        *formatter.Formatter
	logger           *logrus.Logger
	structuredLogger *logging.StructuredLogger
}

// New 创建渲染器
func New(cache *contracts.Cache, logger *logrus.Logger) *Renderer {
	return NewWithLogging(cache, logger, nil)
}

// NewWithLogging 创建带结构化日志的渲染器
func NewWithLogging(cache *contracts.Cache, logger *logrus.Logger, logConfig *logging.LogConfig) *Renderer {
	var structuredLogger *logging.StructuredLogger
	if logConfig != nil {
		var err error
		structuredLogger, err = logging.NewStructuredLogger(logConfig)
		if err != nil {
			logger.Warnf("创建结构化日志器失败，使用默认日志: %v", err)
		}
	}

	return &Renderer{
		cache:            cache,
		decoder:          decoder.NewDecoder(cache, logger),
		formatter:        formatter.NewFormatter(cache),
		logger:           logger,
		structuredLogger: structuredLogger,
	}
}

// Render 渲染全部 trace 记录
//
// includeStaticCall 为 false 时跳过 STATICCALL 记录。输出行数等于
// 保留的记录数，外加第一条记录前的 Sender 行。
func (r *Renderer) Render(ctx context.Context, records []*models.TraceRecord, includeStaticCall bool) []string {
	if len(records) == 0 {
		r.logger.Warn("没有找到 trace 数据")
		return []string{NoTraceDataLine}
	}

	lines := make([]string, 0, len(records)+1)

	for i, record := range records {
		if record == nil {
			continue
		}

		// 第一条记录的发起方单独成行
		if i == 0 && record.Action.From != "" {
			sender := r.cache.Name(ctx, record.Action.From)
			lines = append(lines, fmt.Sprintf("[Sender] %s", sender))
		}

		line, ok := r.renderRecord(ctx, record, includeStaticCall)
		if !ok {
			continue
		}
		lines = append(lines, line)
	}

	r.logger.Infof("渲染完成，共 %d 条记录 %d 行输出", len(records), len(lines))
	if r.structuredLogger != nil {
		r.structuredLogger.InfoWithFields("渲染完成", map[string]any{
			"component":           "trace_renderer",
			"record_count":        len(records),
			"line_count":          len(lines),
			"include_static_call": includeStaticCall,
		})
	}
	return lines
}

// renderRecord 渲染单条记录，返回 false 表示该记录被过滤
func (r *Renderer) renderRecord(ctx context.Context, record *models.TraceRecord, includeStaticCall bool) (string, bool) {
	depth := len(record.TraceAddress)
	label := strings.ToUpper(record.Action.CallType)
	to := record.Action.To
	input := record.Action.Input

	output := ""
	if record.Result != nil {
		output = record.Result.Output
	}

	// 合约创建没有 callType 和 input，目标取部署出的地址，
	// 部署字节码不参与函数名和参数解码
	if strings.EqualFold(record.Type, "create") {
		label = "CREATE"
		if record.Result != nil && record.Result.Address != "" {
			to = record.Result.Address
		}
	}

	if label == "" {
		label = strings.ToUpper(record.Type)
	}

	if label == "STATICCALL" && !includeStaticCall {
		return "", false
	}

	indent := strings.Repeat("  ", depth)

	valuePrefix := ""
	if ether, positive := weiToEther(record.Action.Value); positive {
		valuePrefix = fmt.Sprintf("[value: %s Ether] ", ether)
	}

	contractName := r.cache.Name(ctx, to)
	functionName := r.decoder.FunctionName(ctx, to, input)

	ins := r.formatter.FormatParameters(ctx, r.decoder.DecodeInputs(ctx, to, input))
	outs := r.formatter.FormatParameters(ctx, r.decoder.DecodeOutputs(ctx, to, input, output))

	line := fmt.Sprintf("%s%d [%s] %s%s.%s(%s) => (%s)",
		indent, depth, label, valuePrefix, contractName, functionName, ins, outs)
	return line, true
}

// weiToEther 把 wei 数值转为 Ether 字符串，第二个返回值表示数值为正
//
// 十六进制按 16 进制解析，其余按 10 进制解析，避免前导零被当作八进制。
func weiToEther(value string) (string, bool) {
	if value == "" {
		return "", false
	}

	wei := new(big.Int)
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		if _, ok := wei.SetString(value[2:], 16); !ok {
			return "", false
		}
	} else {
		if _, ok := wei.SetString(value, 10); !ok {
			return "", false
		}
	}

	if wei.Sign() <= 0 {
		return "", false
	}

	ether := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEther)
	f, _ := ether.Float64()
	return strconv.FormatFloat(f, 'g', -1, 64), true
}
