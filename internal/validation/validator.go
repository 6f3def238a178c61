package validation

import (
	"fmt"
	"math/big"
	"strings"

	"tracelens/internal/errors"
	"tracelens/pkg/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// 已知的记录类型和调用类型
var (
	knownRecordTypes = map[string]bool{
		"call":    true,
		"create":  true,
		"suicide": true,
		"reward":  true,
	}

	knownCallTypes = map[string]bool{
		"call":         true,
		"delegatecall": true,
		"staticcall":   true,
		"callcode":     true,
	}
)

// Validator trace 数据验证器
//
// 严格模式下任何异常都使验证失败，非严格模式下未知的类型只产生
// 警告，渲染可以继续。
type Validator struct {
	logger     *logrus.Logger
	strictMode bool
}

// ValidationResult 验证结果
type ValidationResult struct {
	Valid    bool                 `json:"valid"`
	DataType string               `json:"data_type"`
	Errors   []*errors.TraceError `json:"errors,omitempty"`
	Warnings []string             `json:"warnings,omitempty"`
}

// NewValidator 创建数据验证器
func NewValidator(logger *logrus.Logger, strictMode bool) *Validator {
	return &Validator{
		logger:     logger,
		strictMode: strictMode,
	}
}

// ValidateTrace 验证整个 trace 记录集
func (v *Validator) ValidateTrace(records []*models.TraceRecord) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		DataType: "trace",
		Errors:   make([]*errors.TraceError, 0),
		Warnings: make([]string, 0),
	}

	for i, record := range records {
		recordResult := v.ValidateTraceRecord(record)
		if !recordResult.Valid {
			result.Valid = false
			for _, err := range recordResult.Errors {
				result.Errors = append(result.Errors, err.WithContext("record_index", i))
			}
		}
		result.Warnings = append(result.Warnings, recordResult.Warnings...)
	}

	if !result.Valid {
		v.logger.Warnf("trace 验证失败: %d 个错误", len(result.Errors))
	}

	return result
}

// ValidateTraceRecord 验证单条 trace 记录
func (v *Validator) ValidateTraceRecord(record *models.TraceRecord) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		DataType: "trace_record",
		Errors:   make([]*errors.TraceError, 0),
		Warnings: make([]string, 0),
	}

	if record == nil {
		result.Valid = false
		result.Errors = append(result.Errors, errors.NewTraceError(
			errors.ErrorTypeValidation, errors.SeverityMedium,
			"NIL_TRACE_RECORD", "trace 记录为空"))
		return result
	}

	// 记录类型
	recordType := strings.ToLower(record.Type)
	if recordType != "" && !knownRecordTypes[recordType] {
		v.flag(result, fmt.Sprintf("未知的记录类型: %s", record.Type),
			"UNKNOWN_RECORD_TYPE", "未知的记录类型")
	}

	// 调用类型
	callType := strings.ToLower(record.Action.CallType)
	if callType != "" && !knownCallTypes[callType] {
		v.flag(result, fmt.Sprintf("未知的调用类型: %s", record.Action.CallType),
			"UNKNOWN_CALL_TYPE", "未知的调用类型")
	}

	// 地址格式
	if record.Action.From != "" && !common.IsHexAddress(record.Action.From) {
		result.Valid = false
		result.Errors = append(result.Errors, errors.NewTraceError(
			errors.ErrorTypeValidation, errors.SeverityMedium,
			"INVALID_FROM_ADDRESS", "发起方地址格式无效").WithAddress(record.Action.From))
	}
	if record.Action.To != "" && !common.IsHexAddress(record.Action.To) {
		result.Valid = false
		result.Errors = append(result.Errors, errors.NewTraceError(
			errors.ErrorTypeValidation, errors.SeverityMedium,
			"INVALID_TO_ADDRESS", "目标地址格式无效").WithAddress(record.Action.To))
	}

	// 转账金额
	if record.Action.Value != "" && !isParsableValue(record.Action.Value) {
		result.Valid = false
		result.Errors = append(result.Errors, errors.NewTraceError(
			errors.ErrorTypeValidation, errors.SeverityMedium,
			"INVALID_VALUE", "转账金额无法解析").WithContext("value", record.Action.Value))
	}

	// traceAddress 元素必须非负
	for _, idx := range record.TraceAddress {
		if idx < 0 {
			result.Valid = false
			result.Errors = append(result.Errors, errors.NewTraceError(
				errors.ErrorTypeValidation, errors.SeverityMedium,
				"INVALID_TRACE_ADDRESS", "traceAddress 包含负数"))
			break
		}
	}

	return result
}

// flag 按模式把异常计为错误或警告
func (v *Validator) flag(result *ValidationResult, warning, code, message string) {
	if v.strictMode {
		result.Valid = false
		result.Errors = append(result.Errors, errors.NewTraceError(
			errors.ErrorTypeValidation, errors.SeverityLow, code, message))
	} else {
		result.Warnings = append(result.Warnings, warning)
		v.logger.Debug(warning)
	}
}

// isParsableValue 金额是否可解析为整数
func isParsableValue(value string) bool {
	n := new(big.Int)
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		_, ok := n.SetString(value[2:], 16)
		return ok
	}
	_, ok := n.SetString(value, 10)
	return ok
}
