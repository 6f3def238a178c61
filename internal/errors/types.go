package errors

import (
	"fmt"
	"time"
)

// ErrorType 错误类型
type ErrorType int

const (
	// 网络相关错误
	ErrorTypeNetwork ErrorType = iota
	ErrorTypeConnection
	ErrorTypeTimeout
	ErrorTypeRateLimit

	// 链上数据相关错误
	ErrorTypeRPC
	ErrorTypeTraceNotFound
	ErrorTypeInvalidTrace

	// 解码相关错误
	ErrorTypeABIParse
	ErrorTypeDecode
	ErrorTypeValidation

	// 系统相关错误
	ErrorTypeSystem
	ErrorTypeFileIO
	ErrorTypeConfig

	// 外部服务错误
	ErrorTypeEtherscan
	ErrorTypeKafka
)

// ErrorSeverity 错误严重级别
type ErrorSeverity int

const (
	SeverityLow ErrorSeverity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// TraceError 自定义错误类型
type TraceError struct {
	Type      ErrorType              `json:"type"`
	Severity  ErrorSeverity          `json:"severity"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"cause,omitempty"`
	Retryable bool                   `json:"retryable"`
	Component string                 `json:"component"`
	Address   *string                `json:"address,omitempty"`
	TxHash    *string                `json:"tx_hash,omitempty"`
}

// Error 实现error接口
func (e *TraceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Unwrap
func (e *TraceError) Unwrap() error {
	return e.Cause
}

// IsRetryable 判断是否可重试
func (e *TraceError) IsRetryable() bool {
	return e.Retryable
}

// WithContext 添加上下文信息
func (e *TraceError) WithContext(key string, value interface{}) *TraceError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithAddress 添加合约地址
func (e *TraceError) WithAddress(address string) *TraceError {
	e.Address = &address
	return e
}

// WithTxHash 添加交易哈希
func (e *TraceError) WithTxHash(txHash string) *TraceError {
	e.TxHash = &txHash
	return e
}

// NewTraceError 创建新的错误
func NewTraceError(errorType ErrorType, severity ErrorSeverity, code, message string) *TraceError {
	return &TraceError{
		Type:      errorType,
		Severity:  severity,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Retryable: determineRetryable(errorType, code),
	}
}

// WrapError 包装现有错误
func WrapError(err error, errorType ErrorType, severity ErrorSeverity, code, message string) *TraceError {
	return &TraceError{
		Type:      errorType,
		Severity:  severity,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     err,
		Retryable: determineRetryable(errorType, code),
	}
}

// determineRetryable 根据错误类型判断是否可重试
func determineRetryable(errorType ErrorType, code string) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeConnection, ErrorTypeTimeout:
		return true
	case ErrorTypeRateLimit:
		return true
	case ErrorTypeEtherscan:
		// 速率限制和服务端故障可重试，合约未验证不可重试
		return code != "CONTRACT_NOT_VERIFIED"
	case ErrorTypeKafka:
		return true
	case ErrorTypeRPC:
		return code != "TRACE_NOT_SUPPORTED"
	default:
		return false
	}
}

// 预定义错误
var (
	// 网络错误
	ErrNetworkTimeout = NewTraceError(
		ErrorTypeTimeout,
		SeverityMedium,
		"NETWORK_TIMEOUT",
		"网络请求超时",
	)

	ErrRateLimitExceeded = NewTraceError(
		ErrorTypeRateLimit,
		SeverityMedium,
		"RATE_LIMIT_EXCEEDED",
		"请求频率超限",
	)

	// 链上数据错误
	ErrTraceNotFound = NewTraceError(
		ErrorTypeTraceNotFound,
		SeverityMedium,
		"TRACE_NOT_FOUND",
		"未找到 trace 数据",
	)

	ErrInvalidTrace = NewTraceError(
		ErrorTypeInvalidTrace,
		SeverityMedium,
		"INVALID_TRACE",
		"无效的 trace 数据",
	)

	// 解码错误
	ErrABIParseFailed = NewTraceError(
		ErrorTypeABIParse,
		SeverityLow,
		"ABI_PARSE_FAILED",
		"ABI 解析失败",
	)

	ErrDecodeFailed = NewTraceError(
		ErrorTypeDecode,
		SeverityLow,
		"DECODE_FAILED",
		"参数解码失败",
	)

	// 系统错误
	ErrFileIOFailed = NewTraceError(
		ErrorTypeFileIO,
		SeverityHigh,
		"FILE_IO_FAILED",
		"文件操作失败",
	)

	ErrConfigInvalid = NewTraceError(
		ErrorTypeConfig,
		SeverityCritical,
		"CONFIG_INVALID",
		"配置无效",
	)

	// 外部服务错误
	ErrEtherscanAPIFailed = NewTraceError(
		ErrorTypeEtherscan,
		SeverityMedium,
		"ETHERSCAN_API_FAILED",
		"Etherscan API 调用失败",
	)

	ErrContractNotVerified = NewTraceError(
		ErrorTypeEtherscan,
		SeverityLow,
		"CONTRACT_NOT_VERIFIED",
		"合约源码未验证",
	)

	ErrKafkaProduceFailed = NewTraceError(
		ErrorTypeKafka,
		SeverityHigh,
		"KAFKA_PRODUCE_FAILED",
		"Kafka消息发送失败",
	)
)

// 错误类型字符串映射
var errorTypeNames = map[ErrorType]string{
	ErrorTypeNetwork:       "Network",
	ErrorTypeConnection:    "Connection",
	ErrorTypeTimeout:       "Timeout",
	ErrorTypeRateLimit:     "RateLimit",
	ErrorTypeRPC:           "RPC",
	ErrorTypeTraceNotFound: "TraceNotFound",
	ErrorTypeInvalidTrace:  "InvalidTrace",
	ErrorTypeABIParse:      "ABIParse",
	ErrorTypeDecode:        "Decode",
	ErrorTypeValidation:    "Validation",
	ErrorTypeSystem:        "System",
	ErrorTypeFileIO:        "FileIO",
	ErrorTypeConfig:        "Config",
	ErrorTypeEtherscan:     "Etherscan",
	ErrorTypeKafka:         "Kafka",
}

// String 返回错误类型的字符串表示
func (et ErrorType) String() string {
	if name, exists := errorTypeNames[et]; exists {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", et)
}

// 严重级别字符串映射
var severityNames = map[ErrorSeverity]string{
	SeverityLow:      "Low",
	SeverityMedium:   "Medium",
	SeverityHigh:     "High",
	SeverityCritical: "Critical",
}

// String 返回严重级别的字符串表示
func (es ErrorSeverity) String() string {
	if name, exists := severityNames[es]; exists {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", es)
}

// ErrorStats 错误统计
type ErrorStats struct {
	TotalErrors       int                   `json:"total_errors"`
	ErrorsByType      map[ErrorType]int     `json:"errors_by_type"`
	ErrorsBySeverity  map[ErrorSeverity]int `json:"errors_by_severity"`
	ErrorsByComponent map[string]int        `json:"errors_by_component"`
	RecentErrors      []*TraceError         `json:"recent_errors"`
	LastError         *TraceError           `json:"last_error"`
	LastErrorTime     time.Time             `json:"last_error_time"`
}

// NewErrorStats 创建错误统计
func NewErrorStats() *ErrorStats {
	return &ErrorStats{
		ErrorsByType:      make(map[ErrorType]int),
		ErrorsBySeverity:  make(map[ErrorSeverity]int),
		ErrorsByComponent: make(map[string]int),
		RecentErrors:      make([]*TraceError, 0),
	}
}

// RecordError 记录错误
func (es *ErrorStats) RecordError(err *TraceError) {
	es.TotalErrors++
	es.ErrorsByType[err.Type]++
	es.ErrorsBySeverity[err.Severity]++
	if err.Component != "" {
		es.ErrorsByComponent[err.Component]++
	}

	es.LastError = err
	es.LastErrorTime = err.Timestamp

	// 保留最近100个错误
	es.RecentErrors = append(es.RecentErrors, err)
	if len(es.RecentErrors) > 100 {
		es.RecentErrors = es.RecentErrors[1:]
	}
}

// GetErrorRate 获取错误率（错误/小时）
func (es *ErrorStats) GetErrorRate(duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}

	cutoff := time.Now().Add(-duration)
	recentCount := 0

	for _, err := range es.RecentErrors {
		if err.Timestamp.After(cutoff) {
			recentCount++
		}
	}

	hours := duration.Hours()
	if hours == 0 {
		return float64(recentCount)
	}

	return float64(recentCount) / hours
}
