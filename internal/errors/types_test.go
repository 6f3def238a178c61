package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTraceError(t *testing.T) {
	err := NewTraceError(ErrorTypeNetwork, SeverityMedium, "TEST_ERROR", "测试错误")

	assert.Equal(t, ErrorTypeNetwork, err.Type)
	assert.Equal(t, SeverityMedium, err.Severity)
	assert.Equal(t, "TEST_ERROR", err.Code)
	assert.Equal(t, "测试错误", err.Message)
	assert.True(t, err.Retryable)
	assert.False(t, err.Timestamp.IsZero())
}

func TestTraceError_Error(t *testing.T) {
	err := NewTraceError(ErrorTypeDecode, SeverityLow, "DECODE_FAILED", "参数解码失败")
	assert.Equal(t, "[DECODE_FAILED] 参数解码失败", err.Error())

	cause := errors.New("底层错误")
	wrapped := WrapError(cause, ErrorTypeDecode, SeverityLow, "DECODE_FAILED", "参数解码失败")
	assert.Contains(t, wrapped.Error(), "底层错误")
	assert.Equal(t, cause, errors.Unwrap(wrapped))
}

func TestTraceError_WithContext(t *testing.T) {
	err := NewTraceError(ErrorTypeEtherscan, SeverityMedium, "ETHERSCAN_API_FAILED", "API调用失败").
		WithAddress("0x1234567890abcdef1234567890abcdef12345678").
		WithTxHash("0xabc").
		WithContext("attempt", 3)

	assert.NotNil(t, err.Address)
	assert.Equal(t, "0x1234567890abcdef1234567890abcdef12345678", *err.Address)
	assert.NotNil(t, err.TxHash)
	assert.Equal(t, 3, err.Context["attempt"])
}

func TestDetermineRetryable(t *testing.T) {
	// 网络类错误可重试
	assert.True(t, NewTraceError(ErrorTypeTimeout, SeverityMedium, "X", "").IsRetryable())
	assert.True(t, NewTraceError(ErrorTypeRateLimit, SeverityMedium, "X", "").IsRetryable())
	assert.True(t, NewTraceError(ErrorTypeKafka, SeverityHigh, "X", "").IsRetryable())

	// 合约未验证是终态，不可重试
	assert.False(t, ErrContractNotVerified.IsRetryable())
	assert.True(t, ErrEtherscanAPIFailed.IsRetryable())

	// 节点不支持 trace 模块不可重试
	assert.False(t, NewTraceError(ErrorTypeRPC, SeverityHigh, "TRACE_NOT_SUPPORTED", "").IsRetryable())
	assert.True(t, NewTraceError(ErrorTypeRPC, SeverityMedium, "RPC_FAILED", "").IsRetryable())

	// 解码和校验错误不可重试
	assert.False(t, ErrDecodeFailed.IsRetryable())
	assert.False(t, ErrABIParseFailed.IsRetryable())
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "Network", ErrorTypeNetwork.String())
	assert.Equal(t, "Etherscan", ErrorTypeEtherscan.String())
	assert.Equal(t, "Validation", ErrorTypeValidation.String())
	assert.Contains(t, ErrorType(999).String(), "Unknown")
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "Low", SeverityLow.String())
	assert.Equal(t, "Critical", SeverityCritical.String())
}

func TestErrorStats_RecordError(t *testing.T) {
	stats := NewErrorStats()

	err1 := NewTraceError(ErrorTypeNetwork, SeverityMedium, "E1", "错误1")
	err1.Component = "fetcher"
	err2 := NewTraceError(ErrorTypeDecode, SeverityLow, "E2", "错误2")

	stats.RecordError(err1)
	stats.RecordError(err2)

	assert.Equal(t, 2, stats.TotalErrors)
	assert.Equal(t, 1, stats.ErrorsByType[ErrorTypeNetwork])
	assert.Equal(t, 1, stats.ErrorsByType[ErrorTypeDecode])
	assert.Equal(t, 1, stats.ErrorsByComponent["fetcher"])
	assert.Equal(t, err2, stats.LastError)
}

func TestErrorStats_RecentErrorsCapped(t *testing.T) {
	stats := NewErrorStats()

	for i := 0; i < 150; i++ {
		stats.RecordError(NewTraceError(ErrorTypeSystem, SeverityLow, "E", ""))
	}

	assert.Equal(t, 150, stats.TotalErrors)
	assert.Len(t, stats.RecentErrors, 100)
}

func TestErrorStats_GetErrorRate(t *testing.T) {
	stats := NewErrorStats()

	stats.RecordError(NewTraceError(ErrorTypeSystem, SeverityLow, "E", ""))
	stats.RecordError(NewTraceError(ErrorTypeSystem, SeverityLow, "E", ""))

	rate := stats.GetErrorRate(time.Hour)
	assert.Equal(t, 2.0, rate)

	assert.Equal(t, 0.0, stats.GetErrorRate(0))
}
