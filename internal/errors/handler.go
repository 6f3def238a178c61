package errors

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorHandler 错误处理器
type ErrorHandler struct {
	logger *logrus.Logger
	stats  *ErrorStats
	mu     sync.RWMutex

	// 错误处理策略
	strategies map[ErrorType]ErrorStrategy

	// 错误回调
	callbacks []ErrorCallback

	// 阈值设置
	thresholds map[ErrorSeverity]ThresholdConfig
}

// ErrorStrategy 错误处理策略
type ErrorStrategy interface {
	Handle(ctx context.Context, err *TraceError) error
}

// ErrorCallback 错误回调函数
type ErrorCallback func(err *TraceError)

// ThresholdConfig 阈值配置
type ThresholdConfig struct {
	MaxErrorsPerHour     int           `json:"max_errors_per_hour"`
	MaxConsecutiveErrors int           `json:"max_consecutive_errors"`
	CooldownPeriod       time.Duration `json:"cooldown_period"`
}

// LoggingStrategy 日志记录策略
type LoggingStrategy struct {
	logger *logrus.Logger
}

// NewErrorHandler 创建错误处理器
func NewErrorHandler(logger *logrus.Logger) *ErrorHandler {
	eh := &ErrorHandler{
		logger:     logger,
		stats:      NewErrorStats(),
		strategies: make(map[ErrorType]ErrorStrategy),
		callbacks:  make([]ErrorCallback, 0),
		thresholds: make(map[ErrorSeverity]ThresholdConfig),
	}

	eh.setupDefaultStrategies()
	eh.setupDefaultThresholds()

	return eh
}

// setupDefaultStrategies 设置默认处理策略
//
// 解码类错误（ABI 解析、参数解码）只记录日志并降级，绝不中断整体渲染流程。
func (eh *ErrorHandler) setupDefaultStrategies() {
	loggingStrategy := &LoggingStrategy{logger: eh.logger}
	for errorType := range errorTypeNames {
		eh.strategies[errorType] = loggingStrategy
	}
}

// setupDefaultThresholds 设置默认阈值
func (eh *ErrorHandler) setupDefaultThresholds() {
	eh.thresholds[SeverityLow] = ThresholdConfig{
		MaxErrorsPerHour:     100,
		MaxConsecutiveErrors: 20,
		CooldownPeriod:       5 * time.Minute,
	}

	eh.thresholds[SeverityMedium] = ThresholdConfig{
		MaxErrorsPerHour:     50,
		MaxConsecutiveErrors: 10,
		CooldownPeriod:       10 * time.Minute,
	}

	eh.thresholds[SeverityHigh] = ThresholdConfig{
		MaxErrorsPerHour:     20,
		MaxConsecutiveErrors: 5,
		CooldownPeriod:       30 * time.Minute,
	}

	eh.thresholds[SeverityCritical] = ThresholdConfig{
		MaxErrorsPerHour:     5,
		MaxConsecutiveErrors: 2,
		CooldownPeriod:       time.Hour,
	}
}

// HandleError 处理错误
func (eh *ErrorHandler) HandleError(ctx context.Context, err error) error {
	var traceErr *TraceError

	// 转换为TraceError
	if te, ok := err.(*TraceError); ok {
		traceErr = te
	} else {
		traceErr = WrapError(err, ErrorTypeSystem, SeverityMedium, "UNKNOWN_ERROR", "未知错误")
	}

	// 记录错误统计
	eh.recordError(traceErr)

	// 检查阈值
	if eh.checkThresholds(traceErr) {
		eh.logger.Warnf("错误达到阈值限制: %s", traceErr.Error())
	}

	// 执行回调
	eh.executeCallbacks(traceErr)

	// 执行处理策略
	return eh.executeStrategy(ctx, traceErr)
}

// recordError 记录错误
func (eh *ErrorHandler) recordError(err *TraceError) {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	eh.stats.RecordError(err)
}

// checkThresholds 检查阈值
func (eh *ErrorHandler) checkThresholds(err *TraceError) bool {
	threshold, exists := eh.thresholds[err.Severity]
	if !exists {
		return false
	}

	hourlyRate := eh.stats.GetErrorRate(time.Hour)
	if hourlyRate > float64(threshold.MaxErrorsPerHour) {
		eh.logger.Warnf("每小时错误数超过阈值: %.2f > %d", hourlyRate, threshold.MaxErrorsPerHour)
		return true
	}

	return false
}

// executeCallbacks 执行错误回调
func (eh *ErrorHandler) executeCallbacks(err *TraceError) {
	eh.mu.RLock()
	callbacks := make([]ErrorCallback, len(eh.callbacks))
	copy(callbacks, eh.callbacks)
	eh.mu.RUnlock()

	for _, callback := range callbacks {
		go func(cb ErrorCallback) {
			defer func() {
				if r := recover(); r != nil {
					eh.logger.Errorf("错误回调执行时发生panic: %v", r)
				}
			}()
			cb(err)
		}(callback)
	}
}

// executeStrategy 执行处理策略
func (eh *ErrorHandler) executeStrategy(ctx context.Context, err *TraceError) error {
	strategy, exists := eh.strategies[err.Type]
	if !exists {
		strategy = &LoggingStrategy{logger: eh.logger}
	}

	return strategy.Handle(ctx, err)
}

// Handle 实现LoggingStrategy的处理方法
func (ls *LoggingStrategy) Handle(ctx context.Context, err *TraceError) error {
	// 根据严重级别选择日志级别
	logEntry := ls.logger.WithFields(logrus.Fields{
		"error_type": err.Type.String(),
		"error_code": err.Code,
		"component":  err.Component,
		"retryable":  err.Retryable,
		"address":    err.Address,
		"tx_hash":    err.TxHash,
		"context":    err.Context,
	})

	switch err.Severity {
	case SeverityLow:
		logEntry.Debug(err.Message)
	case SeverityMedium:
		logEntry.Warn(err.Message)
	case SeverityHigh:
		logEntry.Error(err.Message)
	case SeverityCritical:
		logEntry.Fatal(err.Message)
	}

	return err
}

// AddCallback 添加错误回调
func (eh *ErrorHandler) AddCallback(callback ErrorCallback) {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	eh.callbacks = append(eh.callbacks, callback)
}

// SetStrategy 设置错误处理策略
func (eh *ErrorHandler) SetStrategy(errorType ErrorType, strategy ErrorStrategy) {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	eh.strategies[errorType] = strategy
}

// GetStats 获取错误统计信息
func (eh *ErrorHandler) GetStats() *ErrorStats {
	eh.mu.RLock()
	defer eh.mu.RUnlock()
	return eh.stats
}

// SetThreshold 设置阈值
func (eh *ErrorHandler) SetThreshold(severity ErrorSeverity, config ThresholdConfig) {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	eh.thresholds[severity] = config
}

// ClearStats 清除统计信息
func (eh *ErrorHandler) ClearStats() {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	eh.stats = NewErrorStats()
}
