package trace

import (
	"encoding/json"
	"fmt"
	"os"

	"tracelens/pkg/models"
)

// LoadTraceFile 从本地 JSON 文件加载 trace 记录
//
// 同时兼容裸数组和带 jsonrpc 外层的响应两种格式。
func LoadTraceFile(path string) ([]*models.TraceRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取 trace 文件失败: %w", err)
	}

	// 裸数组格式
	var records []*models.TraceRecord
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	// jsonrpc 响应格式
	var response models.TraceResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("解析 trace 文件失败: %w", err)
	}

	return response.Result, nil
}
