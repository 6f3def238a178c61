package models

import "time"

// TraceRecord trace_transaction 响应中的单条调用记录
type TraceRecord struct {
	Action          TraceAction  `json:"action"`
	Result          *TraceResult `json:"result,omitempty"`
	Type            string       `json:"type"`                      // 类型: "call", "create", "suicide", "reward"
	TraceAddress    []int        `json:"traceAddress"`              // 调用树中的位置，长度即嵌套深度
	Subtraces       int          `json:"subtraces,omitempty"`       // 子调用数量
	TransactionHash string       `json:"transactionHash,omitempty"` // 外部交易哈希
	BlockNumber     uint64       `json:"blockNumber,omitempty"`     // 区块号
	Error           string       `json:"error,omitempty"`           // 执行错误信息
}

// TraceAction 调用动作
type TraceAction struct {
	From     string `json:"from"`               // 发送方地址
	To       string `json:"to,omitempty"`       // 接收方地址（create 时为空）
	Value    string `json:"value"`              // 转移金额（十六进制 Wei）
	Gas      string `json:"gas,omitempty"`      // Gas限制
	Input    string `json:"input,omitempty"`    // 调用输入数据
	Init     string `json:"init,omitempty"`     // create 时的部署字节码
	CallType string `json:"callType,omitempty"` // 调用类型: "call", "staticcall", "delegatecall", "callcode"
}

// TraceResult 调用结果
type TraceResult struct {
	GasUsed string `json:"gasUsed,omitempty"` // 实际Gas使用量
	Output  string `json:"output,omitempty"`  // 输出数据
	Address string `json:"address,omitempty"` // create 时新创建的合约地址
	Code    string `json:"code,omitempty"`    // create 时部署后的字节码
}

// TraceResponse trace_transaction 的完整 JSON-RPC 响应体（本地文件回放时使用）
type TraceResponse struct {
	JSONRPC string         `json:"jsonrpc,omitempty"`
	ID      interface{}    `json:"id,omitempty"`
	Result  []*TraceRecord `json:"result"`
}

// RenderedTrace 解析后的可读调用树
type RenderedTrace struct {
	Chain       string    `json:"chain"`             // 链名称
	TxHash      string    `json:"tx_hash,omitempty"` // 交易哈希
	Lines       []string  `json:"lines"`             // 渲染后的文本行
	RecordCount int       `json:"record_count"`      // 原始 trace 记录数
	GeneratedAt time.Time `json:"generated_at"`      // 生成时间
}
