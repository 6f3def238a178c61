package models

// FunctionDescriptor 合约函数描述，由 (合约地址, 选择器) 唯一确定
type FunctionDescriptor struct {
	Name        string   `json:"name"`         // 函数名（ABI 省略时为空）
	Selector    string   `json:"selector"`     // 0x 前缀的 4 字节选择器
	InputTypes  []string `json:"input_types"`  // 输入参数类型，与 InputNames 等长
	InputNames  []string `json:"input_names"`  // 输入参数名称，可为空串
	OutputTypes []string `json:"output_types"` // 输出参数类型，与 OutputNames 等长
	OutputNames []string `json:"output_names"` // 输出参数名称，可为空串
}

// ContractRecord 已解析的合约信息，按小写地址缓存
type ContractRecord struct {
	Address   string                         `json:"address"`   // 小写规范化地址
	Name      string                         `json:"name"`      // 合约名称（未验证时为空）
	Functions map[string]*FunctionDescriptor `json:"-"`         // 选择器到函数描述的映射
	ABI       string                         `json:"abi"`       // 原始 ABI 负载，仅用于持久化
}

// DecodedParameter 解码后的单个参数
type DecodedParameter struct {
	Name  string      `json:"name"`  // 参数名，ABI 未命名时为 paramN / outputN
	Type  string      `json:"type"`  // ABI 类型标签
	Value interface{} `json:"value"` // 解码值：整数、布尔、字节串、地址或其嵌套数组
}
