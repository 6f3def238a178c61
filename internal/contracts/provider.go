package contracts

import "context"

// Metadata 外部查询返回的合约元数据
type Metadata struct {
	Name       string `json:"name"`        // 合约名称，未验证时为空
	ABI        string `json:"abi"`         // ABI JSON 字符串
	SourceCode string `json:"source_code"` // 合约源码
}

// Provider 合约元数据提供方（区块浏览器风格的合约查询）
//
// 返回 (nil, nil) 表示地址上没有已验证的合约；error 仅用于传输层故障。
// 实现必须幂等，缓存层保证每个地址每次运行至多调用一次。
type Provider interface {
	FetchContractMetadata(ctx context.Context, address string) (*Metadata, error)
}
