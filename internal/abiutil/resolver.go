package abiutil

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"tracelens/pkg/models"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

// abiEntry ABI JSON 中的单个条目
type abiEntry struct {
	Type    string     `json:"type"`
	Name    string     `json:"name"`
	Inputs  []abiParam `json:"inputs"`
	Outputs []abiParam `json:"outputs"`
}

// abiParam ABI 参数声明
type abiParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Selector 计算函数选择器：规范签名 name(type1,type2,...) 的 Keccak-256 哈希前 4 字节
func Selector(name string, inputTypes []string) string {
	signature := fmt.Sprintf("%s(%s)", name, strings.Join(inputTypes, ","))
	hash := crypto.Keccak256([]byte(signature))
	return "0x" + hex.EncodeToString(hash[:4])
}

// ResolveFunctions 解析 ABI JSON，建立选择器到函数描述的映射
//
// 非函数条目（event、error、constructor 等）被忽略；选择器冲突时后者覆盖前者；
// ABI 无法解析时返回空映射并记录日志，调用方降级为原始选择器展示。
func ResolveFunctions(abiJSON string, logger *logrus.Logger) map[string]*models.FunctionDescriptor {
	functions := make(map[string]*models.FunctionDescriptor)

	var entries []abiEntry
	if err := json.Unmarshal([]byte(abiJSON), &entries); err != nil {
		logger.Warnf("解析 ABI 失败: %v", err)
		return functions
	}

	for _, item := range entries {
		if item.Type != "function" {
			continue
		}

		inputTypes := make([]string, 0, len(item.Inputs))
		inputNames := make([]string, 0, len(item.Inputs))
		for _, in := range item.Inputs {
			inputTypes = append(inputTypes, in.Type)
			inputNames = append(inputNames, in.Name)
		}

		outputTypes := make([]string, 0, len(item.Outputs))
		outputNames := make([]string, 0, len(item.Outputs))
		for _, out := range item.Outputs {
			outputTypes = append(outputTypes, out.Type)
			outputNames = append(outputNames, out.Name)
		}

		selector := Selector(item.Name, inputTypes)
		if prev, exists := functions[selector]; exists {
			logger.Debugf("选择器 %s 冲突: %s 覆盖 %s", selector, item.Name, prev.Name)
		}

		functions[selector] = &models.FunctionDescriptor{
			Name:        item.Name,
			Selector:    selector,
			InputTypes:  inputTypes,
			InputNames:  inputNames,
			OutputTypes: outputTypes,
			OutputNames: outputNames,
		}
	}

	return functions
}
