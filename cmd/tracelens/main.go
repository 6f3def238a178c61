package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tracelens/internal/config"
	"tracelens/internal/contracts"
	"tracelens/internal/output"
	"tracelens/internal/renderer"
	"tracelens/internal/trace"
	"tracelens/internal/validation"
	"tracelens/pkg/models"
)

var (
	// 基础参数
	chain      string
	txHash     string
	staticCall bool

	// 高级参数
	configFile string
	outputDir  string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tracelens",
		Short: "EVM交易trace解析工具",
		Long:  `把 trace_transaction 的原始调用记录解析为带合约名、函数名和解码参数的可读调用树`,
		RunE:  run,
	}

	// 基础参数
	rootCmd.Flags().StringVarP(&chain, "chain", "c", "BSC", "链名称 (ETH, BSC, POLYGON)")
	rootCmd.Flags().StringVarP(&txHash, "tx", "t", "", "交易哈希，不指定时解析本地 trace.json")
	rootCmd.Flags().BoolVarP(&staticCall, "static-call", "s", false, "输出中包含 STATICCALL 记录")

	// 高级参数
	rootCmd.Flags().StringVar(&configFile, "config", "configs/config.yaml", "配置文件路径")
	rootCmd.Flags().StringVar(&outputDir, "output", "./outputs", "输出目录")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "详细输出")

	// 缓存查询子命令
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "查看合约缓存状态",
		RunE:  showCache,
	}

	rootCmd.AddCommand(cacheCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "执行失败: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	// 加载配置
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	chainName := strings.ToUpper(chain)
	chainConfig, err := cfg.FindChain(chainName)
	if err != nil {
		return err
	}

	// 创建输出器
	outputter, err := output.NewOutputWithConfig(outputDir, cfg.Output.Format, cfg.Cache.SourceDir, cfg.Output.Kafka, logger)
	if err != nil {
		return fmt.Errorf("创建输出器失败: %w", err)
	}
	defer outputter.Close()

	// 组装合约缓存
	cache, store, err := buildCache(cfg, chainConfig, outputter, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	rd := renderer.NewWithLogging(cache, logger, cfg.Logging)
	ctx := context.Background()

	// 获取trace记录
	var records []*models.TraceRecord
	if txHash != "" {
		pool := trace.NewClientPool(cfg.Chains, logger)
		defer pool.Close()

		fetcher := trace.NewFetcher(pool, logger)
		records, err = fetcher.FetchTrace(ctx, chainName, txHash)
		if err != nil {
			return fmt.Errorf("拉取 trace 失败: %w", err)
		}

		// 原始数据先落盘，便于离线复查
		if err := outputter.WriteRawTrace(&models.TraceResponse{
			JSONRPC: "2.0",
			ID:      1,
			Result:  records,
		}); err != nil {
			logger.Warnf("保存原始 trace 失败: %v", err)
		}
	} else {
		localFile := "trace.json"
		if _, err := os.Stat(localFile); err != nil {
			logger.Info("未指定交易哈希且没有本地 trace.json")
			logger.Info("用法: tracelens -c BSC -t 0x... 或在当前目录放置 trace.json")
			return nil
		}

		records, err = trace.LoadTraceFile(localFile)
		if err != nil {
			return fmt.Errorf("加载本地 trace 失败: %w", err)
		}
		logger.Infof("从 %s 加载了 %d 条记录", localFile, len(records))
	}

	// 验证trace数据
	validator := validation.NewValidator(logger, false)
	result := validator.ValidateTrace(records)
	if !result.Valid {
		logger.Warnf("trace 数据校验未通过: %d 个错误，继续渲染", len(result.Errors))
	}

	// 渲染调用树
	lines := rd.Render(ctx, records, staticCall)

	rendered := &models.RenderedTrace{
		Chain:       chainName,
		TxHash:      txHash,
		Lines:       lines,
		RecordCount: len(records),
		GeneratedAt: time.Now(),
	}
	if err := outputter.WriteRenderedTrace(rendered); err != nil {
		return fmt.Errorf("保存渲染结果失败: %w", err)
	}

	// 终端预览前15行
	preview := lines
	if len(preview) > 15 {
		preview = preview[:15]
	}
	fmt.Println(strings.Repeat("=", 50))
	for _, line := range preview {
		fmt.Println(line)
	}
	if len(lines) > len(preview) {
		fmt.Printf("... 还有 %d 行，完整内容见输出文件\n", len(lines)-len(preview))
	}
	fmt.Println(strings.Repeat("=", 50))

	stats := cache.Stats()
	logger.Infof("合约缓存: 已解析 %v 个, 未验证 %v 个, 外部查询 %v 次",
		stats["resolved_contracts"], stats["absent_contracts"], stats["external_lookups"])

	return nil
}

// buildCache 组装合约元数据缓存及其持久化存储
func buildCache(cfg *config.Config, chainConfig *config.ChainConfig, outputter output.Output, logger *logrus.Logger) (*contracts.Cache, *contracts.Store, error) {
	provider := contracts.NewEtherscanClient(cfg.Etherscan, chainConfig.ChainID, logger)
	cache := contracts.NewCache(provider, logger)
	cache.SetSourceWriter(outputter)

	if !cfg.Cache.Enable {
		return cache, nil, nil
	}

	store, err := contracts.NewStore(cfg.Cache.DBPath, logger)
	if err != nil {
		// 存储不可用时退化为纯内存缓存
		logger.Warnf("打开合约存储失败，使用内存缓存: %v", err)
		return cache, nil, nil
	}

	cache.SetStore(store)
	return cache, store, nil
}

// showCache 显示合约缓存状态
func showCache(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	store, err := contracts.NewStore(cfg.Cache.DBPath, logger)
	if err != nil {
		return fmt.Errorf("打开合约存储失败: %w", err)
	}
	defer store.Close()

	fmt.Println("合约缓存状态")
	fmt.Println(strings.Repeat("=", 50))
	for key, value := range store.Stats() {
		fmt.Printf("%-20s: %v\n", key, value)
	}

	return nil
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}
