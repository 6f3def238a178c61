package main

import (
	"context"
	"flag"
	"time"

	"tracelens/internal/api"
	"tracelens/internal/config"
	"tracelens/internal/contracts"
	"tracelens/internal/renderer"
	"tracelens/internal/shutdown"
	"tracelens/internal/trace"

	"github.com/sirupsen/logrus"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "配置文件路径")
	port       = flag.Int("port", 8080, "API 服务端口")
	verbose    = flag.Bool("verbose", false, "详细输出")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	// 自动检测并加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("加载配置失败: %v", err)
	}

	// API 服务按请求的链切换 chainid，元数据查询默认走主网
	mainChain := cfg.Chains[0]
	provider := contracts.NewEtherscanClient(cfg.Etherscan, mainChain.ChainID, logger)
	cache := contracts.NewCache(provider, logger)

	var store *contracts.Store
	if cfg.Cache.Enable {
		store, err = contracts.NewStore(cfg.Cache.DBPath, logger)
		if err != nil {
			logger.Warnf("打开合约存储失败，使用内存缓存: %v", err)
		} else {
			cache.SetStore(store)
		}
	}

	pool := trace.NewClientPool(cfg.Chains, logger)
	fetcher := trace.NewFetcher(pool, logger)
	rd := renderer.NewWithLogging(cache, logger, cfg.Logging)

	// 创建API服务器
	server := api.NewServer(cfg, cache, rd, fetcher, logger, *port)

	// 注册优雅停机
	gs := shutdown.NewGracefulShutdown(30*time.Second, logger)
	gs.RegisterShutdownFunc("http_server", func(ctx context.Context) error {
		return server.Stop()
	}, shutdown.OrderStopAcceptingRequests)
	gs.RegisterShutdownFunc("rpc_pool", func(ctx context.Context) error {
		pool.Close()
		return nil
	}, shutdown.OrderCloseConnections)
	if store != nil {
		gs.RegisterShutdownFunc("contract_store", func(ctx context.Context) error {
			return store.Close()
		}, shutdown.OrderPersistCache)
	}

	// 启动服务器
	go func() {
		if err := server.Start(); err != nil {
			logger.Errorf("启动服务器失败: %v", err)
		}
	}()

	logger.Infof("API服务器已启动，监听端口: %d", *port)

	// 等待停机信号
	gs.WaitForShutdown()
	logger.Info("服务器已关闭")
}
