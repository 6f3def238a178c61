package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tracelens/internal/config"
	"tracelens/internal/contracts"
	traceerrors "tracelens/internal/errors"
	"tracelens/internal/renderer"
	"tracelens/internal/trace"
	"tracelens/internal/validation"
	"tracelens/pkg/models"
)

// Server API服务器
type Server struct {
	config       *config.Config
	cache        *contracts.Cache
	renderer     *renderer.Renderer
	fetcher      *trace.Fetcher
	validator    *validation.Validator
	errorHandler *traceerrors.ErrorHandler
	logger       *logrus.Logger
	logManager   *LogManager
	server       *http.Server
	port         int
}

// NewServer 创建新的API服务器
func NewServer(cfg *config.Config, cache *contracts.Cache, rd *renderer.Renderer, fetcher *trace.Fetcher, logger *logrus.Logger, port int) *Server {
	// 创建日志管理器
	logManager := NewLogManager(1000) // 最多保存1000条日志
	logger.AddHook(NewLogHook(logManager))

	return &Server{
		config:       cfg,
		cache:        cache,
		renderer:     rd,
		fetcher:      fetcher,
		validator:    validation.NewValidator(logger, false),
		errorHandler: traceerrors.NewErrorHandler(logger),
		logger:       logger,
		logManager:   logManager,
		port:         port,
	}
}

// Start 启动API服务器
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// 添加CORS中间件
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	s.setupRoutes(router)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: router,
	}

	s.logger.Infof("API服务器启动在端口 %d", s.port)
	return s.server.ListenAndServe()
}

// Stop 停止API服务器
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Shutdown(context.Background())
	}
	return nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(router *gin.Engine) {
	// 健康检查
	router.GET("/health", s.healthCheck)

	api := router.Group("/api/v1")
	{
		// trace 解析
		api.POST("/trace/parse", s.parseTrace)
		api.POST("/trace/render", s.renderTrace)

		// 缓存统计
		api.GET("/cache/stats", s.getCacheStats)

		// 配置查看
		api.GET("/config", s.getConfig)

		// 日志管理
		api.GET("/logs", s.getLogs)
		api.DELETE("/logs", s.clearLogs)
	}
}

// healthCheck 健康检查
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "tracelens-api",
	})
}

// parseTrace 拉取并渲染一笔交易的 trace
func (s *Server) parseTrace(c *gin.Context) {
	var req struct {
		Chain             string `json:"chain"`
		TxHash            string `json:"tx_hash"`
		IncludeStaticCall bool   `json:"include_static_call"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Chain == "" || req.TxHash == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chain 和 tx_hash 不能为空"})
		return
	}

	records, err := s.fetcher.FetchTrace(c.Request.Context(), req.Chain, req.TxHash)
	if err != nil {
		s.errorHandler.HandleError(c.Request.Context(), traceerrors.WrapError(err,
			traceerrors.ErrorTypeRPC, traceerrors.SeverityMedium,
			"TRACE_FETCH_FAILED", "拉取 trace 失败").WithTxHash(req.TxHash))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	result := s.validator.ValidateTrace(records)
	if !result.Valid {
		s.logger.Warnf("trace 数据校验未通过: %d 个错误", len(result.Errors))
	}

	lines := s.renderer.Render(c.Request.Context(), records, req.IncludeStaticCall)

	c.JSON(http.StatusOK, gin.H{
		"chain":        req.Chain,
		"tx_hash":      req.TxHash,
		"record_count": len(records),
		"lines":        lines,
		"warnings":     result.Warnings,
	})
}

// renderTrace 渲染调用方自带的 trace 记录
func (s *Server) renderTrace(c *gin.Context) {
	var req struct {
		Records           []*models.TraceRecord `json:"records"`
		IncludeStaticCall bool                  `json:"include_static_call"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lines := s.renderer.Render(c.Request.Context(), req.Records, req.IncludeStaticCall)

	c.JSON(http.StatusOK, gin.H{
		"record_count": len(req.Records),
		"lines":        lines,
	})
}

// getCacheStats 获取合约缓存统计
func (s *Server) getCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.cache.Stats())
}

// getConfig 获取配置
func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"config": s.config,
	})
}

// getLogs 获取日志
func (s *Server) getLogs(c *gin.Context) {
	level := c.Query("level")

	limit := 100 // 默认最新100条
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	logs := s.logManager.GetLogs(level, limit)

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"total": len(logs),
		"level": level,
	})
}

// clearLogs 清空日志
func (s *Server) clearLogs(c *gin.Context) {
	s.logManager.ClearLogs()

	c.JSON(http.StatusOK, gin.H{
		"message": "日志已清空",
	})
}
