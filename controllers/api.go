package controllers

import (
	"net/http"
	"time"

	"sapcontrol-keeper/internal/config"
	"sapcontrol-keeper/internal/env"
	"sapcontrol-keeper/internal/host"
	"sapcontrol-keeper/internal/logger"
	"sapcontrol-keeper/internal/middleware"
	"sapcontrol-keeper/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIController struct {
	version   string
	startTime time.Time
	facts     host.Facts
}

/**
 * Create new API controller instance
 * @param {string} version - Version reported by /healthz
 * @param {host.Facts} facts - Facts of the local host
 * @returns {*APIController} New API controller instance
 * @example
 * controller := controllers.NewAPIController(version, host.NewSystemFacts())
 */
func NewAPIController(version string, facts host.Facts) *APIController {
	return &APIController{
		version:   version,
		startTime: time.Now(),
		facts:     facts,
	}
}

/**
 * Register all API routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - Registers routes for:
 *   - Configuration reload
 *   - Readiness probe
 *   - Prometheus metrics
 */
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.POST(apiPrefix+"/reload", a.ReloadConfig)
	r.GET("/healthz", a.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// @Summary 重新加载配置
// @Description 重新加载应用配置文件
// @Tags Config
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Router /sapctl/api/v1/reload [post]
func (a *APIController) ReloadConfig(c *gin.Context) {
	if err := config.ReloadConfig(env.ConfigPath); err != nil {
		c.JSON(http.StatusInternalServerError, &models.ErrorResponse{
			Code:  "config.reload_failed",
			Error: "Failed to reload configuration: " + err.Error(),
		})
		return
	}
	logger.InitLoggerWithMode(&config.Config.Log, env.Daemon)

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Configuration reloaded successfully",
	})
}

// @Summary 业务就绪探针
// @Description 返回服务版本、启动时间、运行时长和本机FQDN
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	fqdn, err := a.facts.FQDN(c.Request.Context())
	if err != nil {
		logger.Warnf("Cannot determine FQDN: %v", err)
	}
	c.JSON(http.StatusOK, &models.HealthResponse{
		Version:   a.version,
		StartTime: a.startTime.Format(time.RFC3339),
		Status:    "UP",
		Uptime:    time.Since(a.startTime).Round(time.Second).String(),
		Host:      fqdn,

		TotalRequests: middleware.GetTotalRequests(),
		ErrorRequests: middleware.GetErrorRequests(),
	})
}
