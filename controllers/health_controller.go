package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"iface-http-service/services"
	"iface-http-service/services/container"
)

// HealthController 处理健康检查请求
type HealthController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewHealthController 创建一个新的健康检查控制器
func NewHealthController(ctx *gin.Context, container *container.ServiceContainer) *HealthController {
	return &HealthController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleHealthFunc 返回一个处理健康检查请求的Gin处理函数
func HandleHealthFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewHealthController(ctx, container)

		switch method {
		case "check":
			controller.Check()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// 1. Check 健康检查
// @Summary 健康检查
// @Description 检查服务及其依赖(数据库、Redis、MQTT)的状态
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (c *HealthController) Check() {
	status := gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}

	// 数据库状态
	dbStatus := "ok"
	sqlDB, err := c.Container.GetDB().DB()
	if err != nil || sqlDB.Ping() != nil {
		dbStatus = "down"
	}
	status["database"] = dbStatus

	// Redis状态
	redisStatus := "ok"
	redisService := c.Container.GetService("redis").(*services.RedisService)
	if err := redisService.Client.Ping(redisService.Ctx).Err(); err != nil {
		redisStatus = "down"
	}
	status["redis"] = redisStatus

	// MQTT状态
	mqttStatus := "ok"
	mqttService := c.Container.GetService("mqtt").(services.InterfaceMQTTService)
	if !mqttService.IsConnected() {
		mqttStatus = "down"
	}
	status["mqtt"] = mqttStatus

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "成功",
		"data":    status,
	})
}
