package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"iface-http-service/services"
	"iface-http-service/services/container"
)

// AuditController 处理审计日志查询请求
type AuditController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAuditController 创建一个新的审计控制器
func NewAuditController(ctx *gin.Context, container *container.ServiceContainer) *AuditController {
	return &AuditController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleAuditFunc 返回一个处理审计请求的Gin处理函数
func HandleAuditFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAuditController(ctx, container)

		switch method {
		case "queryLogs":
			controller.QueryLogs()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// 1. QueryLogs 查询审计日志
// @Summary 查询审计日志
// @Description 按级别、阶段、任务、关键字和时间范围分页查询审计日志
// @Tags audit
// @Produce json
// @Security BearerAuth
// @Param level query string false "日志级别 INFO/WARN/ERROR"
// @Param stage query string false "阶段关键字"
// @Param jobId query string false "导入任务ID"
// @Param q query string false "消息关键字"
// @Param from query string false "起始时间 RFC3339"
// @Param to query string false "结束时间 RFC3339"
// @Param pageNum query int false "页码"
// @Param pageSize query int false "每页数量"
// @Success 200 {array} models.ProvisioningLog
// @Failure 500 {object} ErrorResponse
// @Router /audit/logs [get]
func (c *AuditController) QueryLogs() {
	var query services.AuditQuery
	if err := c.Ctx.ShouldBindQuery(&query); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的查询参数",
			"data":    nil,
		})
		return
	}

	auditService := c.Container.GetService("audit").(services.InterfaceAuditService)

	logs, total, err := auditService.Query(query)
	if err != nil {
		c.Ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "查询审计日志失败: " + err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "成功",
		"data": gin.H{
			"list":  logs,
			"total": total,
		},
	})
}
