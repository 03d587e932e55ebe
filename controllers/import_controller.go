package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"iface-http-service/models"
	"iface-http-service/services"
	"iface-http-service/services/container"
)

// InterfaceImportController 定义导入控制器接口
type InterfaceImportController interface {
	Preview()
	StartImport()
	RetryFailed()
	GetJob()
	ListJobs()
	GetMetrics()
}

// ImportController 处理导入流水线相关的请求
type ImportController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewImportController 创建一个新的导入控制器
func NewImportController(ctx *gin.Context, container *container.ServiceContainer) *ImportController {
	return &ImportController{
		Ctx:       ctx,
		Container: container,
	}
}

// ImportRequest 启动导入的请求
type ImportRequest struct {
	Rows        []services.ImportRowInput `json:"rows" binding:"required"`
	SyncMode    string                    `json:"sync_mode" example:"current"` // none, current, all, selected
	TerminalIDs []uint                    `json:"terminal_ids" example:"[1,2]"`
	PullFaces   bool                      `json:"pull_faces" example:"true"`
}

// PreviewRequest 导入预检的请求
type PreviewRequest struct {
	Rows []services.ImportRowInput `json:"rows" binding:"required"`
}

// HandleImportFunc 返回一个处理导入请求的Gin处理函数
func HandleImportFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewImportController(ctx, container)

		switch method {
		case "preview":
			controller.Preview()
		case "startImport":
			controller.StartImport()
		case "retryFailed":
			controller.RetryFailed()
		case "getJob":
			controller.GetJob()
		case "listJobs":
			controller.ListJobs()
		case "getMetrics":
			controller.GetMetrics()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// 1. Preview 导入预检
// @Summary 导入预检
// @Description 只读预检一批导入行，给出每行的处理分类和计数汇总
// @Tags import
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PreviewRequest true "预检行"
// @Success 200 {object} services.ImportPreviewResult
// @Failure 400 {object} ErrorResponse
// @Router /import/preview [post]
func (c *ImportController) Preview() {
	var req PreviewRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	commitService := c.Container.GetService("import_commit").(services.InterfaceImportCommitService)

	result, err := commitService.Preview(req.Rows)
	if err != nil {
		c.Ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "预检失败: " + err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "成功",
		"data":    result,
	})
}

// 2. StartImport 启动导入运行
// @Summary 启动导入
// @Description 对一批行执行完整流水线：人脸拉取、落库提交、终端下发
// @Tags import
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ImportRequest true "导入行和选项"
// @Success 200 {object} services.ImportRunSummary
// @Failure 400 {object} ErrorResponse
// @Router /import [post]
func (c *ImportController) StartImport() {
	var req ImportRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	importService := c.Container.GetService("import").(services.InterfaceImportService)

	summary, err := importService.StartImport(c.Ctx.Request.Context(), req.Rows, services.ImportOptions{
		SyncMode:            services.SyncMode(req.SyncMode),
		SelectedTerminalIDs: req.TerminalIDs,
		PullFaces:           req.PullFaces,
	})
	if err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "导入完成",
		"data":    summary,
	})
}

// 3. RetryFailed 重试失败行
// @Summary 重试失败行
// @Description 重试一次失败运行中的失败行，复用原任务的幂等键
// @Tags import
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "任务ID"
// @Param request body ImportRequest true "重试行和选项"
// @Success 200 {object} services.ImportRunSummary
// @Failure 400 {object} ErrorResponse
// @Router /import/jobs/{id}/retry [post]
func (c *ImportController) RetryFailed() {
	jobID := c.Ctx.Param("id")
	if jobID == "" {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的任务ID",
			"data":    nil,
		})
		return
	}

	var req ImportRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	importService := c.Container.GetService("import").(services.InterfaceImportService)

	summary, err := importService.RetryFailed(c.Ctx.Request.Context(), jobID, req.Rows, services.ImportOptions{
		SyncMode:            services.SyncMode(req.SyncMode),
		SelectedTerminalIDs: req.TerminalIDs,
		PullFaces:           req.PullFaces,
	})
	if err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "重试完成",
		"data":    summary,
	})
}

// 4. GetJob 获取导入任务
// @Summary 获取导入任务
// @Description 根据ID获取导入任务的状态和计数
// @Tags import
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "任务ID"
// @Success 200 {object} models.ImportJob
// @Failure 404 {object} ErrorResponse
// @Router /import/jobs/{id} [get]
func (c *ImportController) GetJob() {
	jobID := c.Ctx.Param("id")

	importService := c.Container.GetService("import").(services.InterfaceImportService)

	job, err := importService.GetJob(jobID)
	if err != nil {
		c.Ctx.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "成功",
		"data":    job,
	})
}

// 5. ListJobs 分页列出导入任务
// @Summary 列出导入任务
// @Description 按开始时间倒序分页列出导入任务
// @Tags import
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param pageNum query int false "页码"
// @Param pageSize query int false "每页数量"
// @Success 200 {array} models.ImportJob
// @Failure 500 {object} ErrorResponse
// @Router /import/jobs [get]
func (c *ImportController) ListJobs() {
	var query models.PaginationQuery
	if err := c.Ctx.ShouldBindQuery(&query); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的分页参数",
			"data":    nil,
		})
		return
	}

	importService := c.Container.GetService("import").(services.InterfaceImportService)

	jobs, total, err := importService.ListJobs(query)
	if err != nil {
		c.Ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取任务列表失败: " + err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "成功",
		"data": gin.H{
			"list":  jobs,
			"total": total,
		},
	})
}

// 6. GetMetrics 获取导入指标
// @Summary 获取导入指标
// @Description 获取导入子系统的累计计数和派生比率
// @Tags import
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.ImportMetricsSnapshot
// @Router /import/metrics [get]
func (c *ImportController) GetMetrics() {
	metricsService := c.Container.GetService("metrics").(services.InterfaceMetricsService)

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "成功",
		"data":    metricsService.Snapshot(),
	})
}
