package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"iface-http-service/models"
	"iface-http-service/services"
	"iface-http-service/services/container"
)

// InterfaceTerminalController 定义终端控制器接口
type InterfaceTerminalController interface {
	GetTerminals()
	GetTerminal()
	CreateTerminal()
	UpdateTerminal()
	DeleteTerminal()
	TestTerminal()
	UpsertCredential()
	CollectCandidates()
}

// TerminalController 处理终端相关的请求
type TerminalController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewTerminalController 创建一个新的终端控制器
func NewTerminalController(ctx *gin.Context, container *container.ServiceContainer) *TerminalController {
	return &TerminalController{
		Ctx:       ctx,
		Container: container,
	}
}

// DiscoveryRequest 候选人发现请求
type DiscoveryRequest struct {
	TerminalIDs []uint `json:"terminal_ids" binding:"required" example:"[1,2]"`
}

// HandleTerminalFunc 返回一个处理终端请求的Gin处理函数
func HandleTerminalFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewTerminalController(ctx, container)

		switch method {
		case "getTerminals":
			controller.GetTerminals()
		case "getTerminal":
			controller.GetTerminal()
		case "createTerminal":
			controller.CreateTerminal()
		case "updateTerminal":
			controller.UpdateTerminal()
		case "deleteTerminal":
			controller.DeleteTerminal()
		case "testTerminal":
			controller.TestTerminal()
		case "upsertCredential":
			controller.UpsertCredential()
		case "collectCandidates":
			controller.CollectCandidates()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// parseIDParam 解析路径中的ID参数
func (c *TerminalController) parseIDParam() (uint, bool) {
	id, err := strconv.Atoi(c.Ctx.Param("id"))
	if err != nil || id <= 0 {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的终端ID",
			"data":    nil,
		})
		return 0, false
	}
	return uint(id), true
}

// 1. GetTerminals 获取终端列表
// @Summary 获取所有终端
// @Description 分页获取所有终端的列表
// @Tags terminal
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param pageNum query int false "页码"
// @Param pageSize query int false "每页数量"
// @Success 200 {array} models.Terminal
// @Failure 500 {object} ErrorResponse
// @Router /terminals [get]
func (c *TerminalController) GetTerminals() {
	var query models.PaginationQuery
	if err := c.Ctx.ShouldBindQuery(&query); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的分页参数",
			"data":    nil,
		})
		return
	}

	terminalService := c.Container.GetService("terminal").(services.InterfaceTerminalService)

	terminals, total, err := terminalService.GetAllTerminals(query)
	if err != nil {
		c.Ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取终端列表失败: " + err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "成功",
		"data": gin.H{
			"list":       terminals,
			"pagination": models.NewPaginationResult(int(total), query.PageNum, query.PageSize),
		},
	})
}

// 2. GetTerminal 获取单个终端详情
// @Summary 获取单个终端
// @Description 根据ID获取终端信息
// @Tags terminal
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "终端ID"
// @Success 200 {object} models.Terminal
// @Failure 404 {object} ErrorResponse
// @Router /terminals/{id} [get]
func (c *TerminalController) GetTerminal() {
	terminalID, ok := c.parseIDParam()
	if !ok {
		return
	}

	terminalService := c.Container.GetService("terminal").(services.InterfaceTerminalService)

	terminal, err := terminalService.GetTerminalByID(terminalID)
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
		"data":    terminal,
	})
}

// 3. CreateTerminal 创建新终端
// @Summary 创建新终端
// @Description 创建一个新的人脸识别终端
// @Tags terminal
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateTerminalRequest true "终端信息"
// @Success 200 {object} models.Terminal
// @Failure 400 {object} ErrorResponse
// @Router /terminals [post]
func (c *TerminalController) CreateTerminal() {
	var req services.CreateTerminalRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	terminalService := c.Container.GetService("terminal").(services.InterfaceTerminalService)

	terminal, err := terminalService.CreateTerminal(req)
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
		"message": "创建成功",
		"data":    terminal,
	})
}

// 4. UpdateTerminal 更新终端信息
// @Summary 更新终端
// @Description 更新终端的名称、位置和启用状态
// @Tags terminal
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "终端ID"
// @Param request body services.UpdateTerminalRequest true "更新内容"
// @Success 200 {object} models.Terminal
// @Failure 400 {object} ErrorResponse
// @Router /terminals/{id} [put]
func (c *TerminalController) UpdateTerminal() {
	terminalID, ok := c.parseIDParam()
	if !ok {
		return
	}

	var req services.UpdateTerminalRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	terminalService := c.Container.GetService("terminal").(services.InterfaceTerminalService)

	terminal, err := terminalService.UpdateTerminal(terminalID, req)
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
		"message": "更新成功",
		"data":    terminal,
	})
}

// 5. DeleteTerminal 删除终端
// @Summary 删除终端
// @Description 删除终端及其本地凭据
// @Tags terminal
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "终端ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /terminals/{id} [delete]
func (c *TerminalController) DeleteTerminal() {
	terminalID, ok := c.parseIDParam()
	if !ok {
		return
	}

	terminalService := c.Container.GetService("terminal").(services.InterfaceTerminalService)

	if err := terminalService.DeleteTerminal(terminalID); err != nil {
		c.Ctx.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "删除成功",
		"data":    nil,
	})
}

// 6. TestTerminal 测试终端连通性
// @Summary 测试终端连通性
// @Description 用本地凭据测试终端连接并刷新在线状态
// @Tags terminal
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "终端ID"
// @Success 200 {object} models.Terminal
// @Failure 400 {object} ErrorResponse
// @Router /terminals/{id}/test [post]
func (c *TerminalController) TestTerminal() {
	terminalID, ok := c.parseIDParam()
	if !ok {
		return
	}

	terminalService := c.Container.GetService("terminal").(services.InterfaceTerminalService)

	terminal, err := terminalService.TestTerminal(c.Ctx.Request.Context(), terminalID)
	if err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
			"data":    terminal,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "终端在线",
		"data":    terminal,
	})
}

// 7. UpsertCredential 写入终端本地凭据
// @Summary 写入终端凭据
// @Description 创建或更新终端的本地连接凭据，凭据不会出现在任何响应中
// @Tags terminal
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "终端ID"
// @Param request body services.UpsertCredentialRequest true "凭据信息"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /terminals/{id}/credentials [put]
func (c *TerminalController) UpsertCredential() {
	terminalID, ok := c.parseIDParam()
	if !ok {
		return
	}

	var req services.UpsertCredentialRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	credentialService := c.Container.GetService("credential").(services.InterfaceCredentialService)

	cred, err := credentialService.Upsert(terminalID, req.Host, req.Username, req.Password, req.ExpiresAt)
	if err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	// 凭据内容不回显，只返回过期时间
	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "凭据已保存",
		"data": gin.H{
			"terminal_id": terminalID,
			"expires_at":  cred.CredentialsExpiresAt,
		},
	})
}

// 8. CollectCandidates 从终端发现候选人
// @Summary 候选人发现
// @Description 从指定终端分页拉取全部人员并做归一化去重
// @Tags terminal
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DiscoveryRequest true "发现终端列表"
// @Success 200 {object} services.DedupeResult
// @Failure 400 {object} ErrorResponse
// @Router /terminals/discovery [post]
func (c *TerminalController) CollectCandidates() {
	var req DiscoveryRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	terminalService := c.Container.GetService("terminal").(services.InterfaceTerminalService)

	result, err := terminalService.CollectCandidates(c.Ctx.Request.Context(), req.TerminalIDs)
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
		"message": "成功",
		"data":    result,
	})
}
