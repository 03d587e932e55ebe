package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"iface-http-service/models"
	"iface-http-service/services"
	"iface-http-service/services/container"
)

// AdminController 处理管理员相关的请求
type AdminController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAdminController 创建一个新的管理员控制器
func NewAdminController(ctx *gin.Context, container *container.ServiceContainer) *AdminController {
	return &AdminController{
		Ctx:       ctx,
		Container: container,
	}
}

// AdminRequest 创建管理员的请求
type AdminRequest struct {
	Username string `json:"username" binding:"required" example:"admin2"`
	Password string `json:"password" binding:"required" example:"secret123"`
	Email    string `json:"email" example:"admin2@example.com"`
	Phone    string `json:"phone" example:"13800000000"`
}

// HandleAdminFunc 返回一个处理管理员请求的Gin处理函数
func HandleAdminFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAdminController(ctx, container)

		switch method {
		case "getAdmins":
			controller.GetAdmins()
		case "getAdmin":
			controller.GetAdmin()
		case "createAdmin":
			controller.CreateAdmin()
		case "updateAdmin":
			controller.UpdateAdmin()
		case "deleteAdmin":
			controller.DeleteAdmin()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// parseIDParam 解析路径中的管理员ID
func (c *AdminController) parseIDParam() (uint, bool) {
	id, err := strconv.Atoi(c.Ctx.Param("id"))
	if err != nil || id <= 0 {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的管理员ID",
			"data":    nil,
		})
		return 0, false
	}
	return uint(id), true
}

// 1. GetAdmins 获取管理员列表
// @Summary 获取管理员列表
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param pageNum query int false "页码"
// @Param pageSize query int false "每页数量"
// @Success 200 {array} models.Admin
// @Router /admins [get]
func (c *AdminController) GetAdmins() {
	page, _ := strconv.Atoi(c.Ctx.DefaultQuery("pageNum", "1"))
	pageSize, _ := strconv.Atoi(c.Ctx.DefaultQuery("pageSize", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	adminService := c.Container.GetService("admin").(*services.AdminService)

	admins, total, err := adminService.GetAllAdmins(page, pageSize)
	if err != nil {
		c.Ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取管理员列表失败: " + err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "成功",
		"data": gin.H{
			"list":  admins,
			"total": total,
		},
	})
}

// 2. GetAdmin 获取单个管理员
// @Summary 获取单个管理员
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "管理员ID"
// @Success 200 {object} models.Admin
// @Failure 404 {object} ErrorResponse
// @Router /admins/{id} [get]
func (c *AdminController) GetAdmin() {
	adminID, ok := c.parseIDParam()
	if !ok {
		return
	}

	adminService := c.Container.GetService("admin").(*services.AdminService)

	admin, err := adminService.GetAdminByID(adminID)
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
		"data":    admin,
	})
}

// 3. CreateAdmin 创建管理员
// @Summary 创建管理员
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AdminRequest true "管理员信息"
// @Success 200 {object} models.Admin
// @Failure 400 {object} ErrorResponse
// @Router /admins [post]
func (c *AdminController) CreateAdmin() {
	var req AdminRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	adminService := c.Container.GetService("admin").(*services.AdminService)

	admin := models.Admin{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Phone:    req.Phone,
	}
	if err := adminService.CreateAdmin(&admin); err != nil {
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
		"data":    admin,
	})
}

// 4. UpdateAdmin 更新管理员
// @Summary 更新管理员
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "管理员ID"
// @Param request body map[string]interface{} true "更新内容"
// @Success 200 {object} models.Admin
// @Failure 400 {object} ErrorResponse
// @Router /admins/{id} [put]
func (c *AdminController) UpdateAdmin() {
	adminID, ok := c.parseIDParam()
	if !ok {
		return
	}

	var updates map[string]interface{}
	if err := c.Ctx.ShouldBindJSON(&updates); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数",
			"data":    nil,
		})
		return
	}

	adminService := c.Container.GetService("admin").(*services.AdminService)

	admin, err := adminService.UpdateAdmin(adminID, updates)
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
		"data":    admin,
	})
}

// 5. DeleteAdmin 删除管理员
// @Summary 删除管理员
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "管理员ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /admins/{id} [delete]
func (c *AdminController) DeleteAdmin() {
	adminID, ok := c.parseIDParam()
	if !ok {
		return
	}

	adminService := c.Container.GetService("admin").(*services.AdminService)

	if err := adminService.DeleteAdmin(adminID); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
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
