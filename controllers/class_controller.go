package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"iface-http-service/services"
	"iface-http-service/services/container"
)

// ClassController 处理班级相关的请求
type ClassController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewClassController 创建一个新的班级控制器
func NewClassController(ctx *gin.Context, container *container.ServiceContainer) *ClassController {
	return &ClassController{
		Ctx:       ctx,
		Container: container,
	}
}

// ClassRequest 班级的创建/更新请求
type ClassRequest struct {
	Name  string `json:"name" example:"A"`
	Grade int    `json:"grade" example:"7"`
}

// HandleClassFunc 返回一个处理班级请求的Gin处理函数
func HandleClassFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewClassController(ctx, container)

		switch method {
		case "getClasses":
			controller.GetClasses()
		case "createClass":
			controller.CreateClass()
		case "updateClass":
			controller.UpdateClass()
		case "deleteClass":
			controller.DeleteClass()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// parseIDParam 解析路径中的班级ID
func (c *ClassController) parseIDParam() (uint, bool) {
	id, err := strconv.Atoi(c.Ctx.Param("id"))
	if err != nil || id <= 0 {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的班级ID",
			"data":    nil,
		})
		return 0, false
	}
	return uint(id), true
}

// 1. GetClasses 获取所有班级
// @Summary 获取所有班级
// @Tags class
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Class
// @Router /classes [get]
func (c *ClassController) GetClasses() {
	classService := c.Container.GetService("class").(services.InterfaceClassService)

	classes, err := classService.GetAllClasses()
	if err != nil {
		c.Ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取班级列表失败: " + err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "成功",
		"data":    classes,
	})
}

// 2. CreateClass 创建班级
// @Summary 创建班级
// @Tags class
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ClassRequest true "班级信息"
// @Success 200 {object} models.Class
// @Failure 400 {object} ErrorResponse
// @Router /classes [post]
func (c *ClassController) CreateClass() {
	var req ClassRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数",
			"data":    nil,
		})
		return
	}

	classService := c.Container.GetService("class").(services.InterfaceClassService)

	class, err := classService.CreateClass(req.Name, req.Grade)
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
		"data":    class,
	})
}

// 3. UpdateClass 更新班级
// @Summary 更新班级
// @Tags class
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "班级ID"
// @Param request body ClassRequest true "更新内容"
// @Success 200 {object} models.Class
// @Failure 400 {object} ErrorResponse
// @Router /classes/{id} [put]
func (c *ClassController) UpdateClass() {
	classID, ok := c.parseIDParam()
	if !ok {
		return
	}

	var req ClassRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数",
			"data":    nil,
		})
		return
	}

	classService := c.Container.GetService("class").(services.InterfaceClassService)

	class, err := classService.UpdateClass(classID, req.Name, req.Grade)
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
		"data":    class,
	})
}

// 4. DeleteClass 删除班级
// @Summary 删除班级
// @Tags class
// @Produce json
// @Security BearerAuth
// @Param id path string true "班级ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /classes/{id} [delete]
func (c *ClassController) DeleteClass() {
	classID, ok := c.parseIDParam()
	if !ok {
		return
	}

	classService := c.Container.GetService("class").(services.InterfaceClassService)

	if err := classService.DeleteClass(classID); err != nil {
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
