package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"iface-http-service/services"
	"iface-http-service/services/container"
)

// InterfaceStudentController 定义学生控制器接口
type InterfaceStudentController interface {
	GetStudents()
	GetStudent()
	UpdateStudent()
	DeleteStudent()
	CheckPresence()
	SyncStudent()
	GetProvisioning()
}

// StudentController 处理学生相关的请求
type StudentController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewStudentController 创建一个新的学生控制器
func NewStudentController(ctx *gin.Context, container *container.ServiceContainer) *StudentController {
	return &StudentController{
		Ctx:       ctx,
		Container: container,
	}
}

// SyncStudentRequest 手动下发请求
type SyncStudentRequest struct {
	SyncMode    string `json:"sync_mode" binding:"required" example:"all"` // none, current, all, selected
	TerminalIDs []uint `json:"terminal_ids" example:"[1,2]"`
}

// HandleStudentFunc 返回一个处理学生请求的Gin处理函数
func HandleStudentFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewStudentController(ctx, container)

		switch method {
		case "getStudents":
			controller.GetStudents()
		case "getStudent":
			controller.GetStudent()
		case "updateStudent":
			controller.UpdateStudent()
		case "deleteStudent":
			controller.DeleteStudent()
		case "checkPresence":
			controller.CheckPresence()
		case "syncStudent":
			controller.SyncStudent()
		case "getProvisioning":
			controller.GetProvisioning()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// parseIDParam 解析路径中的学生ID
func (c *StudentController) parseIDParam() (uint, bool) {
	id, err := strconv.Atoi(c.Ctx.Param("id"))
	if err != nil || id <= 0 {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的学生ID",
			"data":    nil,
		})
		return 0, false
	}
	return uint(id), true
}

// 1. GetStudents 获取学生列表
// @Summary 获取学生列表
// @Description 按关键字和班级分页获取学生列表
// @Tags student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param q query string false "姓名或学号关键字"
// @Param classId query int false "班级ID"
// @Param pageNum query int false "页码"
// @Param pageSize query int false "每页数量"
// @Success 200 {array} models.Student
// @Failure 500 {object} ErrorResponse
// @Router /students [get]
func (c *StudentController) GetStudents() {
	var query services.StudentQuery
	if err := c.Ctx.ShouldBindQuery(&query); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的查询参数",
			"data":    nil,
		})
		return
	}

	studentService := c.Container.GetService("student").(services.InterfaceStudentService)

	students, total, err := studentService.GetAllStudents(query)
	if err != nil {
		c.Ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取学生列表失败: " + err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "成功",
		"data": gin.H{
			"list":  students,
			"total": total,
		},
	})
}

// 2. GetStudent 获取单个学生详情
// @Summary 获取学生详情
// @Description 根据ID获取学生档案及登记状态
// @Tags student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "学生ID"
// @Success 200 {object} models.Student
// @Failure 404 {object} ErrorResponse
// @Router /students/{id} [get]
func (c *StudentController) GetStudent() {
	studentID, ok := c.parseIDParam()
	if !ok {
		return
	}

	studentService := c.Container.GetService("student").(services.InterfaceStudentService)

	student, err := studentService.GetStudentByID(studentID)
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
		"data":    student,
	})
}

// 3. UpdateStudent 更新学生档案
// @Summary 更新学生档案
// @Description 更新学生的基本信息，学号不可修改
// @Tags student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "学生ID"
// @Param request body services.UpdateStudentRequest true "更新内容"
// @Success 200 {object} models.Student
// @Failure 400 {object} ErrorResponse
// @Router /students/{id} [put]
func (c *StudentController) UpdateStudent() {
	studentID, ok := c.parseIDParam()
	if !ok {
		return
	}

	var req services.UpdateStudentRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	studentService := c.Container.GetService("student").(services.InterfaceStudentService)

	student, err := studentService.UpdateStudent(studentID, req)
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
		"data":    student,
	})
}

// 4. DeleteStudent 删除学生
// @Summary 删除学生
// @Description 删除学生档案及其登记记录
// @Tags student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "学生ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /students/{id} [delete]
func (c *StudentController) DeleteStudent() {
	studentID, ok := c.parseIDParam()
	if !ok {
		return
	}

	studentService := c.Container.GetService("student").(services.InterfaceStudentService)

	if err := studentService.DeleteStudent(studentID); err != nil {
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

// 5. CheckPresence 在线存在性检查
// @Summary 在线存在性检查
// @Description 并发探测学生在各启用终端上的实际登记状态
// @Tags student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "学生ID"
// @Success 200 {object} services.PresenceReport
// @Failure 404 {object} ErrorResponse
// @Router /students/{id}/presence [get]
func (c *StudentController) CheckPresence() {
	studentID, ok := c.parseIDParam()
	if !ok {
		return
	}

	presenceService := c.Container.GetService("presence").(services.InterfacePresenceService)

	report, err := presenceService.CheckStudent(c.Ctx.Request.Context(), studentID)
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
		"data":    report,
	})
}

// 6. SyncStudent 手动下发学生到终端
// @Summary 手动下发
// @Description 把学生的登记记录下发到指定模式解析出的终端
// @Tags student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "学生ID"
// @Param request body SyncStudentRequest true "下发模式"
// @Success 200 {array} services.TerminalSyncResult
// @Failure 400 {object} ErrorResponse
// @Router /students/{id}/sync [post]
func (c *StudentController) SyncStudent() {
	studentID, ok := c.parseIDParam()
	if !ok {
		return
	}

	var req SyncStudentRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	syncService := c.Container.GetService("sync").(services.InterfaceSyncService)

	targets, err := syncService.ResolveTargets(services.SyncMode(req.SyncMode), 0, req.TerminalIDs)
	if err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}
	if len(targets) == 0 {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "没有解析出下发目标终端",
			"data":    nil,
		})
		return
	}

	results, syncErr := syncService.SyncRecord(c.Ctx.Request.Context(), studentID, targets)
	if syncErr != nil {
		c.Ctx.JSON(http.StatusOK, gin.H{
			"code":    1,
			"message": syncErr.Error(),
			"data":    results,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "下发成功",
		"data":    results,
	})
}

// 7. GetProvisioning 获取学生的登记记录
// @Summary 获取登记记录
// @Description 获取学生的登记记录及各终端配对状态
// @Tags student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "学生ID"
// @Success 200 {object} models.ProvisioningRecord
// @Failure 404 {object} ErrorResponse
// @Router /students/{id}/provisioning [get]
func (c *StudentController) GetProvisioning() {
	studentID, ok := c.parseIDParam()
	if !ok {
		return
	}

	syncService := c.Container.GetService("sync").(services.InterfaceSyncService)

	record, err := syncService.GetRecordByStudent(studentID)
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
		"data":    record,
	})
}
