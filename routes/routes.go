package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"iface-http-service/config"
	"iface-http-service/controllers"
	_ "iface-http-service/docs"
	"iface-http-service/middleware"
	"iface-http-service/services/container"
)

// SetupRouter 初始化并返回配置好的路由
func SetupRouter(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// 初始化 Gin
	r := gin.Default()

	// 添加 CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
	// 设置正确的Content-Type，确保UTF-8编码
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
		c.Next()
	})
	// 创建服务容器
	serviceContainer := container.NewServiceContainer(db, cfg)
	// 初始化中间件
	middleware.InitAuthMiddleware(cfg)
	// 添加 Swagger 文档路由
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 注册路由
	registerRoutes(r, serviceContainer)
	return r
}

// registerRoutes 配置所有API路由
func registerRoutes(
	r *gin.Engine,
	container *container.ServiceContainer,
) {
	// API 路由根路径
	api := r.Group("/api")
	// 注册公共路由
	registerPublicRoutes(api, container)
	// 注册需要认证的路由
	registerAuthenticatedRoutes(api, container)
}

// registerPublicRoutes 注册公共路由
func registerPublicRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	// 健康检查
	api.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	api.GET("/health", controllers.HandleHealthFunc(container, "check"))

	// 认证路由，登录接口按IP限流
	api.POST("/auth/login", middleware.IPRateLimiter(1, 5), controllers.HandleJWTFunc(container, "login"))
}

// registerAuthenticatedRoutes 注册需要认证的路由
func registerAuthenticatedRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	// 添加认证中间件
	auth := api.Group("/")
	auth.Use(middleware.AuthenticateAdmin())

	// 管理员路由
	auth.Group("/admins").GET("", controllers.HandleAdminFunc(container, "getAdmins"))
	auth.Group("/admins").GET("/:id", controllers.HandleAdminFunc(container, "getAdmin"))
	auth.Group("/admins").POST("", controllers.HandleAdminFunc(container, "createAdmin"))
	auth.Group("/admins").PUT("/:id", controllers.HandleAdminFunc(container, "updateAdmin"))
	auth.Group("/admins").DELETE("/:id", controllers.HandleAdminFunc(container, "deleteAdmin"))

	// 终端路由
	auth.Group("/terminals").GET("", controllers.HandleTerminalFunc(container, "getTerminals"))
	auth.Group("/terminals").GET("/:id", controllers.HandleTerminalFunc(container, "getTerminal"))
	auth.Group("/terminals").POST("", controllers.HandleTerminalFunc(container, "createTerminal"))
	auth.Group("/terminals").PUT("/:id", controllers.HandleTerminalFunc(container, "updateTerminal"))
	auth.Group("/terminals").DELETE("/:id", controllers.HandleTerminalFunc(container, "deleteTerminal"))
	auth.Group("/terminals").POST("/:id/test", controllers.HandleTerminalFunc(container, "testTerminal"))
	auth.Group("/terminals").PUT("/:id/credentials", controllers.HandleTerminalFunc(container, "upsertCredential"))
	auth.Group("/terminals").POST("/discovery", controllers.HandleTerminalFunc(container, "collectCandidates"))

	// 班级路由
	auth.Group("/classes").GET("", controllers.HandleClassFunc(container, "getClasses"))
	auth.Group("/classes").POST("", controllers.HandleClassFunc(container, "createClass"))
	auth.Group("/classes").PUT("/:id", controllers.HandleClassFunc(container, "updateClass"))
	auth.Group("/classes").DELETE("/:id", controllers.HandleClassFunc(container, "deleteClass"))

	// 学生路由
	auth.Group("/students").GET("", controllers.HandleStudentFunc(container, "getStudents"))
	auth.Group("/students").GET("/:id", controllers.HandleStudentFunc(container, "getStudent"))
	auth.Group("/students").PUT("/:id", controllers.HandleStudentFunc(container, "updateStudent"))
	auth.Group("/students").DELETE("/:id", controllers.HandleStudentFunc(container, "deleteStudent"))
	auth.Group("/students").GET("/:id/presence", controllers.HandleStudentFunc(container, "checkPresence"))
	auth.Group("/students").POST("/:id/sync", controllers.HandleStudentFunc(container, "syncStudent"))
	auth.Group("/students").GET("/:id/provisioning", controllers.HandleStudentFunc(container, "getProvisioning"))

	// 导入流水线路由
	auth.Group("/import").POST("/preview", controllers.HandleImportFunc(container, "preview"))
	auth.Group("/import").POST("", controllers.HandleImportFunc(container, "startImport"))
	auth.Group("/import").GET("/jobs", controllers.HandleImportFunc(container, "listJobs"))
	auth.Group("/import").GET("/jobs/:id", controllers.HandleImportFunc(container, "getJob"))
	auth.Group("/import").POST("/jobs/:id/retry", controllers.HandleImportFunc(container, "retryFailed"))
	auth.Group("/import").GET("/metrics", controllers.HandleImportFunc(container, "getMetrics"))

	// 审计日志路由
	auth.Group("/audit").GET("/logs", controllers.HandleAuditFunc(container, "queryLogs"))
}
