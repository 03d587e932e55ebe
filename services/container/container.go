package container

import (
	"context"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"iface-http-service/config"
	"iface-http-service/services"
)

// ServiceContainer 管理所有服务的依赖注入
type ServiceContainer struct {
	db     *gorm.DB
	config *config.Config

	// 基础服务
	jwtService   *services.JWTService
	redisService *services.RedisService
	mqttService  services.InterfaceMQTTService

	// 终端接入层
	terminalClient    services.InterfaceTerminalClient
	credentialService services.InterfaceCredentialService

	// 业务服务
	adminService    *services.AdminService
	terminalService services.InterfaceTerminalService
	studentService  services.InterfaceStudentService
	classService    services.InterfaceClassService
	presenceService services.InterfacePresenceService
	syncService     services.InterfaceSyncService

	// 导入流水线
	facePool      *services.FacePool
	commitService services.InterfaceImportCommitService
	importService services.InterfaceImportService

	// 观测服务
	auditService   services.InterfaceAuditService
	metricsService services.InterfaceMetricsService

	mu sync.RWMutex
}

// NewServiceContainer 创建新的服务容器
func NewServiceContainer(db *gorm.DB, cfg *config.Config) *ServiceContainer {
	if db == nil {
		panic("数据库连接为空")
	}

	if cfg == nil {
		panic("配置为空")
	}

	container := &ServiceContainer{
		db:     db,
		config: cfg,
	}
	container.initializeServices()
	return container
}

// initializeServices 初始化所有服务
func (c *ServiceContainer) initializeServices() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 初始化基础服务
	c.jwtService = services.NewJWTService(c.config)
	c.redisService = services.NewRedisService(c.config)
	c.mqttService = services.NewMQTTService(c.config)

	// 测试Redis连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.redisService.Client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis连接测试失败: %v，幂等缓存和指标将退化到进程内", err)
	}

	// 初始化终端接入层
	c.terminalClient = services.NewTerminalAgentClient(c.config)
	c.credentialService = services.NewCredentialService(c.db, c.config)

	// 初始化业务服务
	c.adminService = services.NewAdminService(c.db, c.config)
	c.terminalService = services.NewTerminalService(c.db, c.config, c.terminalClient, c.credentialService)
	c.studentService = services.NewStudentService(c.db, c.config)
	c.classService = services.NewClassService(c.db, c.config)
	c.presenceService = services.NewPresenceService(c.db, c.config, c.terminalClient, c.credentialService, c.mqttService)
	c.syncService = services.NewSyncService(c.db, c.config, c.terminalClient)

	// 初始化观测服务
	c.auditService = services.NewAuditService(c.db, c.config)
	c.metricsService = services.NewMetricsService(c.redisService, c.config)

	// 初始化导入流水线
	c.facePool = services.NewFacePool(c.config, c.terminalClient, c.credentialService)
	c.commitService = services.NewImportCommitService(c.db, c.config, c.redisService)
	c.importService = services.NewImportService(
		c.db,
		c.config,
		c.commitService,
		c.syncService,
		c.facePool,
		c.mqttService,
		c.auditService,
		c.metricsService,
	)
}

// GetService 获取指定名称的服务
func (c *ServiceContainer) GetService(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "config":
		return c.config
	case "db":
		return c.db
	case "jwt":
		return c.jwtService
	case "redis":
		return c.redisService
	case "mqtt":
		return c.mqttService
	case "terminal_client":
		return c.terminalClient
	case "credential":
		return c.credentialService
	case "admin":
		return c.adminService
	case "terminal":
		return c.terminalService
	case "student":
		return c.studentService
	case "class":
		return c.classService
	case "presence":
		return c.presenceService
	case "sync":
		return c.syncService
	case "face_pool":
		return c.facePool
	case "import_commit":
		return c.commitService
	case "import":
		return c.importService
	case "audit":
		return c.auditService
	case "metrics":
		return c.metricsService
	default:
		return nil
	}
}

// GetDB 获取数据库连接
func (c *ServiceContainer) GetDB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}
