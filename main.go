// @title           iFace HTTP Service API
// @version         1.0
// @description     Student enrollment and reconciliation service for biometric face terminals
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Enter the token with the `Bearer: ` prefix
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"iface-http-service/config"
	"iface-http-service/models"
	"iface-http-service/routes"
)

func main() {
	// 初始化日志配置
	if err := config.SetupLogger(); err != nil {
		fmt.Printf("初始化日志配置失败: %v\n", err)
		os.Exit(1)
	}

	// 加载.env文件
	if err := godotenv.Load(); err != nil {
		config.Warning("无法加载.env文件: %v", err)
		// 即使加载失败也继续执行，可能环境变量已经通过其他方式设置
	} else {
		config.Info("成功加载.env文件")
	}

	// 获取配置
	cfg := config.GetConfig()

	// 连接数据库
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("无法连接数据库: %v", err)
	}

	// 根据配置执行不同的数据库操作
	if cfg.DBMigrationMode == "drop" {
		// 删除并重建表
		log.Println("警告: 在drop模式下运行，将删除并重建所有表")
		err = dropAndRecreateTables(db)
		if err != nil {
			log.Fatalf("删除并重建表失败: %v", err)
		}
	} else if cfg.DBMigrationMode == "alter" {
		// 执行高级迁移，先清理历史外键约束再做标准迁移
		log.Println("在alter模式下运行，将修改表结构以匹配模型")
		err = advancedMigrate(db, cfg)
		if err != nil {
			log.Fatalf("高级迁移失败: %v", err)
		}
	} else {
		// 默认AutoMigrate，只会添加新列和新表，不会删除或修改列
		log.Println("在标准模式下运行，将只添加新列和新表")
		if err := autoMigrate(db); err != nil {
			log.Fatalf("自动迁移失败: %v", err)
		}
	}

	// 确保系统中有管理员账户
	ensureAdminExists(db, cfg)

	// 初始化路由
	r := routes.SetupRouter(db, cfg)

	// 获取端口配置
	port := cfg.ServerPort
	if port == "" {
		port = "8080" // 默认端口
	}

	// 启动服务器
	config.Info("服务器启动在: http://localhost:%s", port)
	if err := r.Run(":" + port); err != nil {
		config.Error("启动服务器失败: %v", err)
		os.Exit(1)
	}
}

// initDB 初始化数据库连接
func initDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.GetDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	fmt.Println("Database connection established")
	return db, nil
}

// autoMigrate 自动迁移所有模型（只添加新列和新表）
func autoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Admin{},
		&models.Class{},
		&models.Student{},
		&models.Terminal{},
		&models.TerminalCredential{},
		&models.ProvisioningRecord{},
		&models.ProvisioningDeviceLink{},
		&models.ImportJob{},
		&models.ProvisioningLog{},
	)

	if err != nil {
		return err
	}

	fmt.Println("Database migration completed")
	return nil
}

// advancedMigrate 执行高级迁移：清理历史外键约束后再做标准迁移
func advancedMigrate(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB connection: %w", err)
	}

	// 禁用外键约束检查
	_, err = sqlDB.Exec("SET FOREIGN_KEY_CHECKS = 0")
	if err != nil {
		log.Printf("禁用外键约束检查失败: %v", err)
	}
	defer sqlDB.Exec("SET FOREIGN_KEY_CHECKS = 1")

	// 查询所有外键约束
	rows, err := sqlDB.Query(`
		SELECT CONSTRAINT_NAME, TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS
		WHERE CONSTRAINT_TYPE = 'FOREIGN KEY'
		AND TABLE_SCHEMA = ?
	`, cfg.DBName)

	if err != nil {
		log.Printf("查询外键约束失败: %v", err)
	} else {
		defer rows.Close()

		// 删除所有找到的外键约束
		for rows.Next() {
			var constraintName, tableName string
			if err := rows.Scan(&constraintName, &tableName); err != nil {
				log.Printf("扫描外键约束信息失败: %v", err)
				continue
			}

			log.Printf("删除外键约束: %s 从表 %s", constraintName, tableName)
			_, err = sqlDB.Exec(fmt.Sprintf("ALTER TABLE `%s` DROP FOREIGN KEY `%s`",
				tableName, constraintName))
			if err != nil {
				log.Printf("删除外键约束失败: %v", err)
			}
		}
	}

	// 执行标准AutoMigrate以添加新列和新表
	return autoMigrate(db)
}

// dropAndRecreateTables 删除并重建所有表
func dropAndRecreateTables(db *gorm.DB) error {
	// 警告: 这将删除所有数据
	log.Println("警告: 正在删除并重建所有表，所有数据将丢失")

	// 禁用外键检查以允许删除表
	db.Exec("SET FOREIGN_KEY_CHECKS = 0")
	defer db.Exec("SET FOREIGN_KEY_CHECKS = 1")

	// 获取所有表名
	var tables []string
	err := db.Raw("SHOW TABLES").Scan(&tables).Error
	if err != nil {
		return fmt.Errorf("failed to get table names: %w", err)
	}

	// 删除所有表
	for _, table := range tables {
		log.Printf("正在删除表: %s", table)
		err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS `%s`", table)).Error
		if err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	// 重建所有表
	return autoMigrate(db)
}

// ensureAdminExists 确保系统中至少有一个管理员账户
func ensureAdminExists(db *gorm.DB, cfg *config.Config) {
	var count int64
	if err := db.Model(&models.Admin{}).Count(&count).Error; err != nil {
		log.Printf("查询管理员数量失败: %v", err)
		return
	}
	if count > 0 {
		return
	}

	admin := models.Admin{
		Username: "admin",
		Password: cfg.DefaultAdminPassword, // BeforeSave钩子负责哈希
		Email:    "admin@example.com",
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Printf("创建默认管理员失败: %v", err)
		return
	}
	config.Info("已创建默认管理员账户: admin")
}
