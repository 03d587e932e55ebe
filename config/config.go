package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

var (
	config     *Config
	configOnce sync.Once
)

// Config stores all configuration of the application
type Config struct {
	// Environment type
	EnvType string

	// Database
	DBHost          string
	DBUser          string
	DBPassword      string
	DBName          string
	DBPort          string
	DBMigrationMode string // 数据库迁移模式: "auto"(默认), "alter"(修改), "drop"(删除重建)

	// Server
	ServerPort string

	// Redis
	RedisHost string
	RedisPort string
	RedisDB   int

	// MQTT
	MQTTBrokerHost string
	MQTTBrokerPort string
	MQTTClientID   string

	// Provisioning agent gateway
	AgentBaseURL        string
	AgentRequestTimeout int // 秒

	// Import workflow
	ImportFacePoolSize    int // 人脸拉取工作协程数量
	ImportFaceMaxAttempts int // 单行人脸拉取最大尝试次数
	ImportFaceRetryDelay  int // 线性退避基础延迟(毫秒)

	// JWT Authentication
	JWTSecretKey string

	// Admin
	DefaultAdminPassword string
}

// LoadConfig loads config from environment variables based on ENV_TYPE
func LoadConfig() *Config {
	// Get environment type (default to LOCAL if not set)
	envType := getEnv("ENV_TYPE", "LOCAL")
	prefix := ""

	// Set prefix based on environment type
	if strings.ToUpper(envType) == "LOCAL" {
		prefix = "LOCAL_"
	} else if strings.ToUpper(envType) == "SERVER" {
		prefix = "SERVER_"
	} else {
		fmt.Printf("Warning: Unknown ENV_TYPE '%s', defaulting to LOCAL environment\n", envType)
		prefix = "LOCAL_"
		envType = "LOCAL"
	}

	fmt.Printf("Loading configuration for environment: %s\n", envType)

	return &Config{
		// Environment type
		EnvType: envType,

		// Database config - use environment-specific variables if available
		DBHost:          getEnv(prefix+"DB_HOST", getEnv("DB_HOST", "localhost")),
		DBUser:          getEnv(prefix+"DB_USER", getEnv("DB_USER", "root")),
		DBPassword:      getEnv(prefix+"DB_PASSWORD", getEnv("DB_PASSWORD", "root")),
		DBName:          getEnv(prefix+"DB_NAME", getEnv("DB_NAME", "iface_db")),
		DBPort:          getEnv(prefix+"DB_PORT", getEnv("DB_PORT", "3306")),
		DBMigrationMode: getEnv(prefix+"DB_MIGRATION_MODE", getEnv("DB_MIGRATION_MODE", "auto")),

		// Server config
		ServerPort: getEnv(prefix+"SERVER_PORT", getEnv("SERVER_PORT", "8080")),

		// Redis config
		RedisHost: getEnv(prefix+"REDIS_HOST", getEnv("REDIS_HOST", "localhost")),
		RedisPort: getEnv(prefix+"REDIS_PORT", getEnv("REDIS_PORT", "6379")),
		RedisDB:   getEnvAsInt("REDIS_DB", 0),

		// MQTT config
		MQTTBrokerHost: getEnv(prefix+"MQTT_BROKER_HOST", getEnv("MQTT_BROKER_HOST", "localhost")),
		MQTTBrokerPort: getEnv(prefix+"MQTT_BROKER_PORT", getEnv("MQTT_BROKER_PORT", "1883")),
		MQTTClientID:   getEnv("MQTT_CLIENT_ID", "iface-http-service"),

		// Provisioning agent gateway config
		AgentBaseURL:        getEnv(prefix+"AGENT_BASE_URL", getEnv("AGENT_BASE_URL", "http://localhost:18090")),
		AgentRequestTimeout: getEnvAsInt("AGENT_REQUEST_TIMEOUT", 15),

		// Import workflow config
		ImportFacePoolSize:    getEnvAsInt("IMPORT_FACE_POOL_SIZE", 4),
		ImportFaceMaxAttempts: getEnvAsInt("IMPORT_FACE_MAX_ATTEMPTS", 3),
		ImportFaceRetryDelay:  getEnvAsInt("IMPORT_FACE_RETRY_DELAY_MS", 500),

		// JWT Config
		JWTSecretKey: getEnv("JWT_SECRET_KEY", "iface-secret-key-change-in-production"),

		// Admin Config
		DefaultAdminPassword: getEnv("DEFAULT_ADMIN_PASSWORD", "admin123"),
	}
}

// GetConfig returns the application configuration as a singleton
func GetConfig() *Config {
	configOnce.Do(func() {
		config = LoadConfig()
	})
	return config
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=Local&allowNativePasswords=true&multiStatements=true"
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// GetMQTTBroker returns the MQTT broker URL
func (c *Config) GetMQTTBroker() string {
	return "tcp://" + c.MQTTBrokerHost + ":" + c.MQTTBrokerPort
}

// Helper function to get environment variable with default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as integer with default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
