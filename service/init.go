/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、迁移与各业务服务装配
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/survey_pipeline_design.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保所有依赖服务正常启动后才提供API服务
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs service/database/migrate.go, main.go
 */

package service

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"surveyhub-service/service/cleaned_store"
	"surveyhub-service/service/cleanup"
	"surveyhub-service/service/database"
	"surveyhub-service/service/distributed_lock"
	"surveyhub-service/service/event"
	"surveyhub-service/service/monitoring"
	"surveyhub-service/service/processing"
	"surveyhub-service/service/rate_limiter"
	"surveyhub-service/service/schema_registry"
	"surveyhub-service/service/upload_store"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB                     *gorm.DB
	GlobalEventService     *event.Service
	GlobalUploadStore      *upload_store.Store
	GlobalCleanedStore     *cleaned_store.Store
	GlobalSchemaRegistry   *schema_registry.Registry
	GlobalJobTracker       *processing.JobTracker
	GlobalProcessor        *processing.Processor
	GlobalMetricsCollector *monitoring.MetricsCollector
	GlobalRetentionService *cleanup.RetentionService
	GlobalDistributedLock  distributed_lock.DistributedLock
	GlobalRateLimiter      *rate_limiter.RedisRateLimiter
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "things2024")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	log.Println("所有数据库迁移任务完成")
}

// initServices 初始化服务
func initServices() {
	uploadDir := getEnvWithDefault("UPLOAD_DIR", "/data/survey/uploads")
	cleanedDir := getEnvWithDefault("CLEANED_DIR", "/data/survey/cleaned")

	maxWorkers := 10
	if v := os.Getenv("PIPELINE_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxWorkers = n
		}
	}

	// 多实例部署时配置REDIS_HOST启用跨实例租约和上传限流
	if os.Getenv("REDIS_HOST") != "" {
		lock, err := distributed_lock.NewRedisLock()
		if err != nil {
			log.Printf("Redis分布式锁初始化失败，退化为单实例模式: %v", err)
		} else {
			GlobalDistributedLock = lock
		}

		limiter, err := rate_limiter.NewRedisRateLimiter()
		if err != nil {
			log.Printf("Redis限流器初始化失败，上传限流已禁用: %v", err)
		} else {
			GlobalRateLimiter = limiter
		}
	}

	GlobalEventService = event.NewService()
	GlobalMetricsCollector = monitoring.NewMetricsCollector()
	GlobalUploadStore = upload_store.NewStore(DB, uploadDir)
	GlobalCleanedStore = cleaned_store.NewStore(DB, cleanedDir)
	GlobalSchemaRegistry = schema_registry.NewRegistry(DB)
	GlobalJobTracker = processing.NewJobTracker(DB, GlobalDistributedLock)
	GlobalProcessor = processing.NewProcessor(DB, GlobalUploadStore, GlobalCleanedStore,
		GlobalSchemaRegistry, GlobalJobTracker, GlobalEventService, GlobalMetricsCollector, maxWorkers)

	GlobalRetentionService = cleanup.NewRetentionService(DB, GlobalCleanedStore, GlobalDistributedLock)
	if err := GlobalRetentionService.StartScheduledCleanup(); err != nil {
		log.Printf("启动保留清理调度器失败: %v", err)
	}

	log.Println("服务初始化完成")
}
