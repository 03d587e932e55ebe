package services

import (
	"sync"

	"iface-http-service/config"
)

// ImportMetricsSnapshot 导入子系统的累计指标
type ImportMetricsSnapshot struct {
	TotalJobs       int64   `json:"totalJobs"`
	TotalRows       int64   `json:"totalRows"`
	SuccessRows     int64   `json:"successRows"`
	FailedRows      int64   `json:"failedRows"`
	RetriedJobs     int64   `json:"retriedJobs"`
	FaceAttempts    int64   `json:"faceAttempts"`
	SuccessRate     float64 `json:"successRate"`   // 成功行 / 总行
	RetryRate       float64 `json:"retryRate"`     // 重试任务 / 总任务
	MeanJobDuration float64 `json:"meanLatencyMs"` // 平均任务耗时(毫秒)
}

// InterfaceMetricsService defines the import metrics service interface
type InterfaceMetricsService interface {
	RecordJob(totalRows, successRows, failedRows int64, durationMs int64, isRetry bool)
	RecordFaceAttempts(attempts int64)
	Snapshot() ImportMetricsSnapshot
}

// MetricsService 导入指标的累计计数器。
// 优先写入Redis哈希以在多实例间共享；Redis不可用时退回进程内计数。
type MetricsService struct {
	Redis  *RedisService
	Config *config.Config

	mu    sync.Mutex
	local map[string]int64
}

const metricsHashKey = "iface:import:metrics"

// NewMetricsService 创建一个新的指标服务
func NewMetricsService(redis *RedisService, cfg *config.Config) InterfaceMetricsService {
	return &MetricsService{
		Redis:  redis,
		Config: cfg,
		local:  make(map[string]int64),
	}
}

// incr 累加单个指标字段，Redis失败时落到进程内
func (s *MetricsService) incr(field string, delta int64) {
	if delta == 0 {
		return
	}

	if s.Redis != nil {
		if err := s.Redis.Client.HIncrBy(s.Redis.Ctx, metricsHashKey, field, delta).Err(); err == nil {
			return
		}
	}

	s.mu.Lock()
	s.local[field] += delta
	s.mu.Unlock()
}

// read 读取单个指标字段，合并Redis和进程内的值
func (s *MetricsService) read(field string) int64 {
	var value int64
	if s.Redis != nil {
		if v, err := s.Redis.Client.HGet(s.Redis.Ctx, metricsHashKey, field).Int64(); err == nil {
			value = v
		}
	}

	s.mu.Lock()
	value += s.local[field]
	s.mu.Unlock()
	return value
}

// 1 RecordJob 记录一次导入任务完成后的行计数和耗时
func (s *MetricsService) RecordJob(totalRows, successRows, failedRows int64, durationMs int64, isRetry bool) {
	s.incr("total_jobs", 1)
	s.incr("total_rows", totalRows)
	s.incr("success_rows", successRows)
	s.incr("failed_rows", failedRows)
	s.incr("duration_ms", durationMs)
	if isRetry {
		s.incr("retried_jobs", 1)
	}
}

// 2 RecordFaceAttempts 记录人脸拉取的尝试次数
func (s *MetricsService) RecordFaceAttempts(attempts int64) {
	s.incr("face_attempts", attempts)
}

// 3 Snapshot 返回当前累计指标和派生比率
func (s *MetricsService) Snapshot() ImportMetricsSnapshot {
	snapshot := ImportMetricsSnapshot{
		TotalJobs:    s.read("total_jobs"),
		TotalRows:    s.read("total_rows"),
		SuccessRows:  s.read("success_rows"),
		FailedRows:   s.read("failed_rows"),
		RetriedJobs:  s.read("retried_jobs"),
		FaceAttempts: s.read("face_attempts"),
	}

	if snapshot.TotalRows > 0 {
		snapshot.SuccessRate = float64(snapshot.SuccessRows) / float64(snapshot.TotalRows)
	}
	if snapshot.TotalJobs > 0 {
		snapshot.RetryRate = float64(snapshot.RetriedJobs) / float64(snapshot.TotalJobs)
		snapshot.MeanJobDuration = float64(s.read("duration_ms")) / float64(snapshot.TotalJobs)
	}

	return snapshot
}
