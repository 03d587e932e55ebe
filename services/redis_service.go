package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"iface-http-service/config"
)

// RedisService handles Redis operations
type RedisService struct {
	Client *redis.Client
	Ctx    context.Context
}

// NewRedisService creates a new Redis service
func NewRedisService(cfg *config.Config) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: "", // No password set
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	return &RedisService{
		Client: client,
		Ctx:    ctx,
	}
}

// Set sets a key-value pair in Redis with expiration
func (s *RedisService) Set(key string, value interface{}, expiration time.Duration) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return s.Client.Set(s.Ctx, key, jsonValue, expiration).Err()
}

// Get gets a value from Redis by key
func (s *RedisService) Get(key string, dest interface{}) error {
	val, err := s.Client.Get(s.Ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(val), dest)
}

// Delete deletes a key from Redis
func (s *RedisService) Delete(key string) error {
	return s.Client.Del(s.Ctx, key).Err()
}

// CacheIdempotentResult 以幂等键缓存一次提交的结果，24小时内重放直接命中
func (s *RedisService) CacheIdempotentResult(idempotencyKey string, result interface{}) error {
	return s.Set("import_commit:"+idempotencyKey, result, 24*time.Hour)
}

// GetIdempotentResult 按幂等键读取缓存的提交结果
func (s *RedisService) GetIdempotentResult(idempotencyKey string, dest interface{}) (bool, error) {
	err := s.Get("import_commit:"+idempotencyKey, dest)
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AcquireImportLock 对单个工号取导入行锁，防止同一工号被并发提交
func (s *RedisService) AcquireImportLock(externalID string, ttl time.Duration) (bool, error) {
	return s.Client.SetNX(s.Ctx, "import_lock:"+externalID, 1, ttl).Result()
}

// ReleaseImportLocks 释放一组导入行锁
func (s *RedisService) ReleaseImportLocks(externalIDs []string) {
	for _, id := range externalIDs {
		s.Client.Del(s.Ctx, "import_lock:"+id)
	}
}
