package middleware

import (
	"testing"
	"time"
)

func TestTokenBucketAllow(t *testing.T) {
	bucket := NewTokenBucket(10, 3)

	// 突发容量内的请求全部放行
	for i := 0; i < 3; i++ {
		if !bucket.Allow() {
			t.Fatalf("第 %d 个突发请求被拒绝", i+1)
		}
	}

	// 容量耗尽后立即拒绝
	if bucket.Allow() {
		t.Error("容量耗尽后不应放行")
	}

	// 等待令牌补充后恢复放行
	time.Sleep(150 * time.Millisecond)
	if !bucket.Allow() {
		t.Error("令牌补充后应放行")
	}
}
