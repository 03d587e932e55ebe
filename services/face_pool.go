package services

import (
	"context"
	"sync"
	"time"

	"iface-http-service/config"
)

// FaceFetchTask 一行待拉取人脸的任务
type FaceFetchTask struct {
	RowIndex   int
	EmployeeNo string
	TerminalID uint // 该行来源终端，不一定是提交目标
}

// FaceFetchResult 单行人脸拉取的最终结果。
// 拉取失败是软失败：OK为false但不产生错误。
type FaceFetchResult struct {
	RowIndex    int
	ImageBase64 string
	Attempts    int
	OK          bool
}

// FaceStateChangeFunc 行的加载标记回调，开始时true、结束时false，
// 每行恰好各调用一次。回调属于单次Run，不挂在池上：
// 池是容器里的单例，多次导入会并发共用。
type FaceStateChangeFunc func(rowIndex int, loading bool)

// InterfaceFacePool defines the bounded face fetch pool interface
type InterfaceFacePool interface {
	Run(ctx context.Context, tasks []FaceFetchTask, onStateChange FaceStateChangeFunc) map[int]FaceFetchResult
	FetchWithRetry(ctx context.Context, terminalID uint, employeeNo string) (string, int)
}

// FacePool 有界并发的人脸拉取池。
// 固定数量的工作协程共享一个游标排空任务列表，而不是每行一个协程，
// 以限制对慢终端的压力。池本身无运行态，可被多次Run并发复用。
type FacePool struct {
	Client      InterfaceTerminalClient
	Credentials InterfaceCredentialService

	Workers     int
	MaxAttempts int
	RetryDelay  time.Duration
}

// NewFacePool 创建一个新的人脸拉取池
func NewFacePool(cfg *config.Config, client InterfaceTerminalClient, credentials InterfaceCredentialService) *FacePool {
	workers := cfg.ImportFacePoolSize
	if workers <= 0 {
		workers = 4
	}
	attempts := cfg.ImportFaceMaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := time.Duration(cfg.ImportFaceRetryDelay) * time.Millisecond
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	return &FacePool{
		Client:      client,
		Credentials: credentials,
		Workers:     workers,
		MaxAttempts: attempts,
		RetryDelay:  delay,
	}
}

// 1 FetchWithRetry 对单个(终端, 工号)做带线性退避的重试拉取。
// 最多 MaxAttempts 次，第n次失败后等待 n×RetryDelay；
// 成功立即返回，耗尽后返回空串而不是错误。
func (p *FacePool) FetchWithRetry(ctx context.Context, terminalID uint, employeeNo string) (string, int) {
	cred, _, err := p.Credentials.ResolveUsable(terminalID)
	if err != nil || cred == nil {
		return "", 0
	}

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		image, err := p.Client.FetchFace(ctx, cred, employeeNo)
		if err == nil && image != "" {
			return image, attempt
		}

		if attempt < p.MaxAttempts {
			select {
			case <-ctx.Done():
				return "", attempt
			case <-time.After(time.Duration(attempt) * p.RetryDelay):
			}
		}
	}
	return "", p.MaxAttempts
}

// 2 Run 用固定数量的工作协程排空任务列表。
// 返回按行索引聚合的结果；每行恰好终止一次(成功或耗尽)。
// onStateChange 可为nil。
func (p *FacePool) Run(ctx context.Context, tasks []FaceFetchTask, onStateChange FaceStateChangeFunc) map[int]FaceFetchResult {
	results := make(map[int]FaceFetchResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	var (
		mu     sync.Mutex
		cursor int
		wg     sync.WaitGroup
	)

	workers := p.Workers
	if workers > len(tasks) {
		workers = len(tasks)
	}

	worker := func() {
		defer wg.Done()
		for {
			mu.Lock()
			if cursor >= len(tasks) {
				mu.Unlock()
				return
			}
			task := tasks[cursor]
			cursor++
			mu.Unlock()

			if onStateChange != nil {
				onStateChange(task.RowIndex, true)
			}

			image, attempts := p.FetchWithRetry(ctx, task.TerminalID, task.EmployeeNo)

			mu.Lock()
			results[task.RowIndex] = FaceFetchResult{
				RowIndex:    task.RowIndex,
				ImageBase64: image,
				Attempts:    attempts,
				OK:          image != "",
			}
			mu.Unlock()

			// 无论成败，加载标记都只清除这一次
			if onStateChange != nil {
				onStateChange(task.RowIndex, false)
			}
		}
	}

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go worker()
	}
	wg.Wait()

	return results
}
