package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"iface-http-service/models"
)

// fakeTerminalClient 用函数钩子模拟终端客户端
type fakeTerminalClient struct {
	fetchFace func(terminalID string, employeeNo string) (string, error)
	cred      *models.TerminalCredential
}

func (f *fakeTerminalClient) TestConnection(ctx context.Context, cred *models.TerminalCredential) error {
	return nil
}

func (f *fakeTerminalClient) ListPersons(ctx context.Context, cred *models.TerminalCredential, offset, limit int) (*TerminalPersonPage, error) {
	return &TerminalPersonPage{}, nil
}

func (f *fakeTerminalClient) CreateOrRecreatePerson(ctx context.Context, cred *models.TerminalCredential, person TerminalPersonInput) error {
	return nil
}

func (f *fakeTerminalClient) DeletePerson(ctx context.Context, cred *models.TerminalCredential, employeeNo string) error {
	return nil
}

func (f *fakeTerminalClient) FetchFace(ctx context.Context, cred *models.TerminalCredential, employeeNo string) (string, error) {
	if f.fetchFace != nil {
		return f.fetchFace(cred.Host, employeeNo)
	}
	return "", errors.New("no face")
}

func (f *fakeTerminalClient) PresenceCheck(ctx context.Context, cred *models.TerminalCredential, employeeNo string) (*PresenceProbeResult, error) {
	return &PresenceProbeResult{Status: PresenceStatusPresent}, nil
}

func (f *fakeTerminalClient) SyncToTerminals(ctx context.Context, recordID uint, terminalIDs []uint) ([]TerminalSyncResult, error) {
	return nil, nil
}

// fakeCredentialService 总是返回同一份可用凭据
type fakeCredentialService struct {
	err error
}

func (f *fakeCredentialService) ResolveUsable(terminalID uint) (*models.TerminalCredential, *models.Terminal, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return &models.TerminalCredential{TerminalID: terminalID, Host: "terminal"}, &models.Terminal{ID: terminalID}, nil
}

func (f *fakeCredentialService) Resolve(terminalID uint) (*models.TerminalCredential, *models.Terminal, error) {
	return f.ResolveUsable(terminalID)
}

func (f *fakeCredentialService) Upsert(terminalID uint, host, username, password string, expiresAt *time.Time) (*models.TerminalCredential, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCredentialService) HasUsable(terminalID uint) bool {
	_, _, err := f.ResolveUsable(terminalID)
	return err == nil
}

func newTestPool(client InterfaceTerminalClient, workers int) *FacePool {
	return &FacePool{
		Client:      client,
		Credentials: &fakeCredentialService{},
		Workers:     workers,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	}
}

func TestFacePoolBoundedConcurrency(t *testing.T) {
	var current int32
	var peak int32

	client := &fakeTerminalClient{
		fetchFace: func(_, employeeNo string) (string, error) {
			now := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return "face-" + employeeNo, nil
		},
	}

	pool := newTestPool(client, 2)

	tasks := make([]FaceFetchTask, 0, 10)
	for i := 0; i < 10; i++ {
		tasks = append(tasks, FaceFetchTask{RowIndex: i, EmployeeNo: "e", TerminalID: 1})
	}

	results := pool.Run(context.Background(), tasks, nil)

	if len(results) != 10 {
		t.Fatalf("结果数 = %d, 期望 10", len(results))
	}
	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Errorf("并发峰值 = %d, 超过池大小 2", p)
	}
	for i := 0; i < 10; i++ {
		if !results[i].OK {
			t.Errorf("行 %d 应拉取成功", i)
		}
	}
}

func TestFacePoolStateChangeExactlyOnce(t *testing.T) {
	client := &fakeTerminalClient{
		fetchFace: func(_, employeeNo string) (string, error) {
			if employeeNo == "bad" {
				return "", errors.New("terminal busy")
			}
			return "img", nil
		},
	}

	pool := newTestPool(client, 4)

	var mu sync.Mutex
	loads := make(map[int]int)
	clears := make(map[int]int)
	onStateChange := func(rowIndex int, loading bool) {
		mu.Lock()
		defer mu.Unlock()
		if loading {
			loads[rowIndex]++
		} else {
			clears[rowIndex]++
		}
	}

	tasks := []FaceFetchTask{
		{RowIndex: 0, EmployeeNo: "ok", TerminalID: 1},
		{RowIndex: 1, EmployeeNo: "bad", TerminalID: 1},
		{RowIndex: 2, EmployeeNo: "ok", TerminalID: 1},
	}

	results := pool.Run(context.Background(), tasks, onStateChange)

	// 无论成败，每行的加载标记恰好设置一次、清除一次
	for i := 0; i < 3; i++ {
		if loads[i] != 1 || clears[i] != 1 {
			t.Errorf("行 %d 状态回调次数 load=%d clear=%d, 期望各1次", i, loads[i], clears[i])
		}
	}

	// 失败行是软失败：没有人脸但有终态
	if results[1].OK {
		t.Error("行 1 应拉取失败")
	}
	if results[1].Attempts != 3 {
		t.Errorf("行 1 尝试次数 = %d, 期望耗尽 3 次", results[1].Attempts)
	}
}

func TestFacePoolConcurrentRunsNoCrosstalk(t *testing.T) {
	client := &fakeTerminalClient{
		fetchFace: func(_, employeeNo string) (string, error) {
			time.Sleep(time.Millisecond)
			return "face-" + employeeNo, nil
		},
	}

	// 同一个池被两次导入并发复用，各自的状态回调互不串扰
	pool := newTestPool(client, 2)

	makeTasks := func(base int) []FaceFetchTask {
		tasks := make([]FaceFetchTask, 0, 8)
		for i := 0; i < 8; i++ {
			tasks = append(tasks, FaceFetchTask{RowIndex: base + i, EmployeeNo: "e", TerminalID: 1})
		}
		return tasks
	}

	var mu sync.Mutex
	seenA := make(map[int]bool)
	seenB := make(map[int]bool)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pool.Run(context.Background(), makeTasks(0), func(rowIndex int, loading bool) {
			mu.Lock()
			seenA[rowIndex] = true
			mu.Unlock()
		})
	}()
	go func() {
		defer wg.Done()
		pool.Run(context.Background(), makeTasks(100), func(rowIndex int, loading bool) {
			mu.Lock()
			seenB[rowIndex] = true
			mu.Unlock()
		})
	}()
	wg.Wait()

	for rowIndex := range seenA {
		if rowIndex >= 100 {
			t.Errorf("第一次运行的回调收到了第二次运行的行 %d", rowIndex)
		}
	}
	for rowIndex := range seenB {
		if rowIndex < 100 {
			t.Errorf("第二次运行的回调收到了第一次运行的行 %d", rowIndex)
		}
	}
	if len(seenA) != 8 || len(seenB) != 8 {
		t.Errorf("回调覆盖行数 = %d/%d, 期望各 8 行", len(seenA), len(seenB))
	}
}

func TestFetchWithRetrySucceedsAfterFailures(t *testing.T) {
	var calls int32
	client := &fakeTerminalClient{
		fetchFace: func(_, _ string) (string, error) {
			if atomic.AddInt32(&calls, 1) < 3 {
				return "", errors.New("timeout")
			}
			return "img", nil
		},
	}

	pool := newTestPool(client, 1)

	image, attempts := pool.FetchWithRetry(context.Background(), 1, "1001")
	if image != "img" {
		t.Errorf("image = %q, 期望 \"img\"", image)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, 期望 3", attempts)
	}
}

func TestFetchWithRetryNoCredentials(t *testing.T) {
	pool := newTestPool(&fakeTerminalClient{}, 1)
	pool.Credentials = &fakeCredentialService{err: NewDeviceError(DeviceErrCodeCredentialsNotFound, "t", "")}

	image, attempts := pool.FetchWithRetry(context.Background(), 1, "1001")
	if image != "" || attempts != 0 {
		t.Errorf("凭据缺失应直接返回空: image=%q attempts=%d", image, attempts)
	}
}
