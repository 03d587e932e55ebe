package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"iface-http-service/models"
)

type fakeSyncService struct {
	failStudentID uint
}

func (f *fakeSyncService) ResolveTargets(mode SyncMode, sourceTerminalID uint, selectedIDs []uint) ([]uint, error) {
	return []uint{1}, nil
}

func (f *fakeSyncService) SyncRecord(ctx context.Context, studentID uint, terminalIDs []uint) ([]TerminalSyncResult, error) {
	if studentID == f.failStudentID {
		return []TerminalSyncResult{{TerminalID: 1, TerminalName: "Kirish-1", Status: "FAILED", LastError: "timeout"}},
			errors.New("Kirish-1: timeout")
	}
	return []TerminalSyncResult{{TerminalID: 1, TerminalName: "Kirish-1", Status: "SUCCESS"}}, nil
}

func (f *fakeSyncService) GetRecord(recordID uint) (*models.ProvisioningRecord, error) {
	return nil, errors.New("未实现")
}

func (f *fakeSyncService) GetRecordByStudent(studentID uint) (*models.ProvisioningRecord, error) {
	return nil, errors.New("未实现")
}

type fakeMQTTService struct{}

func (f *fakeMQTTService) PublishImportProgress(jobID string, payload interface{})    {}
func (f *fakeMQTTService) PublishImportEvent(jobID string, event interface{})        {}
func (f *fakeMQTTService) PublishPresenceResult(studentID uint, payload interface{}) {}
func (f *fakeMQTTService) IsConnected() bool                                         { return false }
func (f *fakeMQTTService) Disconnect()                                               {}

func newTestJob() *models.ImportJob {
	return &models.ImportJob{
		ID:             "job-1",
		IdempotencyKey: "key-1",
		Status:         models.ImportJobStatusProcessing,
		StartedAt:      time.Now(),
	}
}

func TestImportRowResultFailed(t *testing.T) {
	// 非法行失败
	invalid := ImportRowResult{ImportRowOutcome: ImportRowOutcome{Action: ImportRowActionInvalid, Error: "缺少学号"}}
	if !invalid.Failed() {
		t.Error("非法行应判定为失败")
	}

	// 下发失败转成行级失败
	syncFailed := ImportRowResult{
		ImportRowOutcome: ImportRowOutcome{Action: ImportRowActionCreate, StudentID: 1},
		SyncError:        "Kirish-1: timeout",
	}
	if !syncFailed.Failed() {
		t.Error("下发失败的行应判定为失败")
	}

	// 人脸拉取失败是软失败，不影响行结果
	faceMissing := ImportRowResult{
		ImportRowOutcome: ImportRowOutcome{Action: ImportRowActionUpdate, StudentID: 2},
		FacePulled:       false,
		FaceAttempts:     3,
	}
	if faceMissing.Failed() {
		t.Error("人脸拉取失败不应判定行失败")
	}

	ok := ImportRowResult{ImportRowOutcome: ImportRowOutcome{Action: ImportRowActionCreate, StudentID: 3}}
	if ok.Failed() {
		t.Error("成功行不应判定为失败")
	}
}

func TestFanOutRowIsolation(t *testing.T) {
	service := &ImportService{
		Sync: &fakeSyncService{failStudentID: 2},
		MQTT: &fakeMQTTService{},
	}
	job := newTestJob()

	rows := []ImportRowInput{
		{RowIndex: 0, ExternalID: "E1", ClassID: 1},
		{RowIndex: 1, ExternalID: "E2", ClassID: 1},
		{RowIndex: 2, ExternalID: "E3", ClassID: 1},
	}
	results := []ImportRowResult{
		{ImportRowOutcome: ImportRowOutcome{RowIndex: 0, ExternalID: "E1", Action: ImportRowActionCreate, StudentID: 1}},
		{ImportRowOutcome: ImportRowOutcome{RowIndex: 1, ExternalID: "E2", Action: ImportRowActionCreate, StudentID: 2}},
		{ImportRowOutcome: ImportRowOutcome{RowIndex: 2, ExternalID: "E3", Action: ImportRowActionUpdate, StudentID: 3}},
	}

	for i := range results {
		service.fanOutRow(context.Background(), job, rows[i], &results[i], ImportOptions{SyncMode: SyncModeAll})
	}

	// 一行的下发失败不能波及其他行
	if results[1].SyncError == "" || !results[1].Failed() {
		t.Error("失败行应带下发错误并判定为失败")
	}
	for _, i := range []int{0, 2} {
		if results[i].SyncError != "" || results[i].Failed() {
			t.Errorf("行%d 不应受失败行影响: %q", i, results[i].SyncError)
		}
		if len(results[i].Sync) != 1 || results[i].Sync[0].Status != "SUCCESS" {
			t.Errorf("行%d 应有成功的终端结果", i)
		}
	}
}

func TestRowTallyAdvancesPerRow(t *testing.T) {
	job := newTestJob()

	rows := []ImportRowResult{
		{ImportRowOutcome: ImportRowOutcome{RowIndex: 0, Action: ImportRowActionCreate, StudentID: 1},
			Sync: []TerminalSyncResult{{TerminalID: 1, Status: "SUCCESS"}}},
		{ImportRowOutcome: ImportRowOutcome{RowIndex: 1, Action: ImportRowActionInvalid, Error: "缺少学号"}},
		{ImportRowOutcome: ImportRowOutcome{RowIndex: 2, Action: ImportRowActionUpdate, StudentID: 2}},
	}

	// 计数必须随每行落定推进，而不是等队列排空后一次性汇总
	var msgs []string
	for i := range rows {
		if msg := applyRowTally(job, &rows[i]); msg != "" {
			msgs = append(msgs, msg)
		}
		if job.Processed != i+1 {
			t.Errorf("第 %d 行落定后 processed = %d", i, job.Processed)
		}
	}

	if job.Success != 2 || job.Failed != 1 || job.Synced != 1 {
		t.Errorf("计数 success=%d failed=%d synced=%d, 期望 2/1/1", job.Success, job.Failed, job.Synced)
	}
	if len(msgs) != 1 || msgs[0] != "行1: 缺少学号" {
		t.Errorf("失败描述 = %v", msgs)
	}
}

func TestImportJobIsTerminal(t *testing.T) {
	job := newTestJob()
	if job.IsTerminal() {
		t.Error("处理中的任务不是终态")
	}

	job.Status = models.ImportJobStatusSuccess
	if !job.IsTerminal() {
		t.Error("SUCCESS应是终态")
	}

	job.Status = models.ImportJobStatusFailed
	if !job.IsTerminal() {
		t.Error("FAILED应是终态")
	}
}
