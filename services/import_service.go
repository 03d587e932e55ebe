package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"iface-http-service/config"
	"iface-http-service/models"
)

// ImportOptions 一次导入运行的选项
type ImportOptions struct {
	SyncMode            SyncMode `json:"sync_mode"`
	SelectedTerminalIDs []uint   `json:"selected_terminal_ids,omitempty"`
	PullFaces           bool     `json:"pull_faces"`

	// OnEvent 行事件回调，供SSE等流式消费；可为nil
	OnEvent func(event ImportRowEvent) `json:"-"`
}

// ImportRowEvent 导入过程中某一行的状态事件
type ImportRowEvent struct {
	JobID      string `json:"job_id"`
	RowIndex   int    `json:"row_index"`
	ExternalID string `json:"external_id"`
	Stage      string `json:"stage"`  // face | commit | sync
	Status     string `json:"status"` // loading | success | error
	Message    string `json:"message,omitempty"`
}

// ImportRowResult 一行走完整个流水线的最终结果
type ImportRowResult struct {
	ImportRowOutcome
	FacePulled   bool                 `json:"face_pulled"`
	FaceAttempts int                  `json:"face_attempts"`
	Sync         []TerminalSyncResult `json:"sync,omitempty"`
	SyncError    string               `json:"sync_error,omitempty"`
}

// Failed 判断该行在流水线中是否最终失败。
// 人脸拉取失败不算：那是软失败，行照常提交只是没有人脸。
func (r *ImportRowResult) Failed() bool {
	if r.Action == ImportRowActionInvalid {
		return true
	}
	return r.SyncError != ""
}

// ImportRunSummary 一次导入运行的汇总
type ImportRunSummary struct {
	Job  *models.ImportJob `json:"job"`
	Rows []ImportRowResult `json:"rows"`
}

// InterfaceImportService defines the import orchestration interface
type InterfaceImportService interface {
	StartImport(ctx context.Context, rows []ImportRowInput, opts ImportOptions) (*ImportRunSummary, error)
	RetryFailed(ctx context.Context, jobID string, rows []ImportRowInput, opts ImportOptions) (*ImportRunSummary, error)
	GetJob(jobID string) (*models.ImportJob, error)
	ListJobs(query models.PaginationQuery) ([]models.ImportJob, int64, error)
}

// ImportService 导入流水线的编排器：人脸拉取 → 落库提交 → 终端下发。
// 任务级幂等键在创建时生成一次，重试永远复用，不再重新生成。
type ImportService struct {
	DB      *gorm.DB
	Config  *config.Config
	Commit  InterfaceImportCommitService
	Sync    InterfaceSyncService
	Pool    *FacePool
	MQTT    InterfaceMQTTService
	Audit   InterfaceAuditService
	Metrics InterfaceMetricsService
}

// NewImportService 创建一个新的导入编排服务
func NewImportService(
	db *gorm.DB,
	cfg *config.Config,
	commit InterfaceImportCommitService,
	sync InterfaceSyncService,
	pool *FacePool,
	mqttService InterfaceMQTTService,
	audit InterfaceAuditService,
	metrics InterfaceMetricsService,
) InterfaceImportService {
	return &ImportService{
		DB:      db,
		Config:  cfg,
		Commit:  commit,
		Sync:    sync,
		Pool:    pool,
		MQTT:    mqttService,
		Audit:   audit,
		Metrics: metrics,
	}
}

// commitCacheKey 派生本次尝试的提交缓存键。
// 任务的幂等键不变，但每次重试是一次新的提交，不能命中上次的重放缓存。
func commitCacheKey(job *models.ImportJob) string {
	return fmt.Sprintf("%s#%d", job.IdempotencyKey, job.RetryCount)
}

// emit 发布一条行事件到MQTT和可选的回调
func (s *ImportService) emit(opts ImportOptions, event ImportRowEvent) {
	s.MQTT.PublishImportEvent(event.JobID, event)
	if opts.OnEvent != nil {
		opts.OnEvent(event)
	}
}

// publishProgress 发布任务的聚合进度快照
func (s *ImportService) publishProgress(job *models.ImportJob) {
	s.MQTT.PublishImportProgress(job.ID, map[string]interface{}{
		"job_id":    job.ID,
		"status":    job.Status,
		"total":     job.TotalRows,
		"processed": job.Processed,
		"success":   job.Success,
		"failed":    job.Failed,
		"synced":    job.Synced,
	})
}

// preflight 任务创建前的预检。任何一条不过，整批拒绝，不创建任务。
func (s *ImportService) preflight(rows []ImportRowInput, opts ImportOptions) error {
	if len(rows) == 0 {
		return errors.New("导入批次为空")
	}
	if opts.SyncMode == SyncModeSelected && len(opts.SelectedTerminalIDs) == 0 {
		return errors.New("选择下发模式下未指定目标终端")
	}

	seen := make(map[string]bool, len(rows))
	classIDs := make(map[uint]bool)
	for _, row := range rows {
		if reason := validateRow(row); reason != "" {
			return fmt.Errorf("行%d: %s", row.RowIndex, reason)
		}
		key := strings.ToLower(strings.TrimSpace(row.ExternalID))
		if seen[key] {
			return fmt.Errorf("行%d: 批次内学号重复 %s", row.RowIndex, strings.TrimSpace(row.ExternalID))
		}
		seen[key] = true
		classIDs[row.ClassID] = true
	}

	for classID := range classIDs {
		var count int64
		if err := s.DB.Model(&models.Class{}).Where("id = ?", classID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("班级不存在: %d", classID)
		}
	}

	// 要拉人脸的行，其来源终端必须有未过期的本地凭据
	if opts.PullFaces {
		sourceIDs := make(map[uint]bool)
		for _, row := range rows {
			if row.FaceImageBase64 == "" && row.SourceTerminalID != 0 {
				sourceIDs[row.SourceTerminalID] = true
			}
		}
		for terminalID := range sourceIDs {
			if _, _, err := s.Pool.Credentials.ResolveUsable(terminalID); err != nil {
				return fmt.Errorf("终端 %d 无可用凭据，无法拉取人脸: %v", terminalID, err)
			}
		}
	}
	return nil
}

// 1 StartImport 启动一次新的导入运行。
// 预检条件不满足(空批次、必填缺失、批次内重复、未知班级、选择模式无目标、
// 拉脸无凭据)时直接拒绝，不创建任务。
func (s *ImportService) StartImport(ctx context.Context, rows []ImportRowInput, opts ImportOptions) (*ImportRunSummary, error) {
	if err := s.preflight(rows, opts); err != nil {
		return nil, err
	}

	job := &models.ImportJob{
		ID:             uuid.NewString(),
		IdempotencyKey: uuid.NewString(),
		Status:         models.ImportJobStatusProcessing,
		TotalRows:      len(rows),
		StartedAt:      time.Now(),
	}
	if err := s.DB.Create(job).Error; err != nil {
		return nil, err
	}

	s.Audit.AppendForJob(job.ID, "import.start", "PROCESSING", fmt.Sprintf("开始导入 %d 行", len(rows)), map[string]interface{}{
		"sync_mode": string(opts.SyncMode),
	})

	return s.run(ctx, job, rows, opts, false)
}

// 2 RetryFailed 重试一次失败运行中的失败行。
// 复用原任务的幂等键，递增重试计数；提交的行会按上次的失败名单过滤。
func (s *ImportService) RetryFailed(ctx context.Context, jobID string, rows []ImportRowInput, opts ImportOptions) (*ImportRunSummary, error) {
	job, err := s.GetJob(jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsTerminal() {
		return nil, errors.New("任务尚未结束，不能重试")
	}
	if job.Status != models.ImportJobStatusFailed {
		return nil, errors.New("只有失败的任务才能重试")
	}

	rows = s.filterToFailedRows(job, rows)
	if len(rows) == 0 {
		return nil, errors.New("没有可重试的失败行")
	}
	// 重试同样要过全量预检
	if err := s.preflight(rows, opts); err != nil {
		return nil, err
	}

	job.RetryCount++
	job.Status = models.ImportJobStatusProcessing
	job.TotalRows = len(rows)
	job.Processed = 0
	job.Success = 0
	job.Failed = 0
	job.Synced = 0
	job.LastError = ""
	job.StartedAt = time.Now()
	job.FinishedAt = nil
	if err := s.DB.Save(job).Error; err != nil {
		return nil, err
	}

	s.Audit.AppendForJob(job.ID, "import.retry", "PROCESSING", fmt.Sprintf("第 %d 次重试，%d 行", job.RetryCount, len(rows)), nil)

	return s.run(ctx, job, rows, opts, true)
}

// filterToFailedRows 过滤出处于失败状态的行：
// 上一次提交中非法的行，加上落库成功但终端下发失败(FAILED/PARTIAL)的行。
// 缓存和记录都查不到失败名单时退回到提交方给的全部行。
func (s *ImportService) filterToFailedRows(job *models.ImportJob, rows []ImportRowInput) []ImportRowInput {
	failedIDs := make(map[string]bool)

	if commitService, ok := s.Commit.(*ImportCommitService); ok {
		previousKey := fmt.Sprintf("%s#%d", job.IdempotencyKey, job.RetryCount)
		var previous ImportCommitResult
		if hit, err := commitService.Redis.GetIdempotentResult(previousKey, &previous); err == nil && hit {
			for _, outcome := range previous.Rows {
				if outcome.Action == ImportRowActionInvalid {
					failedIDs[strings.ToLower(outcome.ExternalID)] = true
				}
			}
		}
	}

	var failedStudents []models.Student
	err := s.DB.
		Joins("JOIN provisioning_records pr ON pr.student_id = students.id").
		Where("pr.status IN ?", []models.ProvisioningStatus{models.ProvisioningStatusFailed, models.ProvisioningStatusPartial}).
		Find(&failedStudents).Error
	if err == nil {
		for _, student := range failedStudents {
			failedIDs[strings.ToLower(student.ExternalID)] = true
		}
	}

	if len(failedIDs) == 0 {
		return rows
	}

	filtered := make([]ImportRowInput, 0, len(rows))
	for _, row := range rows {
		if failedIDs[strings.ToLower(strings.TrimSpace(row.ExternalID))] {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

// run 执行流水线的三个阶段并终结任务。
// 任务成败的唯一判据：所有行处理完后 failed>0 即 FAILED，否则 SUCCESS。
func (s *ImportService) run(ctx context.Context, job *models.ImportJob, rows []ImportRowInput, opts ImportOptions, isRetry bool) (*ImportRunSummary, error) {
	// 提交方没带行号时按提交顺序补齐，行号在一次运行内必须唯一
	zeroCount := 0
	for _, row := range rows {
		if row.RowIndex == 0 {
			zeroCount++
		}
	}
	if zeroCount > 1 {
		for i := range rows {
			rows[i].RowIndex = i
		}
	}

	results := make([]ImportRowResult, len(rows))
	for i, row := range rows {
		results[i] = ImportRowResult{
			ImportRowOutcome: ImportRowOutcome{
				RowIndex:   row.RowIndex,
				ExternalID: strings.TrimSpace(row.ExternalID),
			},
		}
	}

	// 阶段一：人脸拉取(软失败，不影响行结果)
	if opts.PullFaces {
		s.pullFaces(ctx, job, rows, results, opts)
	}

	// 阶段二：落库提交
	commitResult, err := s.Commit.Commit(ctx, commitCacheKey(job), rows)
	if err != nil {
		return nil, s.failJob(job, err)
	}

	outcomeByRow := make(map[int]ImportRowOutcome, len(commitResult.Rows))
	for _, outcome := range commitResult.Rows {
		outcomeByRow[outcome.RowIndex] = outcome
	}
	rowByIndex := make(map[int]ImportRowInput, len(rows))
	for _, row := range rows {
		rowByIndex[row.RowIndex] = row
	}

	// 阶段三：逐行收尾队列：应用提交结果、下发到终端，
	// 每行落定后立即把计数写回任务记录，轮询方能看到进行中的进度
	job.Processed = 0
	job.Success = 0
	job.Failed = 0
	job.Synced = 0
	var failedMessages []string
	for i := range results {
		if outcome, ok := outcomeByRow[results[i].RowIndex]; ok {
			results[i].ImportRowOutcome = outcome
		}
		status := "success"
		message := ""
		if results[i].Action == ImportRowActionInvalid {
			status = "error"
			message = results[i].Error
		}
		s.emit(opts, ImportRowEvent{
			JobID:      job.ID,
			RowIndex:   results[i].RowIndex,
			ExternalID: results[i].ExternalID,
			Stage:      "commit",
			Status:     status,
			Message:    message,
		})

		s.fanOutRow(ctx, job, rowByIndex[results[i].RowIndex], &results[i], opts)

		if msg := applyRowTally(job, &results[i]); msg != "" {
			failedMessages = append(failedMessages, msg)
		}
		s.persistCounters(job)
	}

	if job.Failed > 0 {
		job.Status = models.ImportJobStatusFailed
		job.LastError = strings.Join(failedMessages, "; ")
	} else {
		job.Status = models.ImportJobStatusSuccess
		job.LastError = ""
	}
	now := time.Now()
	job.FinishedAt = &now
	if err := s.DB.Save(job).Error; err != nil {
		return nil, err
	}

	s.publishProgress(job)
	s.Metrics.RecordJob(int64(job.TotalRows), int64(job.Success), int64(job.Failed), now.Sub(job.StartedAt).Milliseconds(), isRetry)
	s.Audit.AppendForJob(job.ID, "import.finish", string(job.Status),
		fmt.Sprintf("导入结束: 成功 %d, 失败 %d, 已下发 %d", job.Success, job.Failed, job.Synced), nil)

	return &ImportRunSummary{Job: job, Rows: results}, nil
}

// pullFaces 对缺少人脸的行用有界池从来源终端拉取人脸
func (s *ImportService) pullFaces(ctx context.Context, job *models.ImportJob, rows []ImportRowInput, results []ImportRowResult, opts ImportOptions) {
	indexByRow := make(map[int]int, len(rows))
	tasks := make([]FaceFetchTask, 0, len(rows))
	for i, row := range rows {
		indexByRow[row.RowIndex] = i
		if row.FaceImageBase64 != "" || row.SourceTerminalID == 0 {
			continue
		}
		tasks = append(tasks, FaceFetchTask{
			RowIndex:   row.RowIndex,
			EmployeeNo: strings.TrimSpace(row.ExternalID),
			TerminalID: row.SourceTerminalID,
		})
	}
	if len(tasks) == 0 {
		return
	}

	onStateChange := func(rowIndex int, loading bool) {
		status := "success"
		if loading {
			status = "loading"
		}
		s.emit(opts, ImportRowEvent{
			JobID:    job.ID,
			RowIndex: rowIndex,
			Stage:    "face",
			Status:   status,
		})
	}

	fetched := s.Pool.Run(ctx, tasks, onStateChange)

	var totalAttempts int64
	for rowIndex, result := range fetched {
		totalAttempts += int64(result.Attempts)
		i, ok := indexByRow[rowIndex]
		if !ok {
			continue
		}
		results[i].FaceAttempts = result.Attempts
		results[i].FacePulled = result.OK
		if result.OK {
			rows[i].FaceImageBase64 = result.ImageBase64
		}
	}
	s.Metrics.RecordFaceAttempts(totalAttempts)
}

// fanOutRow 对提交成功的单行做终端下发。下发失败转成该行的行级错误。
func (s *ImportService) fanOutRow(ctx context.Context, job *models.ImportJob, row ImportRowInput, result *ImportRowResult, opts ImportOptions) {
	if opts.SyncMode == SyncModeNone || opts.SyncMode == "" {
		return
	}
	if result.Action == ImportRowActionInvalid || result.StudentID == 0 {
		return
	}

	targets, err := s.Sync.ResolveTargets(opts.SyncMode, row.SourceTerminalID, opts.SelectedTerminalIDs)
	if err != nil {
		result.SyncError = err.Error()
		return
	}
	if len(targets) == 0 {
		return
	}

	syncResults, syncErr := s.Sync.SyncRecord(ctx, result.StudentID, targets)
	result.Sync = syncResults
	status := "success"
	message := ""
	if syncErr != nil {
		result.SyncError = syncErr.Error()
		status = "error"
		message = syncErr.Error()
	}
	s.emit(opts, ImportRowEvent{
		JobID:      job.ID,
		RowIndex:   result.RowIndex,
		ExternalID: result.ExternalID,
		Stage:      "sync",
		Status:     status,
		Message:    message,
	})
}

// applyRowTally 把单行的终态计入任务计数。
// 失败行返回用于 LastError 的描述，成功行返回空串。
func applyRowTally(job *models.ImportJob, result *ImportRowResult) string {
	job.Processed++
	if result.Failed() {
		job.Failed++
		reason := result.Error
		if reason == "" {
			reason = result.SyncError
		}
		return fmt.Sprintf("行%d: %s", result.RowIndex, reason)
	}
	job.Success++
	if len(result.Sync) > 0 {
		job.Synced++
	}
	return ""
}

// persistCounters 把行级计数写回任务记录。只影响进度可见性，失败只记日志。
func (s *ImportService) persistCounters(job *models.ImportJob) {
	err := s.DB.Model(&models.ImportJob{}).Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"processed": job.Processed,
			"success":   job.Success,
			"failed":    job.Failed,
			"synced":    job.Synced,
		}).Error
	if err != nil {
		config.Warning("任务进度写入失败 [%s]: %v", job.ID, err)
	}
}

// failJob 把任务落为失败终态
func (s *ImportService) failJob(job *models.ImportJob, cause error) error {
	job.Status = models.ImportJobStatusFailed
	job.LastError = cause.Error()
	now := time.Now()
	job.FinishedAt = &now
	if err := s.DB.Save(job).Error; err != nil {
		config.Error("任务终态写入失败 [%s]: %v", job.ID, err)
	}
	s.Audit.AppendForJob(job.ID, "import.finish", "FAILED", cause.Error(), nil)
	return cause
}

// 3 GetJob 按ID获取导入任务
func (s *ImportService) GetJob(jobID string) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := s.DB.Where("id = ?", jobID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("导入任务不存在")
		}
		return nil, err
	}
	return &job, nil
}

// 4 ListJobs 分页列出导入任务，按开始时间倒序
func (s *ImportService) ListJobs(query models.PaginationQuery) ([]models.ImportJob, int64, error) {
	pageNum := query.PageNum
	if pageNum < 1 {
		pageNum = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := s.DB.Model(&models.ImportJob{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []models.ImportJob
	err := s.DB.Order("started_at DESC").
		Offset((pageNum - 1) * pageSize).
		Limit(pageSize).
		Find(&jobs).Error
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}
