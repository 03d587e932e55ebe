package services

import (
	"testing"
)

func TestNormalizeAndDedupeCandidatesByExternalID(t *testing.T) {
	raw := []RawCandidate{
		{ExternalID: "1001", DisplayName: "Aliyev Vali", FaceCount: 0, SourceTerminalID: 1},
		{ExternalID: " 1001 ", DisplayName: "Aliyev V", FaceCount: 1, SourceTerminalID: 2},
		{ExternalID: "1002", DisplayName: "Karimova Nilufar", FaceCount: 1, SourceTerminalID: 1},
	}

	result := NormalizeAndDedupeCandidates(raw)

	if result.TotalRaw != 3 {
		t.Errorf("TotalRaw = %d, 期望 3", result.TotalRaw)
	}
	if result.UniqueCount != 2 {
		t.Errorf("UniqueCount = %d, 期望 2", result.UniqueCount)
	}
	if result.DuplicateCount != 1 {
		t.Errorf("DuplicateCount = %d, 期望 1", result.DuplicateCount)
	}

	// 有人脸的记录胜出，即使姓名更短
	first := result.Normalized[0]
	if first.DisplayName != "Aliyev V" {
		t.Errorf("保留的记录 = %q, 期望有人脸的 \"Aliyev V\"", first.DisplayName)
	}
	if !first.HasFace {
		t.Error("胜出记录应标记 HasFace")
	}
	if first.SourceTerminalID != 2 {
		t.Errorf("SourceTerminalID = %d, 期望 2", first.SourceTerminalID)
	}
}

func TestNormalizeAndDedupeCandidatesByName(t *testing.T) {
	// 没有工号时按小写去空格的姓名去重
	raw := []RawCandidate{
		{DisplayName: "Ali Vali"},
		{DisplayName: "  ali vali  "},
		{DisplayName: "ALI VALI", FaceCount: 2},
	}

	result := NormalizeAndDedupeCandidates(raw)

	if result.UniqueCount != 1 {
		t.Fatalf("UniqueCount = %d, 期望 1", result.UniqueCount)
	}
	// 三条撞同一个键，合并两次
	if result.DuplicateCount != 2 {
		t.Errorf("DuplicateCount = %d, 期望 2", result.DuplicateCount)
	}
	if !result.Normalized[0].HasFace {
		t.Error("应保留有人脸的那条记录")
	}
}

func TestNormalizeAndDedupeCandidatesPrefersLongerName(t *testing.T) {
	raw := []RawCandidate{
		{ExternalID: "2001", DisplayName: "Usmonov A"},
		{ExternalID: "2001", DisplayName: "Usmonov Abdulla"},
	}

	result := NormalizeAndDedupeCandidates(raw)

	if result.Normalized[0].DisplayName != "Usmonov Abdulla" {
		t.Errorf("保留的姓名 = %q, 期望更长的 \"Usmonov Abdulla\"", result.Normalized[0].DisplayName)
	}
}

func TestNormalizeAndDedupeCandidatesIdempotent(t *testing.T) {
	raw := []RawCandidate{
		{ExternalID: "1001", DisplayName: "Aliyev Vali", FaceCount: 1},
		{ExternalID: "1002", DisplayName: "Karimova Nilufar"},
	}

	first := NormalizeAndDedupeCandidates(raw)

	// 把去重结果再喂一遍，结果应不变
	again := make([]RawCandidate, 0, len(first.Normalized))
	for _, item := range first.Normalized {
		faceCount := 0
		if item.HasFace {
			faceCount = 1
		}
		again = append(again, RawCandidate{
			ExternalID:  item.ExternalID,
			DisplayName: item.DisplayName,
			FaceCount:   faceCount,
		})
	}

	second := NormalizeAndDedupeCandidates(again)
	if second.UniqueCount != first.UniqueCount {
		t.Errorf("二次去重 UniqueCount = %d, 期望 %d", second.UniqueCount, first.UniqueCount)
	}
	if second.DuplicateCount != 0 {
		t.Errorf("二次去重 DuplicateCount = %d, 期望 0", second.DuplicateCount)
	}
}

func TestNormalizedCandidateNameSplit(t *testing.T) {
	raw := []RawCandidate{
		{ExternalID: "3001", DisplayName: "Bekzod"},
		{ExternalID: "3002", DisplayName: "Rahimov Bekzod Akmal"},
	}

	result := NormalizeAndDedupeCandidates(raw)

	// 单个词只有名
	if result.Normalized[0].FirstName != "Bekzod" || result.Normalized[0].LastName != "" {
		t.Errorf("单词姓名拆分错误: first=%q last=%q", result.Normalized[0].FirstName, result.Normalized[0].LastName)
	}
	// 多个词时第一个词为姓，其余为名
	if result.Normalized[1].LastName != "Rahimov" || result.Normalized[1].FirstName != "Bekzod Akmal" {
		t.Errorf("多词姓名拆分错误: first=%q last=%q", result.Normalized[1].FirstName, result.Normalized[1].LastName)
	}
}

func TestDeviceErrorMessageFormat(t *testing.T) {
	err := NewDeviceError(DeviceErrCodeCredentialsExpired, "Kirish-1", "")
	want := "[CREDENTIALS_EXPIRED] 本地凭据已过期 (Kirish-1)"
	if err.Error() != want {
		t.Errorf("Error() = %q, 期望 %q", err.Error(), want)
	}

	err = NewDeviceError(DeviceErrCodeNotFound, "", "")
	if err.Error() != "[DEVICE_NOT_FOUND] 终端不存在" {
		t.Errorf("Error() = %q", err.Error())
	}
}
