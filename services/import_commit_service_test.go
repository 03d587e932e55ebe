package services

import (
	"testing"
)

func TestValidateRow(t *testing.T) {
	valid := ImportRowInput{ExternalID: "1001", FirstName: "Vali", LastName: "Aliyev", ClassID: 1}
	if reason := validateRow(valid); reason != "" {
		t.Errorf("合法行被拒绝: %s", reason)
	}

	cases := []struct {
		name string
		row  ImportRowInput
	}{
		{"缺少学号", ImportRowInput{FirstName: "Vali", ClassID: 1}},
		{"学号全空白", ImportRowInput{ExternalID: "   ", FirstName: "Vali", ClassID: 1}},
		{"缺少姓名", ImportRowInput{ExternalID: "1001", ClassID: 1}},
		{"缺少班级", ImportRowInput{ExternalID: "1001", FirstName: "Vali"}},
	}

	for _, tc := range cases {
		if reason := validateRow(tc.row); reason == "" {
			t.Errorf("%s: 非法行未被拒绝", tc.name)
		}
	}

	// 只有姓也算有姓名
	onlyLast := ImportRowInput{ExternalID: "1001", LastName: "Aliyev", ClassID: 1}
	if reason := validateRow(onlyLast); reason != "" {
		t.Errorf("只有姓的行被拒绝: %s", reason)
	}
}

func TestCommitCacheKeyChangesWithRetry(t *testing.T) {
	job := newTestJob()

	firstKey := commitCacheKey(job)
	job.RetryCount++
	retryKey := commitCacheKey(job)

	// 幂等键本身不变，但每次重试的提交缓存键必须不同
	if firstKey == retryKey {
		t.Errorf("重试的缓存键与首次相同: %q", firstKey)
	}
}
