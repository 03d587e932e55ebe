package services

import (
	"strings"
	"testing"

	"iface-http-service/models"
)

func TestComputeProvisioningStatus(t *testing.T) {
	link := func(status models.DeviceLinkStatus) models.ProvisioningDeviceLink {
		return models.ProvisioningDeviceLink{Status: status}
	}

	cases := []struct {
		name  string
		links []models.ProvisioningDeviceLink
		want  models.ProvisioningStatus
	}{
		{
			name:  "无配对时保持处理中",
			links: nil,
			want:  models.ProvisioningStatusProcessing,
		},
		{
			name:  "全部成功",
			links: []models.ProvisioningDeviceLink{link(models.DeviceLinkStatusSuccess), link(models.DeviceLinkStatusSuccess)},
			want:  models.ProvisioningStatusConfirmed,
		},
		{
			name:  "全部失败",
			links: []models.ProvisioningDeviceLink{link(models.DeviceLinkStatusFailed), link(models.DeviceLinkStatusFailed)},
			want:  models.ProvisioningStatusFailed,
		},
		{
			name:  "两成功一失败为部分完成",
			links: []models.ProvisioningDeviceLink{link(models.DeviceLinkStatusSuccess), link(models.DeviceLinkStatusSuccess), link(models.DeviceLinkStatusFailed)},
			want:  models.ProvisioningStatusPartial,
		},
		{
			name:  "有失败有待定仍为部分完成",
			links: []models.ProvisioningDeviceLink{link(models.DeviceLinkStatusFailed), link(models.DeviceLinkStatusPending)},
			want:  models.ProvisioningStatusPartial,
		},
		{
			name:  "成功加待定为处理中",
			links: []models.ProvisioningDeviceLink{link(models.DeviceLinkStatusSuccess), link(models.DeviceLinkStatusPending)},
			want:  models.ProvisioningStatusProcessing,
		},
	}

	for _, tc := range cases {
		if got := ComputeProvisioningStatus(tc.links); got != tc.want {
			t.Errorf("%s: ComputeProvisioningStatus = %s, 期望 %s", tc.name, got, tc.want)
		}
	}
}

func TestAggregateSyncError(t *testing.T) {
	allOK := []TerminalSyncResult{
		{TerminalID: 1, TerminalName: "Kirish-1", Status: "SUCCESS"},
		{TerminalID: 2, TerminalName: "Kirish-2", Status: "SUCCESS"},
	}
	if err := AggregateSyncError(allOK); err != nil {
		t.Errorf("全部成功应返回nil, 实际 %v", err)
	}

	mixed := []TerminalSyncResult{
		{TerminalID: 1, TerminalName: "Kirish-1", Status: "SUCCESS"},
		{TerminalID: 2, TerminalName: "Kirish-2", Status: "FAILED", LastError: "connection refused"},
		{TerminalID: 3, Status: "FAILED", LastError: "timeout"},
	}
	err := AggregateSyncError(mixed)
	if err == nil {
		t.Fatal("有失败终端应返回错误")
	}

	msg := err.Error()
	if !strings.Contains(msg, "Kirish-2: connection refused") {
		t.Errorf("错误应包含失败终端和原因: %q", msg)
	}
	// 没有名称的终端用ID兜底
	if !strings.Contains(msg, "terminal-3: timeout") {
		t.Errorf("错误应包含无名终端的ID标签: %q", msg)
	}
	if strings.Contains(msg, "Kirish-1") {
		t.Errorf("成功终端不应出现在错误里: %q", msg)
	}
}
