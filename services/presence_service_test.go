package services

import (
	"testing"
)

func TestComputePresenceSummary(t *testing.T) {
	present := TerminalPresenceResult{Status: PresenceStatusPresent}
	absent := TerminalPresenceResult{Status: PresenceStatusAbsent}
	offline := TerminalPresenceResult{Status: PresenceStatusOffline}
	expired := TerminalPresenceResult{Status: PresenceStatusExpired}

	cases := []struct {
		name    string
		results []TerminalPresenceResult
		pending int
		want    string
	}{
		{
			name:    "全部待检查",
			results: nil,
			pending: 3,
			want:    "Tekshirilmoqda...",
		},
		{
			name:    "部分完成",
			results: []TerminalPresenceResult{present},
			pending: 2,
			want:    "Jarayonda 1/3",
		},
		{
			name:    "全部在终端上",
			results: []TerminalPresenceResult{present, present, present},
			pending: 0,
			want:    "OK 3/3",
		},
		{
			name:    "一个终端有问题",
			results: []TerminalPresenceResult{present, offline},
			pending: 0,
			want:    "Muammo 1",
		},
		{
			name:    "多个问题合并计数",
			results: []TerminalPresenceResult{absent, offline, expired},
			pending: 0,
			want:    "Muammo 3",
		},
		{
			name:    "没有终端",
			results: nil,
			pending: 0,
			want:    "OK 0/0",
		},
	}

	for _, tc := range cases {
		if got := ComputePresenceSummary(tc.results, tc.pending); got != tc.want {
			t.Errorf("%s: summary = %q, 期望 %q", tc.name, got, tc.want)
		}
	}
}
