package services

import (
	"strings"

	"iface-http-service/utils"
)

// RawCandidate 终端发现流程返回的原始身份记录
type RawCandidate struct {
	ExternalID       string `json:"external_id"` // 终端上的工号/学号
	DisplayName      string `json:"display_name"`
	GenderRaw        string `json:"gender_raw"`
	FaceCount        int    `json:"face_count"`
	SourceTerminalID uint   `json:"source_terminal_id"`
}

// NormalizedCandidate 归一化后的候选记录，身份键在一次去重内唯一
type NormalizedCandidate struct {
	ExternalID       string `json:"external_id"`
	DisplayName      string `json:"display_name"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Gender           string `json:"gender"` // male | female
	HasFace          bool   `json:"has_face"`
	SourceTerminalID uint   `json:"source_terminal_id"`
}

// DedupeResult 一次归一化/去重的结果
type DedupeResult struct {
	Normalized     []NormalizedCandidate `json:"normalized"`
	TotalRaw       int                   `json:"total_raw"`
	UniqueCount    int                   `json:"unique_count"`
	DuplicateCount int                   `json:"duplicate_count"`
}

// candidateKey 构建候选记录的身份键：优先工号，否则用小写去空格的姓名
func candidateKey(c RawCandidate) string {
	externalID := strings.ToLower(strings.TrimSpace(c.ExternalID))
	if externalID != "" {
		return "external:" + externalID
	}
	return "name:" + strings.ToLower(strings.TrimSpace(c.DisplayName))
}

// preferCandidate 在身份键冲突时选择保留哪条记录。
// 有人脸数据的优先；都有或都没有时保留姓名更长的那条。
// 这里的"更长姓名优先"是沿用的策略而非正确性要求。
func preferCandidate(current, incoming RawCandidate) RawCandidate {
	currentHasFace := current.FaceCount > 0
	incomingHasFace := incoming.FaceCount > 0
	if !currentHasFace && incomingHasFace {
		return incoming
	}
	if currentHasFace && !incomingHasFace {
		return current
	}

	if len(strings.TrimSpace(incoming.DisplayName)) > len(strings.TrimSpace(current.DisplayName)) {
		return incoming
	}
	return current
}

// NormalizeAndDedupeCandidates 对原始候选记录做归一化和按身份键去重。
// 纯函数，不做任何I/O。每发生一次合并 duplicateCount 加一，
// 因此三条记录撞同一个键时 duplicateCount 为2。
func NormalizeAndDedupeCandidates(candidates []RawCandidate) DedupeResult {
	byKey := make(map[string]RawCandidate)
	order := make([]string, 0, len(candidates))
	duplicateCount := 0

	for _, candidate := range candidates {
		key := candidateKey(candidate)
		existing, ok := byKey[key]
		if !ok {
			byKey[key] = candidate
			order = append(order, key)
			continue
		}
		duplicateCount++
		byKey[key] = preferCandidate(existing, candidate)
	}

	normalized := make([]NormalizedCandidate, 0, len(order))
	for _, key := range order {
		item := byKey[key]
		parsed := utils.SplitPersonName(item.DisplayName)
		normalized = append(normalized, NormalizedCandidate{
			ExternalID:       strings.TrimSpace(item.ExternalID),
			DisplayName:      strings.TrimSpace(item.DisplayName),
			FirstName:        parsed.FirstName,
			LastName:         parsed.LastName,
			Gender:           utils.NormalizeGender(item.GenderRaw),
			HasFace:          item.FaceCount > 0,
			SourceTerminalID: item.SourceTerminalID,
		})
	}

	return DedupeResult{
		Normalized:     normalized,
		TotalRaw:       len(candidates),
		UniqueCount:    len(normalized),
		DuplicateCount: duplicateCount,
	}
}
