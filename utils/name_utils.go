package utils

import (
	"strings"
)

// SplitNameResult 姓名拆分结果
type SplitNameResult struct {
	FirstName string
	LastName  string
}

// SplitFullNameResult 包含父称的姓名拆分结果
type SplitFullNameResult struct {
	FirstName  string
	LastName   string
	FatherName string
}

// SplitPersonName 将终端上的完整姓名拆分为姓和名。
// 单个词只有名；多个词时第一个词为姓，其余为名。
// 归一化和导入行构建都必须使用这个函数，保证拆分结果一致。
func SplitPersonName(value string) SplitNameResult {
	parts := strings.Fields(strings.TrimSpace(value))
	if len(parts) == 0 {
		return SplitNameResult{}
	}
	if len(parts) == 1 {
		return SplitNameResult{FirstName: parts[0]}
	}

	return SplitNameResult{
		LastName:  parts[0],
		FirstName: strings.Join(parts[1:], " "),
	}
}

// SplitPersonNameWithFather 将完整姓名拆分为姓、名和父称
func SplitPersonNameWithFather(value string) SplitFullNameResult {
	parts := strings.Fields(strings.TrimSpace(value))
	if len(parts) == 0 {
		return SplitFullNameResult{}
	}
	if len(parts) == 1 {
		return SplitFullNameResult{LastName: parts[0]}
	}
	if len(parts) == 2 {
		return SplitFullNameResult{LastName: parts[0], FirstName: parts[1]}
	}

	return SplitFullNameResult{
		LastName:   parts[0],
		FirstName:  parts[1],
		FatherName: strings.Join(parts[2:], " "),
	}
}

// NormalizeNamePart 去除首尾空白并压缩中间的多余空白
func NormalizeNamePart(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// NormalizeGender 将终端返回的性别值归一化为 male/female，默认 male
func NormalizeGender(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "female", "f", "woman", "girl", "2":
		return "female"
	default:
		return "male"
	}
}
