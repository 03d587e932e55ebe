package utils

import (
	"testing"
)

func TestSplitPersonName(t *testing.T) {
	cases := []struct {
		input     string
		firstName string
		lastName  string
	}{
		{"", "", ""},
		{"   ", "", ""},
		{"Bekzod", "Bekzod", ""},
		{"Aliyev Vali", "Vali", "Aliyev"},
		{"Rahimov Bekzod Akmal", "Bekzod Akmal", "Rahimov"},
		{"  Aliyev   Vali  ", "Vali", "Aliyev"},
	}

	for _, tc := range cases {
		got := SplitPersonName(tc.input)
		if got.FirstName != tc.firstName || got.LastName != tc.lastName {
			t.Errorf("SplitPersonName(%q) = {first:%q last:%q}, 期望 {first:%q last:%q}",
				tc.input, got.FirstName, got.LastName, tc.firstName, tc.lastName)
		}
	}
}

func TestSplitPersonNameWithFather(t *testing.T) {
	got := SplitPersonNameWithFather("Rahimov Bekzod Akmal o'g'li")
	if got.LastName != "Rahimov" || got.FirstName != "Bekzod" || got.FatherName != "Akmal o'g'li" {
		t.Errorf("拆分结果 = %+v", got)
	}

	got = SplitPersonNameWithFather("Bekzod")
	if got.LastName != "Bekzod" || got.FirstName != "" {
		t.Errorf("单词拆分结果 = %+v", got)
	}
}

func TestNormalizeGender(t *testing.T) {
	femaleInputs := []string{"female", "F", " Woman ", "girl", "2"}
	for _, input := range femaleInputs {
		if got := NormalizeGender(input); got != "female" {
			t.Errorf("NormalizeGender(%q) = %q, 期望 female", input, got)
		}
	}

	maleInputs := []string{"male", "M", "1", "", "unknown"}
	for _, input := range maleInputs {
		if got := NormalizeGender(input); got != "male" {
			t.Errorf("NormalizeGender(%q) = %q, 期望 male", input, got)
		}
	}
}

func TestNormalizeNamePart(t *testing.T) {
	if got := NormalizeNamePart("  Aliyev   Vali  "); got != "Aliyev Vali" {
		t.Errorf("NormalizeNamePart = %q", got)
	}
}
