package model

import (
	"testing"
	"time"
)

func TestApplicationPeriod_Contains(t *testing.T) {
	p := &ApplicationPeriod{
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	athens, _ := time.LoadLocation("Europe/Athens")

	cases := []struct {
		at   time.Time
		want bool
	}{
		{time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC), false},
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC), true},
		{time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), false},
		// 雅典时间 2月1日 00:30 对应 UTC 1月31日 22:30，按本地日期已过期
		{time.Date(2025, 2, 1, 0, 30, 0, 0, athens), false},
	}
	for _, tc := range cases {
		if got := p.Contains(tc.at); got != tc.want {
			t.Errorf("Contains(%s): 期望 %v，实际 %v", tc.at, tc.want, got)
		}
	}
}

func TestApplication_StoredFiles(t *testing.T) {
	a := &Application{
		TranscriptFile:         "transcript_1.pdf",
		EnglishCertificateFile: "english_certificate_1.pdf",
		OtherCertificatesFiles: StringArray{"other_certificate_1_a.png", "other_certificate_1_b.png"},
	}
	got := a.StoredFiles()
	if len(got) != 4 || got[0] != "transcript_1.pdf" || got[3] != "other_certificate_1_b.png" {
		t.Errorf("StoredFiles 顺序或内容不符合预期: %v", got)
	}
}

func TestIsEnglishLevel(t *testing.T) {
	for _, l := range []string{"A1", "B2", "C2"} {
		if !IsEnglishLevel(l) {
			t.Errorf("%s 应为合法等级", l)
		}
	}
	for _, l := range []string{"", "b2", "C3", "B2 "} {
		if IsEnglishLevel(l) {
			t.Errorf("%q 不应为合法等级", l)
		}
	}
}
