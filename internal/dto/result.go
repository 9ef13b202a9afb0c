package dto

// ── 结果发布模块 DTO ──

// ResultEntry 排名中的一条录取记录
type ResultEntry struct {
	Rank                 int     `json:"rank"`
	ApplicationID        int64   `json:"application_id"`
	FirstName            string  `json:"first_name"`
	LastName             string  `json:"last_name"`
	StudentID            string  `json:"student_id"`
	AverageGrade         float64 `json:"average_grade"`
	PassedCoursesPercent float64 `json:"passed_courses_percent"`
	EnglishLevel         string  `json:"english_level"`
	FirstChoice          string  `json:"first_choice"`
	SubmittedAt          string  `json:"submitted_at"`
}

// PublishResponse 发布结果
type PublishResponse struct {
	Period      PeriodResponse `json:"period"`
	PublishedAt string         `json:"published_at"`
	Results     []ResultEntry  `json:"results"`
}
