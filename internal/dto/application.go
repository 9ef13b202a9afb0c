package dto

// ── 申请模块 DTO ──

// SubmitApplicationRequest 提交申请的表单字段（multipart/form-data）
// 文件字段 transcript_file / english_certificate_file / other_certificates_files 由 Handler 单独读取
// 这里只做类型解码：必填、取值范围、志愿院校存在性都由 Service 在申请期与重复检查之后校验
type SubmitApplicationRequest struct {
	PassedCoursesPercent     *float64 `form:"passed_courses_percent"`
	AverageGrade             *float64 `form:"average_grade"`
	EnglishLevel             string   `form:"english_level"`
	KnowsExtraLanguages      bool     `form:"knows_extra_languages"`
	FirstChoiceUniversityID  int64    `form:"first_choice_university_id"`
	SecondChoiceUniversityID *int64   `form:"second_choice_university_id"`
	ThirdChoiceUniversityID  *int64   `form:"third_choice_university_id"`
	TermsAccepted            bool     `form:"terms_accepted"`
}

// SubmitApplicationResponse 提交成功响应
type SubmitApplicationResponse struct {
	ApplicationID int64 `json:"application_id"`
}

// CheckStatusResponse 是否已提交申请
type CheckStatusResponse struct {
	HasApplication bool `json:"has_application"`
}

// ApplicationResponse 申请详情
type ApplicationResponse struct {
	ID                     int64               `json:"id"`
	UserID                 int64               `json:"user_id"`
	FirstName              string              `json:"first_name,omitempty"`
	LastName               string              `json:"last_name,omitempty"`
	StudentID              string              `json:"student_id,omitempty"`
	PassedCoursesPercent   float64             `json:"passed_courses_percent"`
	AverageGrade           float64             `json:"average_grade"`
	EnglishLevel           string              `json:"english_level"`
	KnowsExtraLanguages    bool                `json:"knows_extra_languages"`
	FirstChoice            *UniversityResponse `json:"first_choice,omitempty"`
	SecondChoice           *UniversityResponse `json:"second_choice,omitempty"`
	ThirdChoice            *UniversityResponse `json:"third_choice,omitempty"`
	TranscriptFile         string              `json:"transcript_file"`
	EnglishCertificateFile string              `json:"english_certificate_file"`
	OtherCertificatesFiles []string            `json:"other_certificates_files"`
	TermsAccepted          bool                `json:"terms_accepted"`
	IsAccepted             bool                `json:"is_accepted"`
	SubmittedAt            string              `json:"submitted_at"`
}

// BulkAcceptRequest 批量录取；空数组表示清空全部录取
type BulkAcceptRequest struct {
	ApplicationIDs []int64 `json:"applicationIds" binding:"required"`
}

// BulkAcceptResponse 批量录取结果
type BulkAcceptResponse struct {
	Accepted int64 `json:"accepted"`
}

// DeleteApplicationResponse 删除申请结果
type DeleteApplicationResponse struct {
	RemovedFiles []string `json:"removed_files"`
}
