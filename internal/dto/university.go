package dto

// CreateUniversityRequest 新增合作院校
type CreateUniversityRequest struct {
	UniversityName string `json:"university_name" binding:"required,max=255"`
	Country        string `json:"country"         binding:"required,max=100"`
	City           string `json:"city"            binding:"omitempty,max=100"`
	Website        string `json:"website"         binding:"omitempty,url,max=255"`
}

// UniversityResponse 合作院校
type UniversityResponse struct {
	UniversityID   int64  `json:"university_id"`
	UniversityName string `json:"university_name"`
	Country        string `json:"country"`
	City           string `json:"city"`
	Website        string `json:"website"`
}
