package model

import "time"

// 英语水平（CEFR）
var EnglishLevels = []string{"A1", "A2", "B1", "B2", "C1", "C2"}

// IsEnglishLevel 是否为合法的 CEFR 等级
func IsEnglishLevel(level string) bool {
	for _, l := range EnglishLevels {
		if l == level {
			return true
		}
	}
	return false
}

// Application 交换申请，对应 applications
type Application struct {
	ID                       int64       `gorm:"primaryKey;autoIncrement"              json:"id"`
	UserID                   int64       `gorm:"not null;uniqueIndex"                  json:"user_id"`
	PassedCoursesPercent     float64     `gorm:"type:numeric(5,2);not null"            json:"passed_courses_percent"`
	AverageGrade             float64     `gorm:"type:numeric(4,2);not null"            json:"average_grade"`
	EnglishLevel             string      `gorm:"type:varchar(2);not null"              json:"english_level"`
	KnowsExtraLanguages      bool        `gorm:"not null;default:false"                json:"knows_extra_languages"`
	FirstChoiceUniversityID  int64       `gorm:"not null"                              json:"first_choice_university_id"`
	SecondChoiceUniversityID *int64      `gorm:"column:second_choice_university_id"   json:"second_choice_university_id,omitempty"`
	ThirdChoiceUniversityID  *int64      `gorm:"column:third_choice_university_id"    json:"third_choice_university_id,omitempty"`
	TranscriptFile           string      `gorm:"type:varchar(255);not null"            json:"transcript_file"`
	EnglishCertificateFile   string      `gorm:"type:varchar(255);not null"            json:"english_certificate_file"`
	OtherCertificatesFiles   StringArray `gorm:"type:text[];not null;default:'{}'"     json:"other_certificates_files"`
	TermsAccepted            bool        `gorm:"not null;default:false"                json:"terms_accepted"`
	IsAccepted               bool        `gorm:"not null;default:false"                json:"is_accepted"`
	SubmittedAt              time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP"    json:"submitted_at"`

	// 关联（只读）
	User         *User       `gorm:"foreignKey:UserID"                                           json:"user,omitempty"`
	FirstChoice  *University `gorm:"foreignKey:FirstChoiceUniversityID;references:UniversityID"  json:"first_choice,omitempty"`
	SecondChoice *University `gorm:"foreignKey:SecondChoiceUniversityID;references:UniversityID" json:"second_choice,omitempty"`
	ThirdChoice  *University `gorm:"foreignKey:ThirdChoiceUniversityID;references:UniversityID"  json:"third_choice,omitempty"`
}

// TableName 指定表名
func (Application) TableName() string { return "applications" }

// StoredFiles 本申请拥有的全部物理文件名（成绩单、英语证书、其他证书，按此顺序）
func (a *Application) StoredFiles() []string {
	files := make([]string, 0, 2+len(a.OtherCertificatesFiles))
	if a.TranscriptFile != "" {
		files = append(files, a.TranscriptFile)
	}
	if a.EnglishCertificateFile != "" {
		files = append(files, a.EnglishCertificateFile)
	}
	return append(files, a.OtherCertificatesFiles...)
}
