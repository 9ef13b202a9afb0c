package model

// University 合作院校，对应 universities
type University struct {
	UniversityID   int64  `gorm:"column:university_id;primaryKey;autoIncrement" json:"university_id"`
	UniversityName string `gorm:"type:varchar(255);not null"                    json:"university_name"`
	Country        string `gorm:"type:varchar(100);not null"                    json:"country"`
	City           string `gorm:"type:varchar(100);not null;default:''"         json:"city"`
	Website        string `gorm:"type:varchar(255);not null;default:''"         json:"website"`
}

// TableName 指定表名
func (University) TableName() string { return "universities" }
