package model

import "time"

// ApplicationPeriod 申请期，对应 application_periods
// StartDate / EndDate 为日期（DATE），按 UTC 零点存取
type ApplicationPeriod struct {
	ID          int64      `gorm:"primaryKey;autoIncrement"           json:"id"`
	StartDate   time.Time  `gorm:"type:date;not null"                 json:"start_date"`
	EndDate     time.Time  `gorm:"type:date;not null"                 json:"end_date"`
	IsActive    bool       `gorm:"not null;default:false"             json:"is_active"`
	PublishedAt *time.Time `gorm:"column:published_at"                    json:"published_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (ApplicationPeriod) TableName() string { return "application_periods" }

// Contains 判断某天（日期粒度）是否落在 [StartDate, EndDate] 内，结束日当天仍有效
func (p *ApplicationPeriod) Contains(day time.Time) bool {
	d := DateOf(day)
	return !d.Before(DateOf(p.StartDate)) && !d.After(DateOf(p.EndDate))
}

// DateOf 取 t 在其自身时区下的日历日期，以 UTC 零点表示
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
