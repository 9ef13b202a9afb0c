package model

import (
	"database/sql/driver"

	"github.com/lib/pq"
)

// ── PostgreSQL TEXT[] ──

// StringArray 对应 PostgreSQL TEXT[]，编解码交给 pq.StringArray。
// nil 写入为空数组，与列上的 NOT NULL DEFAULT '{}' 一致。
type StringArray []string

// Scan 实现 sql.Scanner
func (a *StringArray) Scan(src interface{}) error {
	return (*pq.StringArray)(a).Scan(src)
}

// Value 实现 driver.Valuer
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	return pq.StringArray(a).Value()
}
