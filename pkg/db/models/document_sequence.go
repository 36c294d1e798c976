package models

import "time"

// DocumentSequence is the per-type counter behind document numbers. Rows are never deleted.
type DocumentSequence struct {
	TypeCode   string    `gorm:"column:type_code;primaryKey" json:"typeCode"`
	Prefix     string    `gorm:"column:prefix;not null" json:"prefix"`
	NextNumber int64     `gorm:"column:next_number;not null;default:1" json:"nextNumber"`
	Format     string    `gorm:"column:format;not null" json:"format"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TraceCodeCounter holds the last issued number per traceability prefix and calendar day.
type TraceCodeCounter struct {
	Prefix     string `gorm:"column:prefix;primaryKey" json:"prefix"`
	Day        string `gorm:"column:day;primaryKey" json:"day"`
	LastNumber int64  `gorm:"column:last_number;not null;default:0" json:"lastNumber"`
}
