package models

import "time"

// SequenceCounter is the durable row behind a numbering namespace.
type SequenceCounter struct {
	Name      string    `gorm:"column:name;type:text;primaryKey"`
	Value     int64     `gorm:"column:value;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SequenceCounter) TableName() string {
	return "sequence_counters"
}
