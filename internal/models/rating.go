package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating is keyed by (course, user); resubmitting overwrites the old value.
type Rating struct {
	CourseID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"primaryKey"`
	Value     int       `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
