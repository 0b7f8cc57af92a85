package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CourseProgress struct {
	ID                uuid.UUID  `gorm:"type:uuid;primary_key"`
	UserID            string     `gorm:"not null;uniqueIndex:idx_progress_user_course"`
	CourseID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_course"`
	Completed         bool       `gorm:"not null;default:false"`
	CompletedLectures []*Lecture `gorm:"many2many:lecture_completions;"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (progress *CourseProgress) BeforeCreate(tx *gorm.DB) (err error) {
	if progress.ID == uuid.Nil {
		progress.ID = uuid.New()
	}
	return
}

type LectureCompletion struct {
	CourseProgressID uuid.UUID `gorm:"type:uuid;primaryKey"`
	LectureID        uuid.UUID `gorm:"type:uuid;primaryKey"`
}

func (LectureCompletion) TableName() string {
	return "lecture_completions"
}
