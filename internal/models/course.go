package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Course struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	Title            string          `gorm:"not null"`
	Description      string          `gorm:"not null"`
	ThumbnailPath    string
	Price            decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Discount         int             `gorm:"not null;default:0"`
	Published        bool            `gorm:"not null;default:false"`
	EducatorID       string          `gorm:"not null;index"`
	Educator         *User           `gorm:"foreignKey:EducatorID"`
	Chapters         []Chapter       `gorm:"constraint:OnDelete:CASCADE"`
	EnrolledStudents []*User         `gorm:"many2many:enrollments;"`
	Ratings          []Rating        `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (course *Course) BeforeCreate(tx *gorm.DB) (err error) {
	if course.ID == uuid.Nil {
		course.ID = uuid.New()
	}
	return
}

// ChargedAmount is the checkout amount after the course discount,
// rounded to two decimal places: price - price*discount/100.
func (course *Course) ChargedAmount() decimal.Decimal {
	discount := course.Price.Mul(decimal.NewFromInt(int64(course.Discount))).Div(decimal.NewFromInt(100))
	return course.Price.Sub(discount).Round(2)
}

type Chapter struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index"`
	Title    string    `gorm:"not null"`
	Position int       `gorm:"not null"`
	Lectures []Lecture `gorm:"constraint:OnDelete:CASCADE"`
}

func (chapter *Chapter) BeforeCreate(tx *gorm.DB) (err error) {
	if chapter.ID == uuid.Nil {
		chapter.ID = uuid.New()
	}
	return
}

type Lecture struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key"`
	ChapterID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Title           string    `gorm:"not null"`
	Position        int       `gorm:"not null"`
	DurationMinutes int       `gorm:"not null;default:0"`
	VideoURL        string
	IsPreviewFree   bool `gorm:"not null;default:false"`
}

func (lecture *Lecture) BeforeCreate(tx *gorm.DB) (err error) {
	if lecture.ID == uuid.Nil {
		lecture.ID = uuid.New()
	}
	return
}

// Enrollment is the join row behind both User.EnrolledCourses and
// Course.EnrolledStudents. One row grants both sides of the enrollment,
// so the two sets cannot drift apart.
type Enrollment struct {
	UserID   string    `gorm:"primaryKey"`
	CourseID uuid.UUID `gorm:"type:uuid;primaryKey"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
