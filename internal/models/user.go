package models

import (
	"time"
)

type Role string

const (
	RoleStudent  Role = "student"
	RoleEducator Role = "educator"
)

// User identity is federated: ID is the identity provider's subject id,
// created and removed by the identity webhook, never issued locally.
type User struct {
	ID              string `gorm:"primaryKey"`
	Name            string `gorm:"not null"`
	Email           string `gorm:"not null;index"`
	ImageURL        string
	Role            Role      `gorm:"type:varchar(16);not null;default:'student'"`
	EnrolledCourses []*Course `gorm:"many2many:enrollments;"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
