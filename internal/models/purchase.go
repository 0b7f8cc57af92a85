package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
)

// Terminal reports whether no further status transition is permitted.
func (s PurchaseStatus) Terminal() bool {
	return s == PurchaseStatusCompleted || s == PurchaseStatusFailed
}

// Purchase records one student's intent to buy one course. Created in
// pending status by checkout initiation and mutated only by the webhook
// reconciler; rows are never deleted.
type Purchase struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	CourseID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Course    *Course         `gorm:"foreignKey:CourseID"`
	UserID    string          `gorm:"not null;index"`
	User      *User           `gorm:"foreignKey:UserID"`
	Amount    decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Status    PurchaseStatus  `gorm:"type:varchar(16);not null;default:'pending'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (purchase *Purchase) BeforeCreate(tx *gorm.DB) (err error) {
	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	return
}
