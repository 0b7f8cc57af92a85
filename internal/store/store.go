package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nadhifgr/learnsphere/internal/errs"
	"github.com/nadhifgr/learnsphere/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements webhook.Store on top of the application database.
type GormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) PurchaseByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := s.db.WithContext(ctx).First(&purchase, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: purchase %s", errs.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: loading purchase: %v", errs.ErrPersistence, err)
	}
	return &purchase, nil
}

func (s *GormStore) UserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", errs.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: loading user: %v", errs.ErrPersistence, err)
	}
	return &user, nil
}

func (s *GormStore) CourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := s.db.WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: course %s", errs.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: loading course: %v", errs.ErrPersistence, err)
	}
	return &course, nil
}

// CompletePurchase commits the enrollment join row and the terminal status in
// one transaction. The join insert uses ON CONFLICT DO NOTHING, so applying
// it again for an already-enrolled user changes nothing, and the status
// update is guarded on the row still being pending.
func (s *GormStore) CompletePurchase(ctx context.Context, purchase *models.Purchase) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollment := models.Enrollment{UserID: purchase.UserID, CourseID: purchase.CourseID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&enrollment).Error; err != nil {
			return err
		}

		return tx.Model(&models.Purchase{}).
			Where("id = ? AND status = ?", purchase.ID, models.PurchaseStatusPending).
			Update("status", models.PurchaseStatusCompleted).Error
	})
	if err != nil {
		return fmt.Errorf("%w: completing purchase %s: %v", errs.ErrPersistence, purchase.ID, err)
	}

	purchase.Status = models.PurchaseStatusCompleted
	return nil
}

func (s *GormStore) FailPurchase(ctx context.Context, purchase *models.Purchase) error {
	err := s.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ? AND status = ?", purchase.ID, models.PurchaseStatusPending).
		Update("status", models.PurchaseStatusFailed).Error
	if err != nil {
		return fmt.Errorf("%w: failing purchase %s: %v", errs.ErrPersistence, purchase.ID, err)
	}

	purchase.Status = models.PurchaseStatusFailed
	return nil
}

// UpsertUser creates or refreshes the local copy of a federated user. The
// role column is only touched when the event carries a role claim.
func (s *GormStore) UpsertUser(ctx context.Context, user *models.User) error {
	assignments := []string{"name", "email", "image_url", "updated_at"}
	if user.Role != "" {
		assignments = append(assignments, "role")
	} else {
		user.Role = models.RoleStudent
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(assignments),
	}).Create(user).Error
	if err != nil {
		return fmt.Errorf("%w: upserting user %s: %v", errs.ErrPersistence, user.ID, err)
	}
	return nil
}

func (s *GormStore) DeleteUser(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("%w: deleting user %s: %v", errs.ErrPersistence, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: user %s", errs.ErrNotFound, id)
	}
	return nil
}
