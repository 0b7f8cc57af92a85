package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nadhifgr/learnsphere/internal/errs"
	"github.com/nadhifgr/learnsphere/internal/models"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
)

// Store is the persistence surface the webhook handlers depend on. The gorm
// implementation lives in internal/store; tests substitute fakes.
type Store interface {
	PurchaseByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	UserByID(ctx context.Context, id string) (*models.User, error)
	CourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error)

	// CompletePurchase enrolls the purchase's user into its course (both
	// sides of the enrollment) and marks the purchase completed, atomically.
	// Re-applying for an already-enrolled user must be a no-op.
	CompletePurchase(ctx context.Context, purchase *models.Purchase) error
	FailPurchase(ctx context.Context, purchase *models.Purchase) error

	UpsertUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error
}

// Reconciler drives the purchase state machine from verified payment events:
// pending -> completed or pending -> failed, both terminal. The same event
// delivered any number of times leaves the store as if delivered once.
//
// Canonical event pair: checkout.session.completed for success and
// checkout.session.async_payment_failed for failure. Other recognized types
// are acknowledged and logged so the provider stops retrying them.
type Reconciler struct {
	store Store
	log   *zap.SugaredLogger
}

func NewReconciler(store Store, log *zap.SugaredLogger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

func (r *Reconciler) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		purchaseID, err := purchaseIDFromEvent(event)
		if err != nil {
			return err
		}
		return r.completePurchase(ctx, purchaseID)
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		purchaseID, err := purchaseIDFromEvent(event)
		if err != nil {
			return err
		}
		return r.failPurchase(ctx, purchaseID)
	default:
		r.log.Infow("ignoring unhandled payment event", "type", event.Type, "event_id", event.ID)
		return nil
	}
}

func purchaseIDFromEvent(event stripe.Event) (uuid.UUID, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed checkout session in event %s", errs.ErrNotFound, event.ID)
	}

	raw, ok := session.Metadata["purchaseId"]
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: no purchase reference in session metadata", errs.ErrNotFound)
	}
	purchaseID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid purchase reference %q", errs.ErrNotFound, raw)
	}
	return purchaseID, nil
}

func (r *Reconciler) completePurchase(ctx context.Context, purchaseID uuid.UUID) error {
	purchase, err := r.store.PurchaseByID(ctx, purchaseID)
	if err != nil {
		return err
	}

	switch purchase.Status {
	case models.PurchaseStatusCompleted:
		// Duplicate delivery. Acknowledge without re-applying side effects.
		r.log.Infow("purchase already completed, skipping", "purchase_id", purchaseID)
		return nil
	case models.PurchaseStatusFailed:
		return fmt.Errorf("%w: purchase %s already failed, refusing success event", errs.ErrConflict, purchaseID)
	}

	// Both referenced records must exist before any side effect runs.
	if _, err := r.store.UserByID(ctx, purchase.UserID); err != nil {
		return err
	}
	if _, err := r.store.CourseByID(ctx, purchase.CourseID); err != nil {
		return err
	}

	if err := r.store.CompletePurchase(ctx, purchase); err != nil {
		return err
	}

	r.log.Infow("purchase completed",
		"purchase_id", purchaseID,
		"user_id", purchase.UserID,
		"course_id", purchase.CourseID,
	)
	return nil
}

func (r *Reconciler) failPurchase(ctx context.Context, purchaseID uuid.UUID) error {
	purchase, err := r.store.PurchaseByID(ctx, purchaseID)
	if err != nil {
		return err
	}

	switch purchase.Status {
	case models.PurchaseStatusCompleted:
		return fmt.Errorf("%w: purchase %s already completed, refusing failure event", errs.ErrConflict, purchaseID)
	case models.PurchaseStatusFailed:
		r.log.Infow("purchase already failed, skipping", "purchase_id", purchaseID)
		return nil
	}

	if err := r.store.FailPurchase(ctx, purchase); err != nil {
		return err
	}

	r.log.Infow("purchase failed", "purchase_id", purchaseID)
	return nil
}
