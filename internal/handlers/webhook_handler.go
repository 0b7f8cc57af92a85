package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nadhifgr/learnsphere/internal/errs"
	"github.com/nadhifgr/learnsphere/internal/helpers"
	"github.com/nadhifgr/learnsphere/internal/webhook"
	"go.uber.org/zap"
)

// WebhookHandler receives provider callbacks. Both endpoints read the raw
// request body before anything parses it; the verifiers sign over those
// exact bytes.
//
// Response contract: 4xx for unverifiable deliveries (no side effects ran),
// 200 for handled, not-found and conflicting deliveries (the provider must
// stop retrying, retries cannot help), 5xx only for storage failures where a
// provider retry is the recovery path.
type WebhookHandler struct {
	identityVerifier *webhook.IdentityVerifier
	paymentVerifier  *webhook.PaymentVerifier
	reconciler       *webhook.Reconciler
	store            webhook.Store
	log              *zap.SugaredLogger
}

func NewWebhookHandler(
	identityVerifier *webhook.IdentityVerifier,
	paymentVerifier *webhook.PaymentVerifier,
	reconciler *webhook.Reconciler,
	store webhook.Store,
	log *zap.SugaredLogger,
) *WebhookHandler {
	return &WebhookHandler{
		identityVerifier: identityVerifier,
		paymentVerifier:  paymentVerifier,
		reconciler:       reconciler,
		store:            store,
		log:              log,
	}
}

func (h *WebhookHandler) IdentityWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Unable to read request body.")
		return
	}

	event, err := h.identityVerifier.Verify(
		payload,
		c.GetHeader("svix-id"),
		c.GetHeader("svix-timestamp"),
		c.GetHeader("svix-signature"),
	)
	if err != nil {
		h.log.Warnw("rejected identity webhook", "error", err)
		helpers.RespondWithError(c, http.StatusBadRequest, "Webhook verification failed.")
		return
	}

	switch event.Type {
	case webhook.IdentityUserCreated, webhook.IdentityUserUpdated:
		if err := h.store.UpsertUser(c.Request.Context(), event.Data.User()); err != nil {
			h.log.Errorw("identity sync failed", "type", event.Type, "user_id", event.Data.ID, "error", err)
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to sync user.")
			return
		}
	case webhook.IdentityUserDeleted:
		err := h.store.DeleteUser(c.Request.Context(), event.Data.ID)
		if err != nil && !errors.Is(err, errs.ErrNotFound) {
			h.log.Errorw("identity delete failed", "user_id", event.Data.ID, "error", err)
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete user.")
			return
		}
	default:
		h.log.Infow("ignoring unhandled identity event", "type", event.Type)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) PaymentWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Unable to read request body.")
		return
	}

	event, err := h.paymentVerifier.Verify(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.log.Warnw("rejected payment webhook", "error", err)
		helpers.RespondWithError(c, http.StatusBadRequest, "Webhook verification failed.")
		return
	}

	err = h.reconciler.HandleEvent(c.Request.Context(), event)
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrNotFound):
		// Retrying an impossible lookup cannot succeed; acknowledge.
		h.log.Warnw("payment event references missing record", "event_id", event.ID, "error", err)
	case errors.Is(err, errs.ErrConflict):
		h.log.Errorw("payment event hit conflicting terminal state", "event_id", event.ID, "error", err)
	default:
		h.log.Errorw("payment reconciliation failed", "event_id", event.ID, "error", err)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to process event.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
