package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nadhifgr/learnsphere/internal/errs"
	"github.com/nadhifgr/learnsphere/internal/models"
	"github.com/nadhifgr/learnsphere/internal/webhook"
)

var webhookTestIdentityKey = []byte("an-identity-webhook-signing-key!")

const webhookTestStripeSecret = "whsec_payment_endpoint_secret"

type fakeWebhookStore struct {
	purchases   map[uuid.UUID]*models.Purchase
	users       map[string]*models.User
	courses     map[uuid.UUID]*models.Course
	enrollments map[models.Enrollment]bool

	completeErr error
	upsertErr   error
}

func newFakeWebhookStore() *fakeWebhookStore {
	return &fakeWebhookStore{
		purchases:   make(map[uuid.UUID]*models.Purchase),
		users:       make(map[string]*models.User),
		courses:     make(map[uuid.UUID]*models.Course),
		enrollments: make(map[models.Enrollment]bool),
	}
}

func (s *fakeWebhookStore) PurchaseByID(_ context.Context, id uuid.UUID) (*models.Purchase, error) {
	purchase, ok := s.purchases[id]
	if !ok {
		return nil, fmt.Errorf("%w: purchase %s", errs.ErrNotFound, id)
	}
	copied := *purchase
	return &copied, nil
}

func (s *fakeWebhookStore) UserByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", errs.ErrNotFound, id)
	}
	return user, nil
}

func (s *fakeWebhookStore) CourseByID(_ context.Context, id uuid.UUID) (*models.Course, error) {
	course, ok := s.courses[id]
	if !ok {
		return nil, fmt.Errorf("%w: course %s", errs.ErrNotFound, id)
	}
	return course, nil
}

func (s *fakeWebhookStore) CompletePurchase(_ context.Context, purchase *models.Purchase) error {
	if s.completeErr != nil {
		return s.completeErr
	}
	s.enrollments[models.Enrollment{UserID: purchase.UserID, CourseID: purchase.CourseID}] = true
	s.purchases[purchase.ID].Status = models.PurchaseStatusCompleted
	return nil
}

func (s *fakeWebhookStore) FailPurchase(_ context.Context, purchase *models.Purchase) error {
	s.purchases[purchase.ID].Status = models.PurchaseStatusFailed
	return nil
}

func (s *fakeWebhookStore) UpsertUser(_ context.Context, user *models.User) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeWebhookStore) DeleteUser(_ context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("%w: user %s", errs.ErrNotFound, id)
	}
	delete(s.users, id)
	return nil
}

func setupWebhookRouter(t *testing.T, store *fakeWebhookStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	identitySecret := "whsec_" + base64.StdEncoding.EncodeToString(webhookTestIdentityKey)
	identityVerifier, err := webhook.NewIdentityVerifier(identitySecret)
	require.NoError(t, err)

	paymentVerifier := webhook.NewPaymentVerifier(webhookTestStripeSecret)
	logger := zaptest.NewLogger(t).Sugar()
	reconciler := webhook.NewReconciler(store, logger)
	handler := NewWebhookHandler(identityVerifier, paymentVerifier, reconciler, store, logger)

	r := gin.New()
	r.POST("/v1/webhooks/identity", handler.IdentityWebhook)
	r.POST("/v1/webhooks/payment", handler.PaymentWebhook)
	return r
}

func identityRequest(payload []byte) *http.Request {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, webhookTestIdentityKey)
	mac.Write([]byte("msg_1." + timestamp + "."))
	mac.Write(payload)
	signature := "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/identity", bytes.NewReader(payload))
	req.Header.Set("svix-id", "msg_1")
	req.Header.Set("svix-timestamp", timestamp)
	req.Header.Set("svix-signature", signature)
	return req
}

func paymentRequest(payload []byte, secret string) *http.Request {
	now := time.Now()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", now.Unix())
	mac.Write(payload)
	header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(mac.Sum(nil)))

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	return req
}

func checkoutSessionPayload(eventType, purchaseID string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"evt_test","object":"event","type":%q,"data":{"object":{"id":"cs_test","object":"checkout.session","metadata":{"purchaseId":%q}}}}`,
		eventType, purchaseID,
	))
}

func seedPendingPurchase(store *fakeWebhookStore) *models.Purchase {
	user := &models.User{ID: "user_123", Name: "Ada Lovelace"}
	course := &models.Course{ID: uuid.New(), Title: "Analytical Engines", Price: decimal.NewFromInt(100)}
	purchase := &models.Purchase{
		ID:       uuid.New(),
		CourseID: course.ID,
		UserID:   user.ID,
		Amount:   decimal.NewFromInt(80),
		Status:   models.PurchaseStatusPending,
	}
	store.users[user.ID] = user
	store.courses[course.ID] = course
	store.purchases[purchase.ID] = purchase
	return purchase
}

func TestPaymentWebhookCompletesPurchase(t *testing.T) {
	store := newFakeWebhookStore()
	purchase := seedPendingPurchase(store)
	router := setupWebhookRouter(t, store)

	payload := checkoutSessionPayload("checkout.session.completed", purchase.ID.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, paymentRequest(payload, webhookTestStripeSecret))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.PurchaseStatusCompleted, store.purchases[purchase.ID].Status)
	assert.True(t, store.enrollments[models.Enrollment{UserID: purchase.UserID, CourseID: purchase.CourseID}])
}

func TestPaymentWebhookRejectsForgedSignature(t *testing.T) {
	store := newFakeWebhookStore()
	purchase := seedPendingPurchase(store)
	router := setupWebhookRouter(t, store)

	payload := checkoutSessionPayload("checkout.session.completed", purchase.ID.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, paymentRequest(payload, "whsec_forged_secret"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	// No side effects: the purchase is still pending and nobody got enrolled.
	assert.Equal(t, models.PurchaseStatusPending, store.purchases[purchase.ID].Status)
	assert.Empty(t, store.enrollments)
}

func TestPaymentWebhookDuplicateDeliveryIsAcknowledged(t *testing.T) {
	store := newFakeWebhookStore()
	purchase := seedPendingPurchase(store)
	router := setupWebhookRouter(t, store)

	payload := checkoutSessionPayload("checkout.session.completed", purchase.ID.String())
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, paymentRequest(payload, webhookTestStripeSecret))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	assert.Len(t, store.enrollments, 1)
	assert.Equal(t, models.PurchaseStatusCompleted, store.purchases[purchase.ID].Status)
}

func TestPaymentWebhookUnknownPurchaseIsAcknowledged(t *testing.T) {
	store := newFakeWebhookStore()
	router := setupWebhookRouter(t, store)

	payload := checkoutSessionPayload("checkout.session.completed", uuid.NewString())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, paymentRequest(payload, webhookTestStripeSecret))

	// Retrying a lookup that cannot succeed is pointless; tell the
	// provider to stop.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.enrollments)
}

func TestPaymentWebhookConflictIsAcknowledged(t *testing.T) {
	store := newFakeWebhookStore()
	purchase := seedPendingPurchase(store)
	store.purchases[purchase.ID].Status = models.PurchaseStatusFailed
	router := setupWebhookRouter(t, store)

	payload := checkoutSessionPayload("checkout.session.completed", purchase.ID.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, paymentRequest(payload, webhookTestStripeSecret))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.PurchaseStatusFailed, store.purchases[purchase.ID].Status)
}

func TestPaymentWebhookPersistenceFailureRequestsRetry(t *testing.T) {
	store := newFakeWebhookStore()
	purchase := seedPendingPurchase(store)
	store.completeErr = fmt.Errorf("%w: connection refused", errs.ErrPersistence)
	router := setupWebhookRouter(t, store)

	payload := checkoutSessionPayload("checkout.session.completed", purchase.ID.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, paymentRequest(payload, webhookTestStripeSecret))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, models.PurchaseStatusPending, store.purchases[purchase.ID].Status)
}

func TestPaymentWebhookUnhandledEventType(t *testing.T) {
	store := newFakeWebhookStore()
	router := setupWebhookRouter(t, store)

	payload := checkoutSessionPayload("invoice.paid", uuid.NewString())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, paymentRequest(payload, webhookTestStripeSecret))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIdentityWebhookCreatesUser(t *testing.T) {
	store := newFakeWebhookStore()
	router := setupWebhookRouter(t, store)

	payload := []byte(`{"type":"user.created","data":{"id":"user_42","first_name":"Grace","last_name":"Hopper","image_url":"https://img.example.com/g.png","email_addresses":[{"email_address":"grace@example.com"}]}}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, identityRequest(payload))

	require.Equal(t, http.StatusOK, w.Code)
	user, ok := store.users["user_42"]
	require.True(t, ok)
	assert.Equal(t, "Grace Hopper", user.Name)
	assert.Equal(t, "grace@example.com", user.Email)
}

func TestIdentityWebhookRejectsBadSignature(t *testing.T) {
	store := newFakeWebhookStore()
	router := setupWebhookRouter(t, store)

	payload := []byte(`{"type":"user.created","data":{"id":"user_42"}}`)
	req := identityRequest(payload)
	req.Header.Set("svix-signature", "v1,Zm9yZ2VkLXNpZ25hdHVyZQ==")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.users)
}

func TestIdentityWebhookDeletesUser(t *testing.T) {
	store := newFakeWebhookStore()
	store.users["user_42"] = &models.User{ID: "user_42"}
	router := setupWebhookRouter(t, store)

	payload := []byte(`{"type":"user.deleted","data":{"id":"user_42"}}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, identityRequest(payload))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.users)
}

func TestIdentityWebhookDeleteUnknownUserIsAcknowledged(t *testing.T) {
	store := newFakeWebhookStore()
	router := setupWebhookRouter(t, store)

	payload := []byte(`{"type":"user.deleted","data":{"id":"user_unknown"}}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, identityRequest(payload))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIdentityWebhookUnhandledTypeIsAcknowledged(t *testing.T) {
	store := newFakeWebhookStore()
	router := setupWebhookRouter(t, store)

	payload := []byte(`{"type":"session.created","data":{"id":"sess_1"}}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, identityRequest(payload))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.users)
}

func TestIdentityWebhookStorageFailure(t *testing.T) {
	store := newFakeWebhookStore()
	store.upsertErr = fmt.Errorf("%w: connection refused", errs.ErrPersistence)
	router := setupWebhookRouter(t, store)

	payload := []byte(`{"type":"user.created","data":{"id":"user_42"}}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, identityRequest(payload))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
