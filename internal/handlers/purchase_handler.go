package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"

	"github.com/nadhifgr/learnsphere/internal/helpers"
	"github.com/nadhifgr/learnsphere/internal/middleware"
	"github.com/nadhifgr/learnsphere/internal/models"
)

type PurchaseRequest struct {
	CourseID uuid.UUID `json:"course_id" binding:"required"`
}

// CreatePurchase initiates checkout: it records a pending purchase and asks
// the payment provider for a redirect URL. The purchase id is embedded in the
// session metadata; the payment webhook joins back on it later. The purchase
// row stays pending until the provider calls back.
func CreatePurchase(c *gin.Context) {
	var purchaseReq PurchaseRequest
	if err := c.ShouldBindJSON(&purchaseReq); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var user models.User
	if err := gormDB.First(&user, "id = ?", userID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
		return
	}

	var course models.Course
	if err := gormDB.First(&course, "id = ? AND published = ?", purchaseReq.CourseID, true).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Course not found.")
		return
	}

	amount := course.ChargedAmount()

	purchase := models.Purchase{
		ID:       uuid.New(),
		CourseID: course.ID,
		UserID:   user.ID,
		Amount:   amount,
		Status:   models.PurchaseStatusPending,
	}
	if err := gormDB.Create(&purchase).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create purchase.")
		return
	}

	stripeClient := middleware.GetStripeClient(c)
	stripeCfg := middleware.GetStripeConfig(c)
	if stripeClient == nil || stripeCfg == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Payment client not configured.")
		return
	}

	unitAmount := amount.Mul(decimal.NewFromInt(100)).IntPart()

	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(stripeCfg.SuccessURL),
		CancelURL:  stripe.String(stripeCfg.CancelURL),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(stripeCfg.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(course.Title),
					},
					UnitAmount: stripe.Int64(unitAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata("purchaseId", purchase.ID.String())

	session, err := stripeClient.CheckoutSessions.New(params)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create checkout session.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"purchase_id": purchase.ID,
		"session_url": session.URL,
	})
}

// ListPurchases returns the authenticated user's purchase history.
func ListPurchases(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var purchases []models.Purchase
	if err := gormDB.Preload("Course").Where("user_id = ?", userID).Order("created_at DESC").Find(&purchases).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving purchases.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}
