package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/nadhifgr/learnsphere/internal/helpers"
	"github.com/nadhifgr/learnsphere/internal/models"
)

// Completion certificates are QR codes over an HMAC-signed data string, so
// an educator can verify a student's claim offline against the service
// secret without trusting the bytes in the QR image.

func generateCertificateData(progress *models.CourseProgress) string {
	secretKey := os.Getenv("JWT_SECRET")
	signature := generateCertificateSignature(progress.ID, progress.CourseID, progress.UserID, secretKey)
	return fmt.Sprintf("certificate:%s;course:%s;user:%s;signature:%s",
		progress.ID.String(),
		progress.CourseID.String(),
		progress.UserID,
		signature,
	)
}

func generateCertificateSignature(progressID, courseID uuid.UUID, userID, secretKey string) string {
	data := fmt.Sprintf("%s:%s:%s", progressID.String(), courseID.String(), userID)
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func extractProgressIDFromCertData(certData string) (uuid.UUID, error) {
	parts := strings.Split(certData, ";")
	if len(parts) != 4 || !strings.HasPrefix(parts[0], "certificate:") || !strings.HasPrefix(parts[3], "signature:") {
		return uuid.Nil, fmt.Errorf("invalid certificate data format")
	}
	return uuid.Parse(strings.TrimPrefix(parts[0], "certificate:"))
}

func validateCertificateSignature(progress *models.CourseProgress, certData string) bool {
	parts := strings.Split(certData, ";")
	if len(parts) != 4 || !strings.HasPrefix(parts[3], "signature:") {
		return false
	}

	secretKey := os.Getenv("JWT_SECRET")
	signature := strings.TrimPrefix(parts[3], "signature:")
	expectedSignature := generateCertificateSignature(progress.ID, progress.CourseID, progress.UserID, secretKey)
	return hmac.Equal([]byte(expectedSignature), []byte(signature))
}

// GenerateCertificateQR returns a QR code PNG for the caller's completed
// course.
func GenerateCertificateQR(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid course ID.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var progress models.CourseProgress
	if err := gormDB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&progress).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Course progress not found.")
		return
	}

	if !progress.Completed {
		helpers.RespondWithError(c, http.StatusForbidden, "Course not completed yet.")
		return
	}

	certData := generateCertificateData(&progress)

	qrImage, err := qrcode.Encode(certData, qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate certificate QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}

// VerifyCertificate lets the course's educator check a scanned certificate.
func VerifyCertificate(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var verificationRequest struct {
		QRData string `json:"qr_data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&verificationRequest); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	progressID, err := extractProgressIDFromCertData(verificationRequest.QRData)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid certificate format.")
		return
	}

	var progress models.CourseProgress
	if err := gormDB.First(&progress, "id = ?", progressID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Certificate not found.")
		return
	}

	if !validateCertificateSignature(&progress, verificationRequest.QRData) {
		helpers.RespondWithError(c, http.StatusForbidden, "Invalid certificate signature.")
		return
	}

	var course models.Course
	if err := gormDB.First(&course, "id = ?", progress.CourseID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Course not found.")
		return
	}

	if course.EducatorID != userID {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to verify this certificate.")
		return
	}

	var student models.User
	if err := gormDB.First(&student, "id = ?", progress.UserID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Student not found.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Certificate verified successfully.",
		"certificate": gin.H{
			"course_title": course.Title,
			"student_name": student.Name,
			"completed":    progress.Completed,
		},
	})
}
