package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nadhifgr/learnsphere/internal/helpers"
	"github.com/nadhifgr/learnsphere/internal/models"
)

func GetEducatorCourses(c *gin.Context) {
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

	var courses []models.Course
	err := gormDB.Preload("Ratings").Where("educator_id = ?", userID).Order("created_at DESC").Find(&courses).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving courses.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

// GetDashboard aggregates the educator's earnings (completed purchases only),
// enrollment numbers and course count.
func GetDashboard(c *gin.Context) {
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

	var totalCourses int64
	if err := gormDB.Model(&models.Course{}).Where("educator_id = ?", userID).Count(&totalCourses).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving dashboard data.")
		return
	}

	var totalEarnings decimal.Decimal
	err := gormDB.Model(&models.Purchase{}).
		Joins("JOIN courses ON courses.id = purchases.course_id").
		Where("courses.educator_id = ? AND purchases.status = ?", userID, models.PurchaseStatusCompleted).
		Select("COALESCE(SUM(purchases.amount), 0)").
		Scan(&totalEarnings).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving dashboard data.")
		return
	}

	var totalStudents int64
	err = gormDB.Model(&models.Enrollment{}).
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Where("courses.educator_id = ?", userID).
		Count(&totalStudents).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving dashboard data.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dashboard": gin.H{
			"total_earnings": totalEarnings,
			"total_courses":  totalCourses,
			"total_students": totalStudents,
		},
	})
}

// GetEnrolledStudents lists completed purchases of the educator's courses
// with the purchasing student attached.
func GetEnrolledStudents(c *gin.Context) {
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
	err := gormDB.Preload("User").Preload("Course").
		Joins("JOIN courses ON courses.id = purchases.course_id").
		Where("courses.educator_id = ? AND purchases.status = ?", userID, models.PurchaseStatusCompleted).
		Order("purchases.created_at DESC").
		Find(&purchases).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving enrolled students.")
		return
	}

	type enrolledStudent struct {
		StudentID    string `json:"student_id"`
		StudentName  string `json:"student_name"`
		CourseTitle  string `json:"course_title"`
		PurchaseDate string `json:"purchase_date"`
	}

	enrolled := make([]enrolledStudent, 0, len(purchases))
	for _, purchase := range purchases {
		entry := enrolledStudent{
			StudentID:    purchase.UserID,
			PurchaseDate: purchase.CreatedAt.Format(time.RFC3339),
		}
		if purchase.User != nil {
			entry.StudentName = purchase.User.Name
		}
		if purchase.Course != nil {
			entry.CourseTitle = purchase.Course.Title
		}
		enrolled = append(enrolled, entry)
	}

	c.JSON(http.StatusOK, gin.H{"enrolled_students": enrolled})
}
