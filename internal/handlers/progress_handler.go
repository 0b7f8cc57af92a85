package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nadhifgr/learnsphere/internal/helpers"
	"github.com/nadhifgr/learnsphere/internal/models"
)

type ProgressRequest struct {
	LectureID uuid.UUID `json:"lecture_id" binding:"required"`
}

// UpdateProgress marks one lecture complete for the caller. Completion rows
// are keyed by (progress, lecture), so repeating a lecture is a no-op. When
// every lecture of the course is complete the progress record flips to
// completed, which unlocks the certificate.
func UpdateProgress(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid course ID.")
		return
	}

	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var enrollment models.Enrollment
	if err := gormDB.First(&enrollment, "user_id = ? AND course_id = ?", userID, courseID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusForbidden, "You are not enrolled in this course.")
		return
	}

	// The lecture must belong to the course being tracked.
	var lecture models.Lecture
	err = gormDB.Joins("JOIN chapters ON chapters.id = lectures.chapter_id").
		Where("lectures.id = ? AND chapters.course_id = ?", req.LectureID, courseID).
		First(&lecture).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Lecture not found in this course.")
		return
	}

	var progress models.CourseProgress
	err = gormDB.Where(models.CourseProgress{UserID: userID.(string), CourseID: courseID}).
		FirstOrCreate(&progress).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to load progress.")
		return
	}

	completion := models.LectureCompletion{CourseProgressID: progress.ID, LectureID: lecture.ID}
	if err := gormDB.Clauses(clause.OnConflict{DoNothing: true}).Create(&completion).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update progress.")
		return
	}

	var totalLectures int64
	gormDB.Model(&models.Lecture{}).
		Joins("JOIN chapters ON chapters.id = lectures.chapter_id").
		Where("chapters.course_id = ?", courseID).
		Count(&totalLectures)

	var completedLectures int64
	gormDB.Model(&models.LectureCompletion{}).
		Where("course_progress_id = ?", progress.ID).
		Count(&completedLectures)

	if !progress.Completed && totalLectures > 0 && completedLectures >= totalLectures {
		if err := gormDB.Model(&progress).Update("completed", true).Error; err != nil {
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update progress.")
			return
		}
		progress.Completed = true
	}

	c.JSON(http.StatusOK, gin.H{
		"message":            "Progress updated.",
		"completed_lectures": completedLectures,
		"total_lectures":     totalLectures,
		"completed":          progress.Completed,
	})
}

func GetProgress(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
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
	err = gormDB.Preload("CompletedLectures").
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&progress).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusOK, gin.H{"progress": nil})
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving progress.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progress})
}
