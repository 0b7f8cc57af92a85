package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nadhifgr/learnsphere/internal/helpers"
	"github.com/nadhifgr/learnsphere/internal/models"
)

type LectureRequest struct {
	Title           string `json:"title" binding:"required"`
	Position        int    `json:"position"`
	DurationMinutes int    `json:"duration_minutes"`
	VideoURL        string `json:"video_url"`
	IsPreviewFree   bool   `json:"is_preview_free"`
}

type ChapterRequest struct {
	Title    string           `json:"title" binding:"required"`
	Position int              `json:"position"`
	Lectures []LectureRequest `json:"lectures"`
}

type CourseRequest struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description" binding:"required"`
	Price       decimal.Decimal  `json:"price" binding:"required"`
	Discount    int              `json:"discount"`
	Published   bool             `json:"published"`
	Chapters    []ChapterRequest `json:"chapters"`
}

func buildChapters(reqs []ChapterRequest) []models.Chapter {
	var chapters []models.Chapter
	for i, chapterReq := range reqs {
		chapter := models.Chapter{
			ID:       uuid.New(),
			Title:    chapterReq.Title,
			Position: chapterReq.Position,
		}
		if chapter.Position == 0 {
			chapter.Position = i + 1
		}
		for j, lectureReq := range chapterReq.Lectures {
			lecture := models.Lecture{
				ID:              uuid.New(),
				Title:           lectureReq.Title,
				Position:        lectureReq.Position,
				DurationMinutes: lectureReq.DurationMinutes,
				VideoURL:        lectureReq.VideoURL,
				IsPreviewFree:   lectureReq.IsPreviewFree,
			}
			if lecture.Position == 0 {
				lecture.Position = j + 1
			}
			chapter.Lectures = append(chapter.Lectures, lecture)
		}
		chapters = append(chapters, chapter)
	}
	return chapters
}

// CreateCourse accepts multipart form data: a "course_data" JSON field plus
// an optional "thumbnail" image.
func CreateCourse(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	courseDataRaw := c.PostForm("course_data")
	if courseDataRaw == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Course data is missing.")
		return
	}

	var req CourseRequest
	if err := json.Unmarshal([]byte(courseDataRaw), &req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid course data. Please check your fields.")
		return
	}

	if req.Title == "" || req.Description == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Missing required fields.")
		return
	}

	if req.Discount < 0 || req.Discount > 100 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Discount must be between 0 and 100.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	course := models.Course{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Discount:    req.Discount,
		Published:   req.Published,
		EducatorID:  userID.(string),
		Chapters:    buildChapters(req.Chapters),
	}

	thumbnailFile, err := c.FormFile("thumbnail")
	if err == nil {
		thumbnailPath, err := helpers.UploadFile(c, thumbnailFile, "course_thumbnails")
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		course.ThumbnailPath = thumbnailPath
	}

	if err := gormDB.Create(&course).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create course.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Course created successfully.",
		"course_id": course.ID,
	})
}

func ListCourses(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	page := c.DefaultQuery("page", "1")
	limit := c.DefaultQuery("limit", "10")

	pageNum, err := helpers.StringToInt(page)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid page number.")
		return
	}

	limitNum, err := helpers.StringToInt(limit)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid limit.")
		return
	}

	query := gormDB.Model(&models.Course{}).Where("published = ?", true)
	if search := c.Query("search"); search != "" {
		query = query.Where("title ILIKE ?", "%"+search+"%")
	}
	if educator := c.Query("educator"); educator != "" {
		query = query.Where("educator_id = ?", educator)
	}

	var totalCount int64
	query.Count(&totalCount)

	var courses []models.Course
	offset := (pageNum - 1) * limitNum
	err = query.Preload("Educator").Preload("Ratings").Offset(offset).Limit(limitNum).Order("created_at DESC").Find(&courses).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving courses.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"courses":     courses,
		"total":       totalCount,
		"page":        pageNum,
		"limit":       limitNum,
		"total_pages": (totalCount + int64(limitNum) - 1) / int64(limitNum),
	})
}

func GetCourse(c *gin.Context) {
	courseID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var course models.Course
	err := gormDB.Preload("Educator").Preload("Ratings").Preload("Chapters.Lectures").
		Where("id = ? AND published = ?", courseID, true).First(&course).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Course not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving course.")
		return
	}

	// Only preview lectures expose their video URL on the public detail page.
	for i := range course.Chapters {
		for j := range course.Chapters[i].Lectures {
			if !course.Chapters[i].Lectures[j].IsPreviewFree {
				course.Chapters[i].Lectures[j].VideoURL = ""
			}
		}
	}

	c.JSON(http.StatusOK, course)
}

func UpdateCourse(c *gin.Context) {
	courseID := c.Param("id")
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	var req CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	if req.Discount < 0 || req.Discount > 100 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Discount must be between 0 and 100.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var course models.Course
	if err := gormDB.Where("id = ?", courseID).First(&course).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Course not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding course.")
		return
	}

	if course.EducatorID != userID {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to update this course.")
		return
	}

	course.Title = req.Title
	course.Description = req.Description
	course.Price = req.Price
	course.Discount = req.Discount
	course.Published = req.Published

	if err := gormDB.Save(&course).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update course.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Course updated successfully.",
		"course":  course,
	})
}

func DeleteCourse(c *gin.Context) {
	courseID := c.Param("id")
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

	result := gormDB.Where("id = ? AND educator_id = ?", courseID, userID).Delete(&models.Course{})
	if result.Error != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete course.")
		return
	}

	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusForbidden, "Course not found or you don't have permission to delete.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Course deleted successfully.",
	})
}

type RatingRequest struct {
	Value int `json:"value" binding:"required,min=1,max=5"`
}

// AddRating upserts the caller's rating for a course. Ratings are accepted
// only from enrolled users, one per user per course, latest write wins.
func AddRating(c *gin.Context) {
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

	var req RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Rating must be between 1 and 5.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var course models.Course
	if err := gormDB.First(&course, "id = ?", courseID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Course not found.")
		return
	}

	var enrollment models.Enrollment
	if err := gormDB.First(&enrollment, "user_id = ? AND course_id = ?", userID, courseID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusForbidden, "You have not purchased this course.")
		return
	}

	rating := models.Rating{
		CourseID: courseID,
		UserID:   userID.(string),
		Value:    req.Value,
	}
	err = gormDB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rating).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to save rating.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Rating added successfully.",
	})
}
