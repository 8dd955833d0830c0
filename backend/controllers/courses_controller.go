package controllers

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"learnsphere/backend/ai"
	"learnsphere/backend/config"
	"learnsphere/backend/models"
	"learnsphere/backend/utils"
)

type CoursesController struct {
	DB        *gorm.DB
	Cfg       *config.Config
	Generator ai.Generator
	Locks     *utils.KeyedMutex
}

func NewCoursesController(db *gorm.DB, cfg *config.Config, gen ai.Generator, locks *utils.KeyedMutex) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg, Generator: gen, Locks: locks}
}

func (cc *CoursesController) GetUserCourses(c *fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return utils.BadRequest(c, "userId query parameter is required.")
	}

	var courses []models.Course
	if err := cc.DB.Where("owner_id = ?", userID).Order("created_at DESC").Find(&courses).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch courses.")
	}

	// Unlock flags are derived from completion state, recomputed on every read.
	for i := range courses {
		courses[i].RefreshUnlocks()
	}

	return c.JSON(courses)
}

type generateCourseRequest struct {
	Topic  string `json:"topic"`
	Level  string `json:"level"`
	UserID string `json:"userId"`
}

func (cc *CoursesController) GenerateCourse(c *fiber.Ctx) error {
	var req generateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request body.")
	}
	if req.Topic == "" || req.Level == "" || req.UserID == "" {
		return utils.BadRequest(c, "Topic, level, and userId are required.")
	}
	if !models.IsValidCourseLevel(req.Level) {
		return utils.BadRequest(c, "Level must be one of Beginner, Intermediate, Advanced.")
	}

	generated, err := cc.Generator.GenerateCourse(c.UserContext(), req.Topic, req.Level)
	if err != nil {
		if errors.Is(err, ai.ErrUpstream) {
			return utils.BadGateway(c, "AI generated malformed course data. Please try again with a different topic or level.")
		}
		return utils.InternalServerError(c, "Failed to generate and save course.")
	}

	if generated.ImageURL == "" {
		query := generated.Title
		if query == "" {
			query = req.Topic
		}
		generated.ImageURL = "https://source.unsplash.com/800x600/?" + url.QueryEscape(query)
	}

	course := models.Course{
		Title:              generated.Title,
		Description:        generated.Description,
		OwnerID:            req.UserID,
		Level:              generated.Level,
		ImageURL:           generated.ImageURL,
		ProjectDescription: generated.ProjectDescription,
		Chapters:           generated.Chapters,
	}
	// A fresh course starts with only the first chapter reachable.
	course.RefreshUnlocks()

	if err := cc.DB.Create(&course).Error; err != nil {
		return utils.InternalServerError(c, "Failed to generate and save course.")
	}

	return c.Status(fiber.StatusCreated).JSON(course)
}

func (cc *CoursesController) DeleteCourse(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("courseId"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID.")
	}
	userID := c.Query("userId")
	if userID == "" {
		return utils.BadRequest(c, "userId query parameter is required.")
	}

	unlock := cc.Locks.Lock(fmt.Sprintf("course:%d", courseID))
	defer unlock()

	result := cc.DB.Where("id = ? AND owner_id = ?", courseID, userID).Delete(&models.Course{})
	if result.Error != nil {
		return utils.InternalServerError(c, "Failed to delete course.")
	}
	if result.RowsAffected == 0 {
		return utils.NotFound(c, "Course not found or not authorized to delete.")
	}

	return c.JSON(fiber.Map{
		"message":  "Course deleted successfully.",
		"courseId": courseID,
	})
}
