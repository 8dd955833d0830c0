package controllers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"learnsphere/backend/ai"
	"learnsphere/backend/config"
	"learnsphere/backend/models"
	"learnsphere/backend/utils"
)

type QuizController struct {
	DB        *gorm.DB
	Cfg       *config.Config
	Generator ai.Generator
	Locks     *utils.KeyedMutex
}

func NewQuizController(db *gorm.DB, cfg *config.Config, gen ai.Generator, locks *utils.KeyedMutex) *QuizController {
	return &QuizController{DB: db, Cfg: cfg, Generator: gen, Locks: locks}
}

var errCourseNotFound = errors.New("course not found")

type completeQuizRequest struct {
	UserID         string `json:"userId"`
	CourseID       uint   `json:"courseId"`
	ChapterIndex   int    `json:"chapterIndex"`
	LessonIndex    int    `json:"lessonIndex"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"totalQuestions"`
	XPReward       int    `json:"xpReward"`
}

// CompleteQuiz ties one quiz attempt to both a progression update and an XP
// award. Lesson state, chapter completion, the next chapter's unlock and the
// XP grant all commit in one transaction; a failure leaves nothing applied.
func (qc *QuizController) CompleteQuiz(c *fiber.Ctx) error {
	var req completeQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request body.")
	}
	if req.UserID == "" || req.CourseID == 0 || req.TotalQuestions <= 0 {
		return utils.BadRequest(c, "userId, courseId, chapterIndex, lessonIndex, score, and totalQuestions are required.")
	}
	if req.XPReward <= 0 {
		req.XPReward = 15
	}

	unlockCourse := qc.Locks.Lock(fmt.Sprintf("course:%d", req.CourseID))
	defer unlockCourse()
	unlockXP := qc.Locks.Lock("xp:" + req.UserID)
	defer unlockXP()

	threshold := qc.Cfg.QuizPassThreshold

	var (
		course  models.Course
		profile *models.XPProfile
		result  *models.QuizResult
		levelUp *models.LevelUpResult

		xpEarned         int
		chapterCompleted bool
	)

	err := qc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND owner_id = ?", req.CourseID, req.UserID).First(&course).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errCourseNotFound
			}
			return err
		}

		var err error
		result, err = course.RecordQuizResult(req.ChapterIndex, req.LessonIndex, req.Score, req.TotalQuestions, threshold)
		if err != nil {
			return err
		}

		if !result.Passed {
			course.RefreshUnlocks()
			return tx.Save(&course).Error
		}

		chapterCompleted = course.UpdateChapterCompletion(req.ChapterIndex)
		if chapterCompleted && req.ChapterIndex+1 < len(course.Chapters) {
			course.Chapters[req.ChapterIndex+1].Unlocked = true
		}
		course.RefreshUnlocks()

		xpEarned = req.XPReward
		if result.Percentage == 100 {
			xpEarned += 10 // perfect score
		} else if result.Percentage >= 90 {
			xpEarned += 5
		}
		if chapterCompleted {
			xpEarned += 25
		}

		profile, err = loadOrCreateProfile(tx, req.UserID)
		if err != nil {
			return err
		}
		sourceID := fmt.Sprintf("%d_%d_%d", req.CourseID, req.ChapterIndex, req.LessonIndex)
		levelUp, err = profile.AddXP(xpEarned, models.SourceQuizCompletion, sourceID)
		if err != nil {
			return err
		}

		if err := tx.Save(&course).Error; err != nil {
			return err
		}
		return tx.Save(profile).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, errCourseNotFound):
			return utils.NotFound(c, "Course not found.")
		case errors.Is(err, models.ErrChapterOutOfRange), errors.Is(err, models.ErrLessonOutOfRange):
			return utils.NotFound(c, "Lesson not found.")
		default:
			return utils.InternalServerError(c, "Failed to complete quiz.")
		}
	}

	if !result.Passed {
		return c.JSON(fiber.Map{
			"message": fmt.Sprintf("You need %d%% to unlock the next lesson. You scored %d%%. Try again!",
				threshold, result.Percentage),
			"passed":             false,
			"score":              req.Score,
			"totalQuestions":     req.TotalQuestions,
			"percentage":         result.Percentage,
			"xpEarned":           0,
			"attempts":           result.Attempts,
			"requiredPercentage": threshold,
		})
	}

	message := "Quiz passed! Next lesson unlocked."
	if chapterCompleted {
		message = "Chapter completed! Next chapter unlocked."
	}
	return c.JSON(fiber.Map{
		"message":               message,
		"passed":                true,
		"score":                 req.Score,
		"totalQuestions":        req.TotalQuestions,
		"percentage":            result.Percentage,
		"xpEarned":              xpEarned,
		"leveledUp":             levelUp.LeveledUp,
		"newLevel":              levelUp.NewLevel,
		"totalXP":               profile.TotalXP,
		"currentLevel":          profile.CurrentLevel,
		"attempts":              result.Attempts,
		"chapterCompleted":      chapterCompleted,
		"isLastLessonInChapter": req.LessonIndex == len(course.Chapters[req.ChapterIndex].Lessons)-1,
	})
}

type regenerateQuizRequest struct {
	UserID       string `json:"userId"`
	CourseID     uint   `json:"courseId"`
	ChapterIndex int    `json:"chapterIndex"`
	LessonIndex  int    `json:"lessonIndex"`
}

func (qc *QuizController) RegenerateQuiz(c *fiber.Ctx) error {
	var req regenerateQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request body.")
	}
	if req.UserID == "" || req.CourseID == 0 {
		return utils.BadRequest(c, "userId, courseId, chapterIndex, and lessonIndex are required.")
	}

	unlock := qc.Locks.Lock(fmt.Sprintf("course:%d", req.CourseID))
	defer unlock()

	var course models.Course
	if err := qc.DB.Where("id = ? AND owner_id = ?", req.CourseID, req.UserID).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found.")
		}
		return utils.InternalServerError(c, "Failed to regenerate quiz questions.")
	}

	lesson, err := course.LessonAt(req.ChapterIndex, req.LessonIndex)
	if err != nil {
		return utils.NotFound(c, "Lesson not found.")
	}
	if lesson.Quiz == nil {
		return utils.NotFound(c, "Lesson has no quiz.")
	}

	questions, err := qc.Generator.GenerateQuizQuestions(c.UserContext(), lesson.Title, lesson.Content)
	if err != nil {
		if errors.Is(err, ai.ErrUpstream) {
			return utils.BadGateway(c, "Failed to generate valid quiz questions. Please try again.")
		}
		return utils.InternalServerError(c, "Failed to regenerate quiz questions.")
	}

	// Title and attempt state survive regeneration; only the questions change.
	if err := course.RegenerateQuiz(req.ChapterIndex, req.LessonIndex, questions); err != nil {
		return utils.NotFound(c, "Lesson not found.")
	}

	if err := qc.DB.Save(&course).Error; err != nil {
		return utils.InternalServerError(c, "Failed to regenerate quiz questions.")
	}

	return c.JSON(fiber.Map{
		"message": "New quiz questions generated successfully",
		"quiz":    lesson.Quiz,
	})
}

type completeLessonRequest struct {
	UserID   string `json:"userId"`
	LessonID string `json:"lessonId"`
	CourseID uint   `json:"courseId"`
	XPReward int    `json:"xpReward"`
}

func (qc *QuizController) CompleteLesson(c *fiber.Ctx) error {
	var req completeLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request body.")
	}
	if req.UserID == "" || req.LessonID == "" {
		return utils.BadRequest(c, "userId and lessonId are required.")
	}
	if req.XPReward <= 0 {
		req.XPReward = 10
	}

	unlock := qc.Locks.Lock("xp:" + req.UserID)
	defer unlock()

	profile, err := loadOrCreateProfile(qc.DB, req.UserID)
	if err != nil {
		return utils.InternalServerError(c, "Failed to complete lesson.")
	}

	result, err := profile.AddXP(req.XPReward, models.SourceLessonCompletion, req.LessonID)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	status := profile.UpdateStreak()
	if (status == models.StreakContinued || status == models.StreakStarted) && profile.Streak.Current > 1 {
		bonusXP := profile.Streak.Current * 2
		if bonusXP > 20 {
			bonusXP = 20
		}
		profile.AddXP(bonusXP, models.SourceStreakBonus, "")
	}

	if err := qc.DB.Save(profile).Error; err != nil {
		return utils.InternalServerError(c, "Failed to complete lesson.")
	}

	return c.JSON(fiber.Map{
		"message":      "Lesson completed successfully",
		"xpEarned":     req.XPReward,
		"leveledUp":    result.LeveledUp,
		"newLevel":     result.NewLevel,
		"totalXP":      profile.TotalXP,
		"currentLevel": profile.CurrentLevel,
		"streak":       profile.Streak.Current,
	})
}
