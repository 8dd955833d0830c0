package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"learnsphere/backend/ai"
	"learnsphere/backend/config"
	"learnsphere/backend/controllers"
	"learnsphere/backend/utils"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, gen ai.Generator) {
	locks := utils.NewKeyedMutex()

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Hello from LearnSphere backend!")
	})

	api := app.Group("/api")

	// Course routes
	coursesController := controllers.NewCoursesController(db, cfg, gen, locks)
	api.Get("/courses", coursesController.GetUserCourses)
	api.Post("/generate-course", coursesController.GenerateCourse)
	api.Delete("/courses/:courseId", coursesController.DeleteCourse)

	// XP routes
	xpController := controllers.NewXPController(db, cfg, locks)
	api.Get("/xp/rank/:userId", xpController.GetRank)
	api.Get("/xp/:userId", xpController.GetXP)
	api.Post("/xp/add", xpController.AddXP)
	api.Post("/xp/achievement", xpController.AddAchievement)
	api.Post("/xp/streak/:userId", xpController.UpdateStreak)
	api.Get("/leaderboard", xpController.GetLeaderboard)

	// Quiz and lesson routes
	quizController := controllers.NewQuizController(db, cfg, gen, locks)
	api.Post("/quiz/complete", quizController.CompleteQuiz)
	api.Post("/quiz/regenerate", quizController.RegenerateQuiz)
	api.Post("/lesson/complete", quizController.CompleteLesson)

	// AI tutor
	chatController := controllers.NewChatController(db, cfg, gen)
	api.Post("/chat", chatController.Chat)
}
