package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"learnsphere/backend/config"
	"learnsphere/backend/models"
	"learnsphere/backend/utils"
)

type XPController struct {
	DB    *gorm.DB
	Cfg   *config.Config
	Locks *utils.KeyedMutex
}

func NewXPController(db *gorm.DB, cfg *config.Config, locks *utils.KeyedMutex) *XPController {
	return &XPController{DB: db, Cfg: cfg, Locks: locks}
}

// loadOrCreateProfile implements create-on-read: a profile springs into
// existence with default zero state on the first XP-related request.
func loadOrCreateProfile(db *gorm.DB, userID string) (*models.XPProfile, error) {
	var profile models.XPProfile
	err := db.Where("user_id = ?", userID).First(&profile).Error
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := models.NewXPProfile(userID)
	if err := db.Create(fresh).Error; err != nil {
		return nil, err
	}
	return fresh, nil
}

func (xc *XPController) GetXP(c *fiber.Ctx) error {
	userID := c.Params("userId")

	unlock := xc.Locks.Lock("xp:" + userID)
	defer unlock()

	profile, err := loadOrCreateProfile(xc.DB, userID)
	if err != nil {
		return utils.InternalServerError(c, "Failed to fetch user XP data.")
	}

	return c.JSON(profile)
}

type addXPRequest struct {
	UserID   string `json:"userId"`
	Amount   int    `json:"amount"`
	Source   string `json:"source"`
	SourceID string `json:"sourceId"`
}

func (xc *XPController) AddXP(c *fiber.Ctx) error {
	var req addXPRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request body.")
	}
	if req.UserID == "" || req.Amount == 0 || req.Source == "" {
		return utils.BadRequest(c, "userId, amount, and source are required.")
	}

	unlock := xc.Locks.Lock("xp:" + req.UserID)
	defer unlock()

	profile, err := loadOrCreateProfile(xc.DB, req.UserID)
	if err != nil {
		return utils.InternalServerError(c, "Failed to add XP.")
	}

	result, err := profile.AddXP(req.Amount, models.XPSource(req.Source), req.SourceID)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	if err := xc.DB.Save(profile).Error; err != nil {
		return utils.InternalServerError(c, "Failed to add XP.")
	}

	return c.JSON(fiber.Map{
		"message":       "XP added successfully",
		"leveledUp":     result.LeveledUp,
		"newLevel":      result.NewLevel,
		"totalXP":       profile.TotalXP,
		"currentLevel":  profile.CurrentLevel,
		"xpToNextLevel": profile.XPToNextLevel,
	})
}

type addAchievementRequest struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	XPReward    int    `json:"xpReward"`
}

func (xc *XPController) AddAchievement(c *fiber.Ctx) error {
	var req addAchievementRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request body.")
	}
	if req.UserID == "" || req.Name == "" || req.Description == "" {
		return utils.BadRequest(c, "userId, name, and description are required.")
	}

	unlock := xc.Locks.Lock("xp:" + req.UserID)
	defer unlock()

	profile, err := loadOrCreateProfile(xc.DB, req.UserID)
	if err != nil {
		return utils.InternalServerError(c, "Failed to add achievement.")
	}

	if !profile.AddAchievement(req.Name, req.Description, req.XPReward) {
		return utils.BadRequest(c, "Achievement already earned.")
	}

	if err := xc.DB.Save(profile).Error; err != nil {
		return utils.InternalServerError(c, "Failed to add achievement.")
	}

	return c.JSON(fiber.Map{
		"message": "Achievement added successfully",
		"achievement": fiber.Map{
			"name":        req.Name,
			"description": req.Description,
			"xpReward":    req.XPReward,
		},
		"totalXP":      profile.TotalXP,
		"currentLevel": profile.CurrentLevel,
	})
}

func (xc *XPController) GetLeaderboard(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	// Ties on totalXP come back in storage order: stable but unordered.
	var profiles []models.XPProfile
	if err := xc.DB.Order("total_xp DESC").Limit(limit).Find(&profiles).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch leaderboard.")
	}

	leaderboard := make([]fiber.Map, 0, len(profiles))
	for _, p := range profiles {
		leaderboard = append(leaderboard, fiber.Map{
			"userId":       p.UserID,
			"totalXP":      p.TotalXP,
			"currentLevel": p.CurrentLevel,
			"streak": fiber.Map{
				"current": p.Streak.Current,
				"longest": p.Streak.Longest,
			},
		})
	}

	return c.JSON(leaderboard)
}

func (xc *XPController) GetRank(c *fiber.Ctx) error {
	userID := c.Params("userId")

	var profile models.XPProfile
	if err := xc.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "User not found.")
		}
		return utils.InternalServerError(c, "Failed to fetch user rank.")
	}

	var ahead int64
	if err := xc.DB.Model(&models.XPProfile{}).Where("total_xp > ?", profile.TotalXP).Count(&ahead).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch user rank.")
	}

	return c.JSON(fiber.Map{
		"userId": userID,
		"rank":   ahead + 1,
	})
}

func (xc *XPController) UpdateStreak(c *fiber.Ctx) error {
	userID := c.Params("userId")

	unlock := xc.Locks.Lock("xp:" + userID)
	defer unlock()

	profile, err := loadOrCreateProfile(xc.DB, userID)
	if err != nil {
		return utils.InternalServerError(c, "Failed to update streak.")
	}

	status := profile.UpdateStreak()
	active := status == models.StreakContinued || status == models.StreakStarted
	if active && profile.Streak.Current > 1 {
		bonusXP := profile.Streak.Current * 5
		if bonusXP > 50 {
			bonusXP = 50
		}
		profile.AddXP(bonusXP, models.SourceStreakBonus, "")
	}

	if err := xc.DB.Save(profile).Error; err != nil {
		return utils.InternalServerError(c, "Failed to update streak.")
	}

	return c.JSON(fiber.Map{
		"message":         "Streak updated successfully",
		"streakContinued": active,
		"currentStreak":   profile.Streak.Current,
		"longestStreak":   profile.Streak.Longest,
	})
}
