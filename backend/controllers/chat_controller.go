package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"learnsphere/backend/ai"
	"learnsphere/backend/config"
	"learnsphere/backend/utils"
)

type ChatController struct {
	DB        *gorm.DB
	Cfg       *config.Config
	Generator ai.Generator
}

func NewChatController(db *gorm.DB, cfg *config.Config, gen ai.Generator) *ChatController {
	return &ChatController{DB: db, Cfg: cfg, Generator: gen}
}

type chatRequest struct {
	Message string           `json:"message"`
	History []ai.ChatMessage `json:"history"`
}

func (cc *ChatController) Chat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request body.")
	}
	if req.Message == "" {
		return utils.BadRequest(c, "Message is required.")
	}

	reply, err := cc.Generator.Chat(c.UserContext(), req.Message, req.History)
	if err != nil {
		if errors.Is(err, ai.ErrUpstream) {
			return utils.BadGateway(c, "Failed to get a response from the AI tutor.")
		}
		return utils.InternalServerError(c, "Failed to get a response from the AI tutor.")
	}

	return c.JSON(fiber.Map{"reply": reply})
}
