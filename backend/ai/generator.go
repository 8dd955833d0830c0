package ai

import (
	"context"
	"errors"

	"learnsphere/backend/models"
)

// ErrUpstream marks failures of the generative-content provider, including
// output that stays malformed after the repair attempt. Callers surface these
// as retryable service failures and never substitute fabricated content.
var ErrUpstream = errors.New("content provider failed")

// GeneratedCourse is a schema-validated course payload produced by the
// provider, ready to persist.
type GeneratedCourse struct {
	Title              string             `json:"title" validate:"required"`
	Description        string             `json:"description" validate:"required"`
	Level              string             `json:"level" validate:"required"`
	ImageURL           string             `json:"imageUrl"`
	ProjectDescription string             `json:"projectDescription"`
	Chapters           models.ChapterList `json:"chapters" validate:"required,min=1,dive"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator is the generative-content collaborator: prompt in, structured
// JSON out, schema-constrained.
type Generator interface {
	GenerateCourse(ctx context.Context, topic, level string) (*GeneratedCourse, error)
	GenerateQuizQuestions(ctx context.Context, lessonTitle, content string) ([]models.QuizQuestion, error)
	Chat(ctx context.Context, message string, history []ChatMessage) (string, error)
}
