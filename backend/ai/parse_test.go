package ai

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnsphere/backend/models"
)

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON("Here is your course:\n```json\n{\"a\":1}\n```\nEnjoy!"))
	assert.Equal(t, `{"a":1}`, extractJSON(`Sure! {"a":1} Hope that helps.`))
	assert.Equal(t, `{"a":1}`, extractJSON(`{"a":1}`))
	assert.Equal(t, "", extractJSON("no json here at all"))
}

func TestDecodeModelJSON(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	var p payload
	require.NoError(t, decodeModelJSON(`{"title":"Go"}`, &p))
	assert.Equal(t, "Go", p.Title)

	p = payload{}
	require.NoError(t, decodeModelJSON("```json\n{\"title\":\"Go\"}\n```", &p))
	assert.Equal(t, "Go", p.Title)
}

func TestDecodeModelJSONRepairsMalformedOutput(t *testing.T) {
	var p struct {
		Items []string `json:"items"`
	}

	// Trailing comma, the most common provider slip
	require.NoError(t, decodeModelJSON(`{"items": ["a", "b",]}`, &p))
	assert.Equal(t, []string{"a", "b"}, p.Items)

	// Single-quoted keys
	var q struct {
		Title string `json:"title"`
	}
	require.NoError(t, decodeModelJSON(`{'title': 'Go'}`, &q))
	assert.Equal(t, "Go", q.Title)
}

func TestDecodeModelJSONFailsClosed(t *testing.T) {
	var p struct{}

	err := decodeModelJSON("the model refused to answer", &p)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestNormalizeQuestionsAcceptsAnswerAlias(t *testing.T) {
	questions := normalizeQuestions([]rawQuestion{
		{Question: "Q1", Options: []string{"a", "b"}, CorrectAnswer: "a"},
		{Question: "Q2", Options: []string{"a", "b"}, Answer: "b"},
	})

	require.Len(t, questions, 2)
	assert.Equal(t, "a", questions[0].CorrectAnswer)
	assert.Equal(t, "b", questions[1].CorrectAnswer)
}

func TestNormalizeQuizTitleFallback(t *testing.T) {
	quiz := normalizeQuiz(&rawQuiz{Questions: []rawQuestion{}}, "Goroutines")
	assert.Equal(t, "Quiz for Goroutines", quiz.Title)

	quiz = normalizeQuiz(&rawQuiz{Title: "Checkpoint"}, "Goroutines")
	assert.Equal(t, "Checkpoint", quiz.Title)
}

func TestValidateQuestion(t *testing.T) {
	g := &OpenAIGenerator{validate: validator.New()}

	good := models.QuizQuestion{
		Question:      "Pick one",
		Options:       []string{"a", "b"},
		CorrectAnswer: "b",
	}
	assert.NoError(t, g.validateQuestion(good))

	notAnOption := good
	notAnOption.CorrectAnswer = "c"
	assert.ErrorIs(t, g.validateQuestion(notAnOption), ErrUpstream)

	missing := models.QuizQuestion{Question: "Pick one", Options: []string{"a", "b"}}
	assert.ErrorIs(t, g.validateQuestion(missing), ErrUpstream)
}
