package ai

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sashabaranov/go-openai"

	"learnsphere/backend/models"
)

const tutorSystemPrompt = "You are LearnSphere Tutor, a friendly and encouraging AI assistant " +
	"helping learners understand their course material. Keep answers clear, correct and concise."

// OpenAIGenerator produces course content through the OpenAI chat-completion
// API. Safe for concurrent use.
type OpenAIGenerator struct {
	client   *openai.Client
	model    string
	validate *validator.Validate
}

func NewOpenAIGenerator(apiKey, model string) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not configured")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{
		client:   openai.NewClient(apiKey),
		model:    model,
		validate: validator.New(),
	}, nil
}

// Raw payload shapes: the provider sometimes answers with "answer" instead of
// "correctAnswer" and omits quiz titles, so parsing is lenient and the
// normalized result is validated strictly afterwards.
type rawQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Answer        string   `json:"answer"`
}

type rawQuiz struct {
	Title     string        `json:"title"`
	Questions []rawQuestion `json:"questions"`
}

type rawLesson struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	XP      int      `json:"xp"`
	Quiz    *rawQuiz `json:"quiz"`
}

type rawChapter struct {
	Title   string      `json:"title"`
	Lessons []rawLesson `json:"lessons"`
}

type rawCourse struct {
	Title              string       `json:"title"`
	Description        string       `json:"description"`
	Level              string       `json:"level"`
	ImageURL           string       `json:"imageUrl"`
	ProjectDescription string       `json:"projectDescription"`
	Chapters           []rawChapter `json:"chapters"`
}

func (g *OpenAIGenerator) GenerateCourse(ctx context.Context, topic, level string) (*GeneratedCourse, error) {
	prompt := fmt.Sprintf(`You are an expert instructional designer. A user wants a course on the topic: %q at a %q level.
Generate a comprehensive, structured course plan tailored to that difficulty level. Add a quiz to each lesson and include a relevant royalty-free image URL based on the topic.
The output MUST be a single, valid JSON object and nothing else.

The JSON object must have this structure:
{
  "title": "Course Title",
  "description": "A short, engaging description of the course.",
  "level": %q,
  "imageUrl": "A royalty-free image URL relevant to the course topic",
  "chapters": [
    {
      "title": "Chapter 1 Title",
      "lessons": [
        {
          "title": "Lesson 1.1 Title",
          "content": "The educational content for this lesson in detailed HTML format with headings, paragraphs, and lists.",
          "xp": 10,
          "quiz": {
            "title": "Quiz title",
            "questions": [
              {
                "question": "Sample question?",
                "options": ["Option A", "Option B", "Option C", "Option D"],
                "correctAnswer": "Option A"
              }
            ]
          }
        }
      ]
    }
  ]
}

Follow these guidelines:
- At least 5 chapters, each with at least 3 lessons.
- Each lesson must have at least 200 words of HTML content.
- Each lesson must include a quiz with 3-5 multiple-choice questions.
- Each correctAnswer must be copied verbatim from the question's options.`, topic, level, level)

	raw, err := g.complete(ctx, "You are an expert instructional designer.", prompt)
	if err != nil {
		return nil, err
	}

	var payload rawCourse
	if err := decodeModelJSON(raw, &payload); err != nil {
		return nil, err
	}

	course := &GeneratedCourse{
		Title:              payload.Title,
		Description:        payload.Description,
		Level:              payload.Level,
		ImageURL:           payload.ImageURL,
		ProjectDescription: payload.ProjectDescription,
	}
	for _, ch := range payload.Chapters {
		chapter := models.Chapter{Title: ch.Title}
		for _, l := range ch.Lessons {
			lesson := models.Lesson{Title: l.Title, Content: l.Content, XP: l.XP}
			if l.Quiz != nil {
				lesson.Quiz = normalizeQuiz(l.Quiz, l.Title)
			}
			chapter.Lessons = append(chapter.Lessons, lesson)
		}
		course.Chapters = append(course.Chapters, chapter)
	}

	if err := g.validateCourse(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (g *OpenAIGenerator) GenerateQuizQuestions(ctx context.Context, lessonTitle, content string) ([]models.QuizQuestion, error) {
	prompt := fmt.Sprintf(`Generate a new quiz for the lesson titled %q.

Lesson content: %q

Create 5 different multiple-choice questions based on this lesson content. Make sure these are NEW questions, different from any previous attempts.

Return ONLY a JSON object in this exact format:
{
  "questions": [
    {
      "question": "Question text here?",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correctAnswer": "Option A"
    }
  ]
}

Make the questions challenging but fair, testing understanding of the key concepts. Each correctAnswer must be copied verbatim from the question's options.`, lessonTitle, content)

	raw, err := g.complete(ctx, "You are an expert instructional designer.", prompt)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Questions []rawQuestion `json:"questions"`
	}
	if err := decodeModelJSON(raw, &payload); err != nil {
		return nil, err
	}
	if len(payload.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions generated", ErrUpstream)
	}

	questions := normalizeQuestions(payload.Questions)
	for _, q := range questions {
		if err := g.validateQuestion(q); err != nil {
			return nil, err
		}
	}
	return questions, nil
}

func (g *OpenAIGenerator) Chat(ctx context.Context, message string, history []ChatMessage) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: tutorSystemPrompt},
	}
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" || m.Role == "model" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrUpstream)
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrUpstream)
	}
	return resp.Choices[0].Message.Content, nil
}

func normalizeQuiz(q *rawQuiz, lessonTitle string) *models.Quiz {
	title := q.Title
	if title == "" {
		title = "Quiz for " + lessonTitle
	}
	return &models.Quiz{Title: title, Questions: normalizeQuestions(q.Questions)}
}

func normalizeQuestions(raw []rawQuestion) []models.QuizQuestion {
	questions := make([]models.QuizQuestion, 0, len(raw))
	for _, q := range raw {
		answer := q.CorrectAnswer
		if answer == "" {
			answer = q.Answer
		}
		questions = append(questions, models.QuizQuestion{
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: answer,
		})
	}
	return questions
}

func (g *OpenAIGenerator) validateCourse(course *GeneratedCourse) error {
	if err := g.validate.Struct(course); err != nil {
		return fmt.Errorf("%w: generated course failed validation: %v", ErrUpstream, err)
	}
	for _, chapter := range course.Chapters {
		for _, lesson := range chapter.Lessons {
			if lesson.Quiz == nil {
				continue
			}
			for _, q := range lesson.Quiz.Questions {
				if err := g.validateQuestion(q); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (g *OpenAIGenerator) validateQuestion(q models.QuizQuestion) error {
	if err := g.validate.Struct(q); err != nil {
		return fmt.Errorf("%w: generated question failed validation: %v", ErrUpstream, err)
	}
	for _, opt := range q.Options {
		if opt == q.CorrectAnswer {
			return nil
		}
	}
	return fmt.Errorf("%w: correctAnswer %q is not one of the options", ErrUpstream, q.CorrectAnswer)
}
