package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"

	"gorm.io/gorm"
)

type QuizQuestion struct {
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectAnswer string   `json:"correctAnswer" validate:"required"`
}

type Quiz struct {
	Title     string         `json:"title" validate:"required"`
	Questions []QuizQuestion `json:"questions" validate:"required,min=1,dive"`
}

type Lesson struct {
	Title      string `json:"title" validate:"required"`
	Content    string `json:"content" validate:"required"`
	XP         int    `json:"xp" validate:"gte=0"`
	Quiz       *Quiz  `json:"quiz,omitempty"`
	Completed  bool   `json:"completed"`
	QuizScore  int    `json:"quizScore"` // percentage 0-100
	QuizPassed bool   `json:"quizPassed"`
	Attempts   int    `json:"attempts"`
	Unlocked   bool   `json:"unlocked"`
}

type Chapter struct {
	Title     string   `json:"title" validate:"required"`
	Lessons   []Lesson `json:"lessons" validate:"required,min=1,dive"`
	Completed bool     `json:"completed"`
	Unlocked  bool     `json:"unlocked"`
}

// ChapterList is stored as a single JSON document column.
type ChapterList []Chapter

func (cl ChapterList) Value() (driver.Value, error) {
	if cl == nil {
		cl = ChapterList{}
	}
	return json.Marshal(cl)
}

func (cl *ChapterList) Scan(value interface{}) error {
	if value == nil {
		*cl = ChapterList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, cl)
	case string:
		return json.Unmarshal([]byte(v), cl)
	default:
		return fmt.Errorf("unsupported type %T for ChapterList", value)
	}
}

type Course struct {
	gorm.Model
	Title              string      `json:"title" gorm:"not null"`
	Description        string      `json:"description" gorm:"not null"`
	OwnerID            string      `json:"ownerId" gorm:"index;not null"`
	Level              string      `json:"level" gorm:"not null"` // Beginner, Intermediate, Advanced
	ImageURL           string      `json:"imageUrl"`
	ProjectDescription string      `json:"projectDescription,omitempty"`
	Chapters           ChapterList `json:"chapters" gorm:"type:jsonb"`
}

// CourseLevels are the accepted difficulty values.
var CourseLevels = []string{"Beginner", "Intermediate", "Advanced"}

func IsValidCourseLevel(level string) bool {
	for _, l := range CourseLevels {
		if l == level {
			return true
		}
	}
	return false
}

var (
	ErrChapterOutOfRange = fmt.Errorf("chapter index out of range")
	ErrLessonOutOfRange  = fmt.Errorf("lesson index out of range")
	ErrLessonHasNoQuiz   = fmt.Errorf("lesson has no quiz")
)

// IsChapterUnlocked reports whether a chapter is reachable: the first chapter
// always is, later chapters require the previous one to be completed.
func (c *Course) IsChapterUnlocked(chapterIndex int) bool {
	if chapterIndex < 0 || chapterIndex >= len(c.Chapters) {
		return false
	}
	if chapterIndex == 0 {
		return true
	}
	return c.Chapters[chapterIndex-1].Completed
}

// IsLessonUnlocked reports whether a lesson is reachable. The first lesson of
// an unlocked chapter always is, later lessons require the previous lesson to
// be completed with a passing quiz score.
func (c *Course) IsLessonUnlocked(chapterIndex, lessonIndex int) bool {
	if !c.IsChapterUnlocked(chapterIndex) {
		return false
	}
	lessons := c.Chapters[chapterIndex].Lessons
	if lessonIndex < 0 || lessonIndex >= len(lessons) {
		return false
	}
	if lessonIndex == 0 {
		return true
	}
	prev := lessons[lessonIndex-1]
	return prev.Completed && prev.QuizPassed
}

// UpdateChapterCompletion recomputes and stores a chapter's completion flag:
// every lesson completed and quiz-passed.
func (c *Course) UpdateChapterCompletion(chapterIndex int) bool {
	if chapterIndex < 0 || chapterIndex >= len(c.Chapters) {
		return false
	}
	chapter := &c.Chapters[chapterIndex]
	completed := len(chapter.Lessons) > 0
	for _, lesson := range chapter.Lessons {
		if !lesson.Completed || !lesson.QuizPassed {
			completed = false
			break
		}
	}
	chapter.Completed = completed
	return completed
}

// RefreshUnlocks recomputes the stored unlocked flags from completion state.
// The flags are persisted for convenience but this derivation is the truth;
// callers run it after every mutation and before returning a course.
func (c *Course) RefreshUnlocks() {
	for i := range c.Chapters {
		c.Chapters[i].Unlocked = c.IsChapterUnlocked(i)
		for j := range c.Chapters[i].Lessons {
			c.Chapters[i].Lessons[j].Unlocked = c.IsLessonUnlocked(i, j)
		}
	}
}

// QuizResult is the outcome of recording one quiz attempt.
type QuizResult struct {
	Percentage int
	Passed     bool
	Attempts   int
}

// RecordQuizResult scores an attempt against the given pass threshold and
// updates the lesson's quiz state. It does not unlock subsequent chapters;
// that is the completion workflow's job.
func (c *Course) RecordQuizResult(chapterIndex, lessonIndex, score, totalQuestions, passThreshold int) (*QuizResult, error) {
	lesson, err := c.LessonAt(chapterIndex, lessonIndex)
	if err != nil {
		return nil, err
	}
	if totalQuestions <= 0 {
		return nil, fmt.Errorf("totalQuestions must be positive")
	}

	percentage := int(math.Round(float64(score) / float64(totalQuestions) * 100))
	passed := percentage >= passThreshold

	lesson.Attempts++
	lesson.QuizScore = percentage
	lesson.QuizPassed = passed
	if passed {
		lesson.Completed = true
	}

	return &QuizResult{Percentage: percentage, Passed: passed, Attempts: lesson.Attempts}, nil
}

// NextUnlockedLesson returns the first unlocked, not yet completed lesson in
// course order, for resuming progress. ok is false when everything is done.
func (c *Course) NextUnlockedLesson() (chapterIndex, lessonIndex int, ok bool) {
	for i := range c.Chapters {
		for j := range c.Chapters[i].Lessons {
			lesson := c.Chapters[i].Lessons[j]
			if !lesson.Completed && c.IsLessonUnlocked(i, j) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// RegenerateQuiz swaps in a fresh question set, keeping the quiz title and the
// lesson's score/attempt state until the next recorded attempt.
func (c *Course) RegenerateQuiz(chapterIndex, lessonIndex int, questions []QuizQuestion) error {
	lesson, err := c.LessonAt(chapterIndex, lessonIndex)
	if err != nil {
		return err
	}
	if lesson.Quiz == nil {
		return ErrLessonHasNoQuiz
	}
	lesson.Quiz.Questions = questions
	return nil
}

// LessonAt returns a pointer into the chapters slice, valid until the slice
// is reassigned.
func (c *Course) LessonAt(chapterIndex, lessonIndex int) (*Lesson, error) {
	if chapterIndex < 0 || chapterIndex >= len(c.Chapters) {
		return nil, ErrChapterOutOfRange
	}
	lessons := c.Chapters[chapterIndex].Lessons
	if lessonIndex < 0 || lessonIndex >= len(lessons) {
		return nil, ErrLessonOutOfRange
	}
	return &c.Chapters[chapterIndex].Lessons[lessonIndex], nil
}
