package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCourse() *Course {
	quiz := func(title string) *Quiz {
		return &Quiz{
			Title: title,
			Questions: []QuizQuestion{
				{Question: "Q1", Options: []string{"a", "b"}, CorrectAnswer: "a"},
				{Question: "Q2", Options: []string{"a", "b"}, CorrectAnswer: "b"},
			},
		}
	}
	return &Course{
		Title:       "Go Fundamentals",
		Description: "From zero to goroutines",
		OwnerID:     "user-1",
		Level:       "Beginner",
		Chapters: ChapterList{
			{
				Title: "Basics",
				Lessons: []Lesson{
					{Title: "Variables", Content: "...", XP: 10, Quiz: quiz("Quiz for Variables")},
					{Title: "Functions", Content: "...", XP: 10, Quiz: quiz("Quiz for Functions")},
				},
			},
			{
				Title: "Concurrency",
				Lessons: []Lesson{
					{Title: "Goroutines", Content: "...", XP: 10, Quiz: quiz("Quiz for Goroutines")},
					{Title: "Channels", Content: "...", XP: 10, Quiz: quiz("Quiz for Channels")},
				},
			},
		},
	}
}

func TestIsValidCourseLevel(t *testing.T) {
	assert.True(t, IsValidCourseLevel("Beginner"))
	assert.True(t, IsValidCourseLevel("Intermediate"))
	assert.True(t, IsValidCourseLevel("Advanced"))
	assert.False(t, IsValidCourseLevel("beginner"))
	assert.False(t, IsValidCourseLevel("Expert"))
}

func TestChapterUnlocking(t *testing.T) {
	c := testCourse()

	assert.True(t, c.IsChapterUnlocked(0), "first chapter is always unlocked")
	assert.False(t, c.IsChapterUnlocked(1), "second chapter locked until the first completes")
	assert.False(t, c.IsChapterUnlocked(-1))
	assert.False(t, c.IsChapterUnlocked(2))

	c.Chapters[0].Completed = true
	assert.True(t, c.IsChapterUnlocked(1))
}

func TestLessonUnlocking(t *testing.T) {
	c := testCourse()

	assert.True(t, c.IsLessonUnlocked(0, 0), "first lesson of an unlocked chapter")
	assert.False(t, c.IsLessonUnlocked(0, 1), "locked until the previous lesson is passed")
	assert.False(t, c.IsLessonUnlocked(1, 0), "chapter itself is locked")
	assert.False(t, c.IsLessonUnlocked(0, 2))

	// Completed without a passing score is not enough
	c.Chapters[0].Lessons[0].Completed = true
	assert.False(t, c.IsLessonUnlocked(0, 1))

	c.Chapters[0].Lessons[0].QuizPassed = true
	assert.True(t, c.IsLessonUnlocked(0, 1))
}

func TestUpdateChapterCompletion(t *testing.T) {
	c := testCourse()

	assert.False(t, c.UpdateChapterCompletion(0))
	assert.False(t, c.Chapters[0].Completed)

	c.Chapters[0].Lessons[0].Completed = true
	c.Chapters[0].Lessons[0].QuizPassed = true
	assert.False(t, c.UpdateChapterCompletion(0), "one lesson still open")

	c.Chapters[0].Lessons[1].Completed = true
	c.Chapters[0].Lessons[1].QuizPassed = true
	assert.True(t, c.UpdateChapterCompletion(0))
	assert.True(t, c.Chapters[0].Completed)

	assert.False(t, c.UpdateChapterCompletion(5), "out of range is never completed")

	empty := &Course{Chapters: ChapterList{{Title: "Empty"}}}
	assert.False(t, empty.UpdateChapterCompletion(0), "a chapter without lessons cannot complete")
}

func TestRefreshUnlocks(t *testing.T) {
	c := testCourse()
	c.RefreshUnlocks()

	assert.True(t, c.Chapters[0].Unlocked)
	assert.True(t, c.Chapters[0].Lessons[0].Unlocked)
	assert.False(t, c.Chapters[0].Lessons[1].Unlocked)
	assert.False(t, c.Chapters[1].Unlocked)
	assert.False(t, c.Chapters[1].Lessons[0].Unlocked)

	// Passing everything in chapter one opens chapter two
	for i := range c.Chapters[0].Lessons {
		c.Chapters[0].Lessons[i].Completed = true
		c.Chapters[0].Lessons[i].QuizPassed = true
	}
	c.UpdateChapterCompletion(0)
	c.RefreshUnlocks()

	assert.True(t, c.Chapters[1].Unlocked)
	assert.True(t, c.Chapters[1].Lessons[0].Unlocked)
	assert.False(t, c.Chapters[1].Lessons[1].Unlocked)
}

func TestRecordQuizResultPass(t *testing.T) {
	c := testCourse()

	result, err := c.RecordQuizResult(0, 0, 4, 5, 50)
	require.NoError(t, err)

	assert.Equal(t, 80, result.Percentage)
	assert.True(t, result.Passed)
	assert.Equal(t, 1, result.Attempts)

	lesson := c.Chapters[0].Lessons[0]
	assert.True(t, lesson.Completed)
	assert.True(t, lesson.QuizPassed)
	assert.Equal(t, 80, lesson.QuizScore)
}

func TestRecordQuizResultFail(t *testing.T) {
	c := testCourse()

	result, err := c.RecordQuizResult(0, 0, 2, 5, 50)
	require.NoError(t, err)

	assert.Equal(t, 40, result.Percentage)
	assert.False(t, result.Passed)
	assert.Equal(t, 1, result.Attempts)
	assert.False(t, c.Chapters[0].Lessons[0].Completed)

	// Retrying keeps counting attempts; a later pass does not reset them
	result, err = c.RecordQuizResult(0, 0, 3, 5, 50)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, 2, result.Attempts)
	assert.True(t, c.Chapters[0].Lessons[0].Completed)
}

func TestRecordQuizResultRoundsPercentage(t *testing.T) {
	c := testCourse()

	result, err := c.RecordQuizResult(0, 0, 1, 3, 50)
	require.NoError(t, err)
	assert.Equal(t, 33, result.Percentage)

	result, err = c.RecordQuizResult(0, 0, 2, 3, 50)
	require.NoError(t, err)
	assert.Equal(t, 67, result.Percentage)
	assert.True(t, result.Passed)
}

func TestRecordQuizResultHonorsThreshold(t *testing.T) {
	c := testCourse()

	result, err := c.RecordQuizResult(0, 0, 3, 5, 75)
	require.NoError(t, err)
	assert.Equal(t, 60, result.Percentage)
	assert.False(t, result.Passed)
}

func TestRecordQuizResultBounds(t *testing.T) {
	c := testCourse()

	_, err := c.RecordQuizResult(9, 0, 1, 5, 50)
	assert.ErrorIs(t, err, ErrChapterOutOfRange)

	_, err = c.RecordQuizResult(0, 9, 1, 5, 50)
	assert.ErrorIs(t, err, ErrLessonOutOfRange)

	_, err = c.RecordQuizResult(0, 0, 0, 0, 50)
	assert.Error(t, err)
}

func TestNextUnlockedLesson(t *testing.T) {
	c := testCourse()

	i, j, ok := c.NextUnlockedLesson()
	require.True(t, ok)
	assert.Equal(t, 0, i)
	assert.Equal(t, 0, j)

	_, err := c.RecordQuizResult(0, 0, 5, 5, 50)
	require.NoError(t, err)
	i, j, ok = c.NextUnlockedLesson()
	require.True(t, ok)
	assert.Equal(t, 0, i)
	assert.Equal(t, 1, j)

	// Finish everything
	for ci := range c.Chapters {
		for li := range c.Chapters[ci].Lessons {
			_, err := c.RecordQuizResult(ci, li, 5, 5, 50)
			require.NoError(t, err)
		}
		c.UpdateChapterCompletion(ci)
	}
	_, _, ok = c.NextUnlockedLesson()
	assert.False(t, ok)
}

func TestRegenerateQuiz(t *testing.T) {
	c := testCourse()
	c.Chapters[0].Lessons[0].Attempts = 3

	fresh := []QuizQuestion{
		{Question: "New Q", Options: []string{"x", "y"}, CorrectAnswer: "y"},
	}
	require.NoError(t, c.RegenerateQuiz(0, 0, fresh))

	lesson := c.Chapters[0].Lessons[0]
	assert.Equal(t, "Quiz for Variables", lesson.Quiz.Title, "title survives regeneration")
	assert.Equal(t, fresh, lesson.Quiz.Questions)
	assert.Equal(t, 3, lesson.Attempts, "attempt history survives regeneration")

	noQuiz := testCourse()
	noQuiz.Chapters[0].Lessons[0].Quiz = nil
	assert.ErrorIs(t, noQuiz.RegenerateQuiz(0, 0, fresh), ErrLessonHasNoQuiz)

	assert.ErrorIs(t, c.RegenerateQuiz(7, 0, fresh), ErrChapterOutOfRange)
}

func TestChapterListRoundTrip(t *testing.T) {
	c := testCourse()
	c.Chapters[0].Lessons[0].Completed = true
	c.Chapters[0].Lessons[0].QuizScore = 80

	value, err := c.Chapters.Value()
	require.NoError(t, err)

	var restored ChapterList
	require.NoError(t, restored.Scan(value))
	assert.Equal(t, c.Chapters, restored)

	var fromNil ChapterList
	require.NoError(t, fromNil.Scan(nil))
	assert.Empty(t, fromNil)
}
