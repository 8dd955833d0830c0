package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
)

// XPSource identifies what earned a batch of experience points.
type XPSource string

const (
	SourceLessonCompletion XPSource = "lesson_completion"
	SourceQuizCompletion   XPSource = "quiz_completion"
	SourceCourseCompletion XPSource = "course_completion"
	SourceStreakBonus      XPSource = "streak_bonus"
	SourceAchievement      XPSource = "achievement"
	SourceDailyBonus       XPSource = "daily_bonus"
)

func (s XPSource) Valid() bool {
	switch s {
	case SourceLessonCompletion, SourceQuizCompletion, SourceCourseCompletion,
		SourceStreakBonus, SourceAchievement, SourceDailyBonus:
		return true
	}
	return false
}

var (
	ErrNonPositiveXP   = fmt.Errorf("xp amount must be positive")
	ErrUnknownXPSource = fmt.Errorf("unknown xp source")
)

type Streak struct {
	Current      int        `json:"current"`
	Longest      int        `json:"longest"`
	LastActivity *time.Time `json:"lastActivity"`
}

type Achievement struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	EarnedAt    time.Time `json:"earnedAt"`
	XPReward    int       `json:"xpReward"`
}

type AchievementList []Achievement

func (al AchievementList) Value() (driver.Value, error) {
	if al == nil {
		al = AchievementList{}
	}
	return json.Marshal(al)
}

func (al *AchievementList) Scan(value interface{}) error {
	return scanJSON(value, al)
}

// XPEvent is one entry of the append-only history; the sum of all amounts
// always equals TotalXP.
type XPEvent struct {
	Amount   int       `json:"amount"`
	Source   XPSource  `json:"source"`
	SourceID string    `json:"sourceId,omitempty"`
	EarnedAt time.Time `json:"earnedAt"`
}

type XPEventList []XPEvent

func (el XPEventList) Value() (driver.Value, error) {
	if el == nil {
		el = XPEventList{}
	}
	return json.Marshal(el)
}

func (el *XPEventList) Scan(value interface{}) error {
	return scanJSON(value, el)
}

func scanJSON(value, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported type %T for JSON column", value)
	}
}

type DailyXP struct {
	Date   time.Time `json:"date"`
	Earned int       `json:"earned"`
}

type WeeklyXP struct {
	WeekStart time.Time `json:"weekStart"`
	Earned    int       `json:"earned"`
}

type XPProfile struct {
	gorm.Model
	UserID        string          `json:"userId" gorm:"uniqueIndex;not null"`
	TotalXP       int             `json:"totalXP"`
	CurrentLevel  int             `json:"currentLevel" gorm:"default:1"`
	XPToNextLevel int             `json:"xpToNextLevel" gorm:"default:100"`
	Streak        Streak          `json:"streak" gorm:"embedded;embeddedPrefix:streak_"`
	Achievements  AchievementList `json:"achievements" gorm:"type:jsonb"`
	DailyXP       DailyXP         `json:"dailyXP" gorm:"embedded;embeddedPrefix:daily_"`
	WeeklyXP      WeeklyXP        `json:"weeklyXP" gorm:"embedded;embeddedPrefix:weekly_"`
	XPHistory     XPEventList     `json:"xpHistory" gorm:"type:jsonb"`
}

// NewXPProfile returns the default zero-state profile a user springs into
// existence with on their first XP-related request.
func NewXPProfile(userID string) *XPProfile {
	now := time.Now()
	return &XPProfile{
		UserID:        userID,
		CurrentLevel:  1,
		XPToNextLevel: LevelThreshold(2),
		DailyXP:       DailyXP{Date: startOfDay(now)},
		WeeklyXP:      WeeklyXP{WeekStart: startOfWeek(now)},
	}
}

// LevelThreshold is the cumulative XP required to reach a level. Level 1 is
// free; each step up costs half again as much as the last, starting at 100.
func LevelThreshold(level int) int {
	if level <= 1 {
		return 0
	}
	return int(math.Floor(100 * math.Pow(1.5, float64(level-2))))
}

// LevelUpResult reports whether an AddXP call crossed at least one level.
type LevelUpResult struct {
	LeveledUp bool
	NewLevel  int
}

// AddXP appends to the history, rolls the daily and weekly buckets, and walks
// the level up as far as the new total reaches. A single large grant can cross
// several levels at once.
func (p *XPProfile) AddXP(amount int, source XPSource, sourceID string) (*LevelUpResult, error) {
	return p.addXPAt(time.Now(), amount, source, sourceID)
}

func (p *XPProfile) addXPAt(now time.Time, amount int, source XPSource, sourceID string) (*LevelUpResult, error) {
	if amount <= 0 {
		return nil, ErrNonPositiveXP
	}
	if !source.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownXPSource, source)
	}

	p.TotalXP += amount
	p.XPHistory = append(p.XPHistory, XPEvent{
		Amount:   amount,
		Source:   source,
		SourceID: sourceID,
		EarnedAt: now,
	})

	today := startOfDay(now)
	if !p.DailyXP.Date.Equal(today) {
		p.DailyXP = DailyXP{Date: today}
	}
	p.DailyXP.Earned += amount

	week := startOfWeek(now)
	if !p.WeeklyXP.WeekStart.Equal(week) {
		p.WeeklyXP = WeeklyXP{WeekStart: week}
	}
	p.WeeklyXP.Earned += amount

	leveledUp := false
	for p.TotalXP >= LevelThreshold(p.CurrentLevel+1) {
		p.CurrentLevel++
		leveledUp = true
	}
	p.XPToNextLevel = LevelThreshold(p.CurrentLevel+1) - p.TotalXP

	return &LevelUpResult{LeveledUp: leveledUp, NewLevel: p.CurrentLevel}, nil
}

// StreakStatus is the outcome of a streak update.
type StreakStatus string

const (
	StreakStarted   StreakStatus = "started"
	StreakUnchanged StreakStatus = "unchanged"
	StreakContinued StreakStatus = "continued"
	StreakBroken    StreakStatus = "broken"
)

// UpdateStreak compares calendar days, not timestamps: same day is a no-op,
// the next day extends the streak, any longer gap resets it to 1. Whether a
// bonus is granted is the caller's decision.
func (p *XPProfile) UpdateStreak() StreakStatus {
	return p.updateStreakAt(time.Now())
}

func (p *XPProfile) updateStreakAt(now time.Time) StreakStatus {
	if p.Streak.LastActivity == nil {
		p.Streak.Current = 1
		p.Streak.LastActivity = &now
		return StreakStarted
	}

	today := startOfDay(now)
	last := startOfDay(*p.Streak.LastActivity)
	daysDiff := int(math.Round(today.Sub(last).Hours() / 24))

	switch {
	case daysDiff == 0:
		return StreakUnchanged
	case daysDiff == 1:
		p.Streak.Current++
		if p.Streak.Current > p.Streak.Longest {
			p.Streak.Longest = p.Streak.Current
		}
		p.Streak.LastActivity = &now
		return StreakContinued
	default:
		p.Streak.Current = 1
		p.Streak.LastActivity = &now
		return StreakBroken
	}
}

// AddAchievement is idempotent by name: a repeat earns nothing and reports
// false. A positive xpReward is applied through AddXP exactly once.
func (p *XPProfile) AddAchievement(name, description string, xpReward int) bool {
	for _, a := range p.Achievements {
		if a.Name == name {
			return false
		}
	}

	p.Achievements = append(p.Achievements, Achievement{
		Name:        name,
		Description: description,
		EarnedAt:    time.Now(),
		XPReward:    xpReward,
	})

	if xpReward > 0 {
		p.AddXP(xpReward, SourceAchievement, "")
	}

	return true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek is the most recent Sunday's midnight, the calendar-local week
// boundary the weekly bucket rolls on.
func startOfWeek(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, -int(t.Weekday()))
}
