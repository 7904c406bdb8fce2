package gamification

import (
	"time"

	"github.com/eduverse/typehub/internal/domain"
)

// Counters are the per-user figures badge thresholds are checked against.
// They are read fresh inside the transaction that triggered the check.
type Counters struct {
	TypingTests      int
	CodeTests        int
	BestWPM          int
	AverageAccuracy  float64
	StreakDays       int
	CompletedLessons int
	PassedQuizzes    int
	SolvedChallenges int
	TotalPoints      int
}

// TotalTests counts generic and code typing tests together.
func (c Counters) TotalTests() int {
	return c.TypingTests + c.CodeTests
}

type rule struct {
	kind   domain.BadgeKind
	earned func(c Counters) bool
}

var rules = []rule{
	{domain.BadgeTypingRookie, func(c Counters) bool { return c.TotalTests() >= 10 }},
	{domain.BadgeTypingAddict, func(c Counters) bool { return c.TotalTests() >= 100 }},
	{domain.BadgeCodeTypist, func(c Counters) bool { return c.CodeTests >= 10 }},
	{domain.BadgeFastFingers, func(c Counters) bool { return c.BestWPM >= 60 }},
	{domain.BadgeSpeedDemon, func(c Counters) bool { return c.BestWPM >= 100 }},
	{domain.BadgePrecision, func(c Counters) bool { return c.TotalTests() >= 10 && c.AverageAccuracy >= 98 }},
	{domain.BadgeWeekStreak, func(c Counters) bool { return c.StreakDays >= 7 }},
	{domain.BadgeMonthStreak, func(c Counters) bool { return c.StreakDays >= 30 }},
	{domain.BadgeFirstLesson, func(c Counters) bool { return c.CompletedLessons >= 1 }},
	{domain.BadgeLessonMaster, func(c Counters) bool { return c.CompletedLessons >= 10 }},
	{domain.BadgeQuizWhiz, func(c Counters) bool { return c.PassedQuizzes >= 5 }},
	{domain.BadgeProblemSolver, func(c Counters) bool { return c.SolvedChallenges >= 5 }},
	{domain.BadgePointCollector, func(c Counters) bool { return c.TotalPoints >= 1000 }},
}

// Evaluate returns the badges whose threshold c satisfies and that are not in owned.
func Evaluate(c Counters, owned map[domain.BadgeKind]struct{}) []domain.BadgeKind {
	var earned []domain.BadgeKind
	for _, r := range rules {
		if _, ok := owned[r.kind]; ok {
			continue
		}
		if r.earned(c) {
			earned = append(earned, r.kind)
		}
	}
	return earned
}

// NextStreak returns the streak after activity at now, given the previous streak
// and the time of the previous activity. Days are UTC calendar days.
func NextStreak(prev int, last *time.Time, now time.Time) int {
	if last == nil || last.IsZero() {
		return 1
	}

	days := daysBetween(last.UTC(), now.UTC())
	switch {
	case days <= 0:
		return max(prev, 1)
	case days == 1:
		return prev + 1
	default:
		return 1
	}
}

// StreakAlive reports whether a streak whose last activity was at last can still
// be extended at now.
func StreakAlive(last, now time.Time) bool {
	return daysBetween(last.UTC(), now.UTC()) <= 1
}

func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
