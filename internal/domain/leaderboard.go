package domain

import (
	"fmt"
	"time"
)

type LeaderboardType string

const (
	LeaderboardWPM     LeaderboardType = "wpm"
	LeaderboardPoints  LeaderboardType = "points"
	LeaderboardLessons LeaderboardType = "lessons"
)

var LeaderboardTypes = []LeaderboardType{LeaderboardWPM, LeaderboardPoints, LeaderboardLessons}

func ParseLeaderboardType(s string) (LeaderboardType, error) {
	for _, t := range LeaderboardTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown leaderboard type %q", s)
}

type LeaderboardPeriod string

const (
	PeriodDaily   LeaderboardPeriod = "daily"
	PeriodWeekly  LeaderboardPeriod = "weekly"
	PeriodMonthly LeaderboardPeriod = "monthly"
	PeriodAllTime LeaderboardPeriod = "all-time"
)

var LeaderboardPeriods = []LeaderboardPeriod{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime}

func ParseLeaderboardPeriod(s string) (LeaderboardPeriod, error) {
	for _, p := range LeaderboardPeriods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown leaderboard period %q", s)
}

// Since returns the inclusive start of the period window containing now, in UTC.
// Weeks start on Monday. All-time returns the zero time.
func (p LeaderboardPeriod) Since(now time.Time) time.Time {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch p {
	case PeriodDaily:
		return day
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case PeriodMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Time{}
	}
}
