package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account plus its rolling aggregates. The aggregates are recomputed
// from the test tables on every submission, never patched incrementally.
type User struct {
	ID                 string          `json:"id"`
	Email              string          `json:"email"`
	Username           string          `json:"username"`
	PasswordHash       string          `json:"-"`
	Role               Role            `json:"role"`
	Bio                string          `json:"bio"`
	BestWPM            int             `json:"bestWpm"`
	AverageWPM         decimal.Decimal `json:"averageWpm"`
	AverageAccuracy    decimal.Decimal `json:"averageAccuracy"`
	TotalTypingSeconds int             `json:"totalTypingSeconds"`
	StreakDays         int             `json:"streakDays"`
	LastActivityAt     *time.Time      `json:"lastActivityAt,omitempty"`
	TotalPoints        int             `json:"totalPoints"`
	Badges             []BadgeKind     `json:"badges"`
	CreatedAt          time.Time       `json:"createdAt"`
}

type TestKind string

const (
	TestKindTyping TestKind = "typing"
	TestKindCode   TestKind = "code"
)

// TypingTest is one completed test. Rows are immutable once stored.
type TypingTest struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Kind       TestKind  `json:"kind"`
	WPM        int       `json:"wpm"`
	Accuracy   float64   `json:"accuracy"`
	Duration   int       `json:"duration"`
	Characters int       `json:"characters"`
	Errors     int       `json:"errors"`
	Mode       string    `json:"mode,omitempty"`
	Language   string    `json:"language,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type TypingStatistics struct {
	TotalTests         int             `json:"totalTests"`
	TypingTests        int             `json:"typingTests"`
	CodeTests          int             `json:"codeTests"`
	BestWPM            int             `json:"bestWpm"`
	AverageWPM         decimal.Decimal `json:"averageWpm"`
	AverageAccuracy    decimal.Decimal `json:"averageAccuracy"`
	TotalTypingSeconds int             `json:"totalTypingSeconds"`
	StreakDays         int             `json:"streakDays"`
	Recent             []TypingTest    `json:"recent"`
}

type LessonStatus string

const (
	LessonNotStarted LessonStatus = "not_started"
	LessonInProgress LessonStatus = "in_progress"
	LessonCompleted  LessonStatus = "completed"
)

type Lesson struct {
	ID           string          `json:"id"`
	Slug         string          `json:"slug"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Content      string          `json:"content,omitempty"`
	Difficulty   string          `json:"difficulty"`
	OrderIndex   int             `json:"orderIndex"`
	PointsReward int             `json:"pointsReward"`
	Progress     *LessonProgress `json:"progress,omitempty"`
}

type LessonProgress struct {
	UserID      string       `json:"userId"`
	LessonID    string       `json:"lessonId"`
	Status      LessonStatus `json:"status"`
	Progress    int          `json:"progress"`
	TimeSpent   int          `json:"timeSpent"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type Quiz struct {
	ID           string     `json:"id"`
	Slug         string     `json:"slug"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	LessonID     *string    `json:"lessonId,omitempty"`
	PassScore    int        `json:"passScore"`
	PointsReward int        `json:"pointsReward"`
	Questions    []Question `json:"questions,omitempty"`
}

type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Correct int      `json:"-"`
}

type QuizAttempt struct {
	ID        string    `json:"id"`
	QuizID    string    `json:"quizId"`
	UserID    string    `json:"userId"`
	Score     int       `json:"score"`
	Correct   int       `json:"correct"`
	Total     int       `json:"total"`
	Passed    bool      `json:"passed"`
	CreatedAt time.Time `json:"createdAt"`
}

type Challenge struct {
	ID             string `json:"id"`
	Slug           string `json:"slug"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Difficulty     string `json:"difficulty"`
	Language       string `json:"language"`
	ExpectedOutput string `json:"-"`
	PointsReward   int    `json:"pointsReward"`
}

type ChallengeAttempt struct {
	ID          string    `json:"id"`
	ChallengeID string    `json:"challengeId"`
	UserID      string    `json:"userId"`
	Output      string    `json:"output"`
	Correct     bool      `json:"correct"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Certificate struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	LessonID    string    `json:"lessonId"`
	LessonTitle string    `json:"lessonTitle"`
	ShareToken  string    `json:"shareToken"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// Leaderboard is a ranked snapshot for one (type, period) key.
// Entries are sorted by rank, ranks form the sequence 1..len(Entries).
type Leaderboard struct {
	Type       LeaderboardType    `json:"type"`
	Period     LeaderboardPeriod  `json:"period"`
	Entries    []LeaderboardEntry `json:"entries"`
	ComputedAt time.Time          `json:"computedAt"`
}

type LeaderboardEntry struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Rank     int    `json:"rank"`
	Score    int    `json:"score"`
}

type Rank struct {
	Type   LeaderboardType   `json:"type"`
	Period LeaderboardPeriod `json:"period"`
	Rank   int               `json:"rank"`
	Score  int               `json:"score"`
	Cached bool              `json:"cached"`
}
