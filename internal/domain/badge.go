package domain

// BadgeKind is the closed set of achievements. Membership checks compare kinds,
// never display names.
type BadgeKind string

const (
	BadgeTypingRookie   BadgeKind = "TYPING_ROOKIE"
	BadgeTypingAddict   BadgeKind = "TYPING_ADDICT"
	BadgeCodeTypist     BadgeKind = "CODE_TYPIST"
	BadgeFastFingers    BadgeKind = "FAST_FINGERS"
	BadgeSpeedDemon     BadgeKind = "SPEED_DEMON"
	BadgePrecision      BadgeKind = "PRECISION"
	BadgeWeekStreak     BadgeKind = "WEEK_STREAK"
	BadgeMonthStreak    BadgeKind = "MONTH_STREAK"
	BadgeFirstLesson    BadgeKind = "FIRST_LESSON"
	BadgeLessonMaster   BadgeKind = "LESSON_MASTER"
	BadgeQuizWhiz       BadgeKind = "QUIZ_WHIZ"
	BadgeProblemSolver  BadgeKind = "PROBLEM_SOLVER"
	BadgePointCollector BadgeKind = "POINT_COLLECTOR"
)

type Badge struct {
	Kind        BadgeKind `json:"kind"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
}

// Badges lists every badge in display order.
var Badges = []Badge{
	{Kind: BadgeTypingRookie, Name: "Typing Rookie", Description: "Complete 10 typing tests", Icon: "keyboard"},
	{Kind: BadgeTypingAddict, Name: "Typing Addict", Description: "Complete 100 typing tests", Icon: "flame"},
	{Kind: BadgeCodeTypist, Name: "Code Typist", Description: "Complete 10 code typing tests", Icon: "code"},
	{Kind: BadgeFastFingers, Name: "Fast Fingers", Description: "Reach 60 WPM", Icon: "zap"},
	{Kind: BadgeSpeedDemon, Name: "Speed Demon", Description: "Reach 100 WPM", Icon: "rocket"},
	{Kind: BadgePrecision, Name: "Precision", Description: "Average 98% accuracy over at least 10 tests", Icon: "target"},
	{Kind: BadgeWeekStreak, Name: "Week Streak", Description: "Practice 7 days in a row", Icon: "calendar"},
	{Kind: BadgeMonthStreak, Name: "Month Streak", Description: "Practice 30 days in a row", Icon: "calendar-check"},
	{Kind: BadgeFirstLesson, Name: "First Lesson", Description: "Complete your first lesson", Icon: "book-open"},
	{Kind: BadgeLessonMaster, Name: "Lesson Master", Description: "Complete 10 lessons", Icon: "graduation-cap"},
	{Kind: BadgeQuizWhiz, Name: "Quiz Whiz", Description: "Pass 5 quizzes", Icon: "brain"},
	{Kind: BadgeProblemSolver, Name: "Problem Solver", Description: "Solve 5 coding challenges", Icon: "puzzle"},
	{Kind: BadgePointCollector, Name: "Point Collector", Description: "Earn 1000 points", Icon: "trophy"},
}

// LookupBadge returns the catalog entry for k.
func LookupBadge(k BadgeKind) (Badge, bool) {
	for _, b := range Badges {
		if b.Kind == k {
			return b, true
		}
	}
	return Badge{}, false
}
