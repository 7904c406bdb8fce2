package api

import (
	"context"
	"io"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/eduverse/typehub/internal/auth"
	"github.com/eduverse/typehub/internal/challenge"
	"github.com/eduverse/typehub/internal/domain"
	"github.com/eduverse/typehub/internal/event"
	"github.com/eduverse/typehub/internal/leaderboard"
	"github.com/eduverse/typehub/internal/lesson"
	"github.com/eduverse/typehub/internal/quiz"
	"github.com/eduverse/typehub/internal/typing"
)

type (
	AuthService interface {
		Register(ctx context.Context, req auth.RegisterRequest) (*auth.Session, error)
		Login(ctx context.Context, req auth.LoginRequest) (*auth.Session, error)
		Me(ctx context.Context, userID string) (*domain.User, error)
		UpdateProfile(ctx context.Context, req auth.UpdateProfileRequest) (*domain.User, error)
	}

	TokenValidator interface {
		Validate(token string) (*auth.Claims, error)
	}

	TypingService interface {
		SubmitResult(ctx context.Context, req typing.SubmitResultRequest) (*domain.TypingTest, error)
		ListResults(ctx context.Context, req typing.ListResultsRequest) ([]domain.TypingTest, error)
		Statistics(ctx context.Context, userID string) (*domain.TypingStatistics, error)
		Export(ctx context.Context, userID string, w io.Writer) error
	}

	LessonService interface {
		List(ctx context.Context, userID string) ([]domain.Lesson, error)
		GetBySlug(ctx context.Context, slug, userID string) (*domain.Lesson, error)
		ListProgress(ctx context.Context, userID string) ([]domain.LessonProgress, error)
		UpdateProgress(ctx context.Context, req lesson.UpdateProgressRequest) (*domain.LessonProgress, error)
	}

	QuizService interface {
		List(ctx context.Context) ([]domain.Quiz, error)
		Get(ctx context.Context, id string) (*domain.Quiz, error)
		Submit(ctx context.Context, req quiz.SubmitRequest) (*domain.QuizAttempt, error)
		Attempts(ctx context.Context, userID, quizID string) ([]domain.QuizAttempt, error)
	}

	ChallengeService interface {
		List(ctx context.Context) ([]domain.Challenge, error)
		GetBySlug(ctx context.Context, slug string) (*domain.Challenge, error)
		Submit(ctx context.Context, req challenge.SubmitRequest) (*domain.ChallengeAttempt, error)
	}

	CertificateService interface {
		Issue(ctx context.Context, userID, lessonID string) (*domain.Certificate, error)
		List(ctx context.Context, userID string) ([]domain.Certificate, error)
		Shared(ctx context.Context, token string) (*domain.Certificate, error)
	}

	LeaderboardService interface {
		Get(ctx context.Context, req leaderboard.GetRequest) (*domain.Leaderboard, error)
		MyRank(ctx context.Context, req leaderboard.MyRankRequest) (*domain.Rank, error)
		Rebuild(ctx context.Context, req leaderboard.RebuildRequest) (*domain.Leaderboard, error)
		RebuildAll(ctx context.Context) error
	}
)

type RateLimit struct {
	Login  int
	Window time.Duration
}

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient

	// Prefix namespaces every redis key and channel the API uses.
	Prefix string

	// Production hides internal error details from responses.
	Production   bool
	AllowOrigins []string
	RateLimit    RateLimit

	Tokens      TokenValidator
	Auth        AuthService
	Typing      TypingService
	Lesson      LessonService
	Quiz        QuizService
	Challenge   ChallengeService
	Certificate CertificateService
	Leaderboard LeaderboardService
}

type API struct {
	redis      redis.UniversalClient
	prefix     string
	production bool
	origins    []string
	limit      RateLimit

	tokens TokenValidator
	as     AuthService
	ts     TypingService
	les    LessonService
	qs     QuizService
	cs     ChallengeService
	certs  CertificateService
	ls     LeaderboardService
}

func New(c Config) *API {
	a := &API{
		redis:      c.Redis,
		prefix:     c.Prefix,
		production: c.Production,
		origins:    originHosts(c.AllowOrigins),
		limit:      c.RateLimit,
		tokens:     c.Tokens,
		as:         c.Auth,
		ts:         c.Typing,
		les:        c.Lesson,
		qs:         c.Quiz,
		cs:         c.Challenge,
		certs:      c.Certificate,
		ls:         c.Leaderboard,
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}

	// Register event handlers
	if c.EventBus != nil {
		c.EventBus.Subscribe(domain.EventNameBadgesAwarded, func(ctx context.Context, e event.Event) error {
			return a.PublishBadgesAwarded(ctx, e.(domain.EventBadgesAwarded))
		})
		c.EventBus.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
			return a.PublishLeaderboardUpdated(ctx, e.(domain.EventLeaderboardUpdated))
		})
	}

	return a
}

// Register mounts every REST route under /api.
func (a *API) Register(e *gin.Engine) {
	e.NoRoute(notFound)
	g := e.Group("/api")

	authn := g.Group("/auth")
	authn.POST("/register", a.register)
	authn.POST("/login", a.rateLimit("login", a.limit.Login, a.limit.Window), a.login)
	authn.GET("/me", a.authenticate, a.me)
	authn.PUT("/profile", a.authenticate, a.updateProfile)

	g.POST("/typing/results", a.authenticate, a.submitTypingResult)
	g.GET("/typing/results", a.authenticate, a.listTypingResults)
	g.GET("/typing/results/export", a.authenticate, a.exportTypingResults)
	g.GET("/typing/statistics", a.authenticate, a.typingStatistics)
	g.POST("/code-typing/test", a.authenticate, a.submitCodeTypingResult)
	g.GET("/code-typing/results", a.authenticate, a.listCodeTypingResults)

	g.GET("/badges", a.listBadges)
	g.GET("/badges/mine", a.authenticate, a.myBadges)

	g.GET("/lessons", a.optionalAuth, a.listLessons)
	g.GET("/lessons/progress", a.authenticate, a.listLessonProgress)
	// Lessons and challenges are read by slug but written by id, both share one path segment.
	g.GET("/lessons/:lesson", a.optionalAuth, a.getLesson)
	g.POST("/lessons/:lesson/progress", a.authenticate, a.updateLessonProgress)

	g.GET("/quizzes", a.listQuizzes)
	g.GET("/quizzes/:id", a.getQuiz)
	g.POST("/quizzes/:id/attempts", a.authenticate, a.submitQuiz)
	g.GET("/quizzes/:id/attempts", a.authenticate, a.listQuizAttempts)

	g.GET("/challenges", a.listChallenges)
	g.GET("/challenges/:challenge", a.getChallenge)
	g.POST("/challenges/:challenge/attempts", a.authenticate, a.submitChallenge)

	g.POST("/certificates", a.authenticate, a.issueCertificate)
	g.GET("/certificates", a.authenticate, a.listCertificates)
	g.GET("/certificates/share/:token", a.sharedCertificate)

	g.GET("/leaderboard/my-rank", a.authenticate, a.myRank)
	g.POST("/leaderboard/rebuild", a.authenticate, a.requireAdmin, a.rebuildLeaderboard)
	g.GET("/leaderboard/:type/:period", a.getLeaderboard)

	g.GET("/notifications/ws", a.notifications)
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "" {
		name = strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
	}
	if name == "-" {
		return ""
	}
	return name
}

// originHosts turns CORS origins into the host patterns websocket.Accept checks.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}
