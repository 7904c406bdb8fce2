package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/eduverse/typehub/internal/api"
	"github.com/eduverse/typehub/internal/auth"
	"github.com/eduverse/typehub/internal/certificate"
	"github.com/eduverse/typehub/internal/challenge"
	"github.com/eduverse/typehub/internal/event"
	"github.com/eduverse/typehub/internal/gamification"
	"github.com/eduverse/typehub/internal/leaderboard"
	"github.com/eduverse/typehub/internal/lesson"
	"github.com/eduverse/typehub/internal/postgres"
	"github.com/eduverse/typehub/internal/quiz"
	"github.com/eduverse/typehub/internal/telemetry"
	"github.com/eduverse/typehub/internal/typing"
)

const envProduction = "production"

type Config struct {
	Env string

	Log struct {
		Format string
		Level  string
	}

	HTTP struct {
		Port         int32
		AllowOrigins []string
	}

	GRPC struct {
		Port int32
	}

	Postgres postgres.Config

	Redis struct {
		Addrs  []string
		Pass   string
		Prefix string
	}

	Auth struct {
		Secret string
		TTL    time.Duration
	}

	Leaderboard struct {
		Size            int
		RebuildInterval time.Duration
	}

	RateLimit struct {
		Login  int
		Window time.Duration
	}
}

// DefaultConfig holds the values used when neither the config file nor the
// environment sets them.
func DefaultConfig() Config {
	var c Config
	c.Env = "development"
	c.Log.Format = "text"
	c.Log.Level = "info"
	c.HTTP.Port = 8080
	c.HTTP.AllowOrigins = []string{"http://localhost:3000"}
	c.GRPC.Port = 9090
	c.Redis.Prefix = "typehub"
	c.Auth.TTL = 7 * 24 * time.Hour
	c.Leaderboard.Size = 100
	c.Leaderboard.RebuildInterval = 15 * time.Minute
	c.RateLimit.Login = 10
	c.RateLimit.Window = 15 * time.Minute
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis    redis.UniversalClient
		postgres *pgxpool.Pool
	}

	service struct {
		auth        *auth.Service
		typing      *typing.Service
		lesson      *lesson.Service
		quiz        *quiz.Service
		challenge   *challenge.Service
		certificate *certificate.Service
		leaderboard *leaderboard.Service
	}

	tokens    *auth.TokenManager
	scheduler *leaderboard.Scheduler
	health    *health.Server

	http *http.Server
	grpc *grpc.Server
}

func Init(c Config) (*Server, error) {
	if c.Auth.Secret == "" {
		return nil, fmt.Errorf("server: auth.secret is required")
	}

	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()

	if err := s.initScheduler(); err != nil {
		return nil, fmt.Errorf("server: init scheduler: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Addrs,
		Password: s.c.Redis.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return err
	}

	s.infra.redis = r
	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.Connect(ctx, s.c.Postgres)
	if err != nil {
		return err
	}

	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initService() {
	db := s.infra.postgres

	gu := gamification.NewUpdater(gamification.Config{
		EventBus: s.eb,
	})

	s.tokens = auth.NewTokenManager(s.c.Auth.Secret, s.c.Auth.TTL)

	s.service.auth = auth.NewService(auth.Config{
		DB:     db,
		Tokens: s.tokens,
	})

	s.service.typing = typing.NewService(typing.Config{
		DB:           db,
		Gamification: gu,
	})

	s.service.lesson = lesson.NewService(lesson.Config{
		DB:           db,
		Gamification: gu,
	})

	s.service.quiz = quiz.NewService(quiz.Config{
		DB:           db,
		Gamification: gu,
	})

	s.service.challenge = challenge.NewService(challenge.Config{
		DB:           db,
		Gamification: gu,
	})

	s.service.certificate = certificate.NewService(certificate.Config{
		DB: db,
	})

	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		DB:       db,
		Redis:    s.infra.redis,
		EventBus: s.eb,
		Prefix:   s.c.Redis.Prefix,
		Size:     s.c.Leaderboard.Size,
	})
}

func (s *Server) initScheduler() error {
	if s.c.Leaderboard.RebuildInterval <= 0 {
		return nil
	}

	var err error
	s.scheduler, err = leaderboard.NewScheduler(s.service.leaderboard, s.c.Leaderboard.RebuildInterval)
	return err
}

func (s *Server) initAPI() {
	if s.c.Env == envProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.GET("/healthz", s.healthz)
	e.Use(gin.Recovery(), api.Logger())

	cc := cors.DefaultConfig()
	cc.AllowOrigins = s.c.HTTP.AllowOrigins
	cc.AllowHeaders = append(cc.AllowHeaders, "Authorization")
	cc.AllowCredentials = true
	e.Use(cors.New(cc))

	api.New(api.Config{
		EventBus:     s.eb,
		Redis:        s.infra.redis,
		Prefix:       s.c.Redis.Prefix,
		Production:   s.c.Env == envProduction,
		AllowOrigins: s.c.HTTP.AllowOrigins,
		RateLimit: api.RateLimit{
			Login:  s.c.RateLimit.Login,
			Window: s.c.RateLimit.Window,
		},
		Tokens:      s.tokens,
		Auth:        s.service.auth,
		Typing:      s.service.typing,
		Lesson:      s.service.lesson,
		Quiz:        s.service.quiz,
		Challenge:   s.service.challenge,
		Certificate: s.service.certificate,
		Leaderboard: s.service.leaderboard,
	}).Register(e)

	s.grpc = grpc.NewServer(telemetry.GRPCServerOptions()...)
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

// healthz reports whether postgres and redis answer.
func (s *Server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	var eg errgroup.Group
	eg.Go(func() error { return s.infra.postgres.Ping(ctx) })
	eg.Go(func() error { return s.infra.redis.Ping(ctx).Err() })

	if err := eg.Wait(); err != nil {
		slog.WarnContext(ctx, "server: health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) Start() {
	ctx := context.TODO()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	if s.scheduler != nil {
		s.scheduler.Start()
		slog.InfoContext(ctx, "server: leaderboard rebuild scheduled", "interval", s.c.Leaderboard.RebuildInterval)
	}

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	s.health.Shutdown()
	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	if err := s.infra.redis.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close redis failed", "error", err)
	}
	s.infra.postgres.Close()

	slog.InfoContext(ctx, "server: shutdown completed")
}
