package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eduverse/typehub/internal/domain"
	"github.com/eduverse/typehub/internal/errors"
	"github.com/eduverse/typehub/internal/postgres"
)

const minPasswordLength = 6

type Config struct {
	DB     *pgxpool.Pool
	Tokens *TokenManager
}

type Service struct {
	db     *pgxpool.Pool
	tokens *TokenManager
}

func NewService(c Config) *Service {
	return &Service{
		db:     c.DB,
		tokens: c.Tokens,
	}
}

// Session is returned by register and login.
type Session struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type RegisterRequest struct {
	Email    string
	Username string
	Password string
}

func (r *RegisterRequest) normalize() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Username = strings.TrimSpace(r.Username)

	var fields []errors.FieldError
	if !strings.Contains(r.Email, "@") {
		fields = append(fields, errors.FieldError{Field: "email", Message: "must be a valid email"})
	}
	if r.Username == "" {
		fields = append(fields, errors.FieldError{Field: "username", Message: "is required"})
	}
	if len(r.Password) < minPasswordLength {
		fields = append(fields, errors.FieldError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLength)})
	}

	if len(fields) > 0 {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid registration"),
			errors.WithFields(fields...),
		)
	}

	return nil
}

// Register creates an account and signs the user in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	const stmt = `
INSERT INTO users (id, email, username, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns + `;`

	u, err := scanUser(s.db.QueryRow(ctx, stmt, id.String(), req.Email, req.Username, hash))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, errors.New(errors.CodeAlreadyExists,
				errors.WithMessagef("email already registered"),
				errors.WithFields(errors.FieldError{Field: "email", Message: "is already registered"}),
			)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	u.Badges = []domain.BadgeKind{}

	return s.session(u)
}

type LoginRequest struct {
	Email    string
	Password string
}

// Login checks the credentials. Unknown emails and wrong passwords are
// reported the same way.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1;`, email))
	if err != nil && !stderrors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("read user: %w", err)
	}
	if err != nil || !CheckPassword(u.PasswordHash, req.Password) {
		return nil, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("invalid email or password"))
	}

	if u.Badges, err = s.badges(ctx, u.ID); err != nil {
		return nil, err
	}

	return s.session(u)
}

func (s *Service) session(u *domain.User) (*Session, error) {
	token, err := s.tokens.Generate(u.ID, u.Role)
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, User: u}, nil
}

// Me returns the user's profile with aggregates and earned badges.
func (s *Service) Me(ctx context.Context, userID string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1;`, userID))
	if err != nil {
		return nil, postgres.NotFound(err, "user not found: id=%s", userID)
	}

	if u.Badges, err = s.badges(ctx, u.ID); err != nil {
		return nil, err
	}

	return u, nil
}

type UpdateProfileRequest struct {
	UserID string
	// Nil fields are left unchanged.
	Username *string
	Bio      *string
}

func (s *Service) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*domain.User, error) {
	if req.Username != nil && strings.TrimSpace(*req.Username) == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid profile"),
			errors.WithFields(errors.FieldError{Field: "username", Message: "must not be empty"}),
		)
	}

	var username *string
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		username = &trimmed
	}

	const stmt = `
UPDATE users SET
	username = COALESCE($2, username),
	bio      = COALESCE($3, bio)
WHERE id = $1;`

	tag, err := s.db.Exec(ctx, stmt, req.UserID, username, req.Bio)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, errors.NotFound("user not found: id=%s", req.UserID)
	}

	return s.Me(ctx, req.UserID)
}

// badges returns the user's earned badges in award order.
func (s *Service) badges(ctx context.Context, userID string) ([]domain.BadgeKind, error) {
	rows, err := s.db.Query(ctx, `SELECT badge FROM user_badges WHERE user_id = $1 ORDER BY awarded_at, badge;`, userID)
	if err != nil {
		return nil, fmt.Errorf("read badges: %w", err)
	}

	kinds, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.BadgeKind, error) {
		var k string
		err := r.Scan(&k)
		return domain.BadgeKind(k), err
	})
	if err != nil {
		return nil, fmt.Errorf("read badges: %w", err)
	}

	return kinds, nil
}

const userColumns = `id, email, username, password_hash, role, bio, best_wpm, average_wpm, average_accuracy,
	total_typing_seconds, streak_days, last_activity_at, total_points, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &role, &u.Bio, &u.BestWPM, &u.AverageWPM,
		&u.AverageAccuracy, &u.TotalTypingSeconds, &u.StreakDays, &u.LastActivityAt, &u.TotalPoints, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)

	return &u, nil
}
