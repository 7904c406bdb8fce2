package certificate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eduverse/typehub/internal/domain"
	"github.com/eduverse/typehub/internal/errors"
	"github.com/eduverse/typehub/internal/postgres"
)

type Config struct {
	DB *pgxpool.Pool
}

type Service struct {
	db *pgxpool.Pool
}

func NewService(c Config) *Service {
	return &Service{db: c.DB}
}

const selectCertificates = `
SELECT c.id, c.user_id, u.username, c.lesson_id, l.title, c.share_token, c.issued_at
FROM certificates c
JOIN users u ON u.id = c.user_id
JOIN lessons l ON l.id = c.lesson_id`

func scanCertificate(row pgx.Row) (domain.Certificate, error) {
	var c domain.Certificate
	err := row.Scan(&c.ID, &c.UserID, &c.Username, &c.LessonID, &c.LessonTitle, &c.ShareToken, &c.IssuedAt)
	return c, err
}

// Issue creates the user's certificate for a completed lesson. A lesson yields
// at most one certificate per user.
func (s *Service) Issue(ctx context.Context, userID, lessonID string) (*domain.Certificate, error) {
	if !postgres.IsUUID(lessonID) {
		return nil, errors.NotFound("lesson not found: id=%s", lessonID)
	}

	const progress = `
SELECT COALESCE(lp.status, 'not_started')
FROM lessons l
LEFT JOIN lesson_progress lp ON lp.lesson_id = l.id AND lp.user_id = $1
WHERE l.id = $2;`

	var status string
	if err := s.db.QueryRow(ctx, progress, userID, lessonID).Scan(&status); err != nil {
		return nil, postgres.NotFound(err, "lesson not found: id=%s", lessonID)
	}
	if domain.LessonStatus(status) != domain.LessonCompleted {
		return nil, errors.InvalidArgument("lesson %s is not completed", lessonID)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate certificate ID: %w", err)
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")

	const ins = `INSERT INTO certificates (id, user_id, lesson_id, share_token) VALUES ($1, $2, $3, $4);`
	if _, err := s.db.Exec(ctx, ins, id.String(), userID, lessonID, token); err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, errors.New(errors.CodeAlreadyExists,
				errors.WithMessagef("certificate already issued for lesson %s", lessonID),
				errors.WithCause(err),
			)
		}
		return nil, fmt.Errorf("insert certificate: %w", err)
	}

	c, err := scanCertificate(s.db.QueryRow(ctx, selectCertificates+` WHERE c.id = $1;`, id.String()))
	if err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}

	return &c, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]domain.Certificate, error) {
	rows, err := s.db.Query(ctx, selectCertificates+` WHERE c.user_id = $1 ORDER BY c.issued_at DESC;`, userID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}

	certs, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Certificate, error) {
		return scanCertificate(r)
	})
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}

	return certs, nil
}

// Shared looks a certificate up by its public share token.
func (s *Service) Shared(ctx context.Context, token string) (*domain.Certificate, error) {
	c, err := scanCertificate(s.db.QueryRow(ctx, selectCertificates+` WHERE c.share_token = $1;`, token))
	if err != nil {
		return nil, postgres.NotFound(err, "certificate not found")
	}

	return &c, nil
}
