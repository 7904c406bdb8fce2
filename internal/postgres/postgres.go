package postgres

import (
	"context"
	"embed"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eduverse/typehub/internal/domain"
	"github.com/eduverse/typehub/internal/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const codeUniqueViolation = "23505"

type Config struct {
	Addr string
	User string
	Pass string
	Name string
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, c Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", c.User, c.Pass, c.Addr, c.Name))
	if err != nil {
		return nil, err
	}

	return ConnectConfig(ctx, cc)
}

func ConnectURL(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cc, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}

	return ConnectConfig(ctx, cc)
}

func ConnectConfig(ctx context.Context, cc *pgxpool.Config) (*pgxpool.Pool, error) {
	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate applies every embedded migration in file name order and seeds the badge catalog.
// Migrations are idempotent, so running them on every start is safe.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := db.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", entry.Name(), err)
		}
		slog.InfoContext(ctx, "postgres: applied migration", "name", entry.Name())
	}

	return seedBadges(ctx, db)
}

func seedBadges(ctx context.Context, db *pgxpool.Pool) error {
	const stmt = `
INSERT INTO badges (kind, name, description, icon) VALUES ($1, $2, $3, $4)
ON CONFLICT (kind) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, icon = EXCLUDED.icon;`

	b := &pgx.Batch{}
	for _, badge := range domain.Badges {
		b.Queue(stmt, string(badge.Kind), badge.Name, badge.Description, badge.Icon)
	}

	if err := db.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("seed badges: %w", err)
	}

	return nil
}

// InTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func InTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// IsUniqueViolation reports whether err is a postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// NotFound converts pgx.ErrNoRows into a not found error with the given message,
// other errors are returned unchanged.
func NotFound(err error, format string, args ...any) error {
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.New(errors.CodeNotFound, errors.WithMessagef(format, args...), errors.WithCause(err))
	}
	return err
}

// IsUUID reports whether s can be used as a UUID key. Lookups by malformed ids
// are treated as not found instead of reaching the database.
func IsUUID(s string) bool {
	return uuid.Validate(s) == nil
}
