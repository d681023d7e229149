package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

// Postgres is the server-backed backend.
type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// OpenPostgres connects to databaseURL and applies the embedded migrations.
func OpenPostgres(ctx context.Context, databaseURL string, log *slog.Logger) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ApplyMigrations(ctx, pool, migrations); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("Postgres store ready", "host", poolConfig.ConnConfig.Host, "database", poolConfig.ConnConfig.Database)
	return &Postgres{pool: pool, log: log}, nil
}

// ApplyMigrations executes every .sql file of fsys in lexical order.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) error {
	var files []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return err
		}
		for _, stmt := range strings.Split(string(content), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := pool.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("exec %s: %w", file, err)
			}
		}
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) CreateUser(ctx context.Context, username, passwordHash string) (User, error) {
	user := User{Username: username, PasswordHash: passwordHash}
	err := p.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id, created_at`,
		username, passwordHash,
	).Scan(&user.ID, &user.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return User{}, ErrUserExists
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (p *Postgres) UserByUsername(ctx context.Context, username string) (User, error) {
	return p.queryUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`, username)
}

func (p *Postgres) UserByID(ctx context.Context, id int64) (User, error) {
	return p.queryUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (p *Postgres) queryUser(ctx context.Context, sql string, arg any) (User, error) {
	var user User
	err := p.pool.QueryRow(ctx, sql, arg).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

func (p *Postgres) AppendMessage(ctx context.Context, message Message) (Message, error) {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}
	err := p.pool.QueryRow(ctx,
		`INSERT INTO messages (user_id, username, message_text, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		message.UserID, message.Username, message.Text, message.Timestamp,
	).Scan(&message.ID)
	if err != nil {
		return Message{}, err
	}
	return message, nil
}

func (p *Postgres) ListMessages(ctx context.Context, filter Filter) ([]Message, error) {
	const columns = `SELECT id, user_id, username, message_text, created_at FROM messages`

	var (
		rows pgx.Rows
		err  error
	)
	if filter.UserID != 0 {
		rows, err = p.pool.Query(ctx, columns+` WHERE user_id = $1 ORDER BY created_at, id`, filter.UserID)
	} else {
		rows, err = p.pool.Query(ctx, columns+` ORDER BY created_at, id`)
	}
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Message])
}

func (p *Postgres) MessageByID(ctx context.Context, id int64) (Message, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, user_id, username, message_text, created_at FROM messages WHERE id = $1`, id)
	if err != nil {
		return Message{}, err
	}
	message, err := pgx.CollectOneRow(rows, pgx.RowToStructByPos[Message])
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	return message, err
}

func (p *Postgres) DeleteMessage(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
