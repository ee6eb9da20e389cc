package backends

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/JonMunkholm/uploader/internal/config"
	"github.com/JonMunkholm/uploader/internal/storage"
	"github.com/JonMunkholm/uploader/internal/uploader"
)

//go:embed migrations/*.sql
var migrations embed.FS

func init() {
	storage.Register(storage.Definition{
		Name:        "postgres",
		Description: "Stores file contents in a PostgreSQL table",
		Open:        openPostgres,
	})
}

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres stores each file as one row of uploaded_files keyed by name.
type Postgres struct {
	db      DBTX
	maxSize int64
	close   func()
}

// NewPostgres creates a backend on an existing connection. The caller owns
// the connection.
func NewPostgres(db DBTX, maxSize int64) *Postgres {
	return &Postgres{db: db, maxSize: maxSize}
}

func openPostgres(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	pg := NewPostgres(pool, cfg.Widget.MaxFileSize)
	pg.close = pool.Close
	return pg, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const upsertFile = `
INSERT INTO uploaded_files (name, content_type, size, data)
VALUES ($1, $2, $3, $4)
ON CONFLICT (name) DO UPDATE SET
	content_type = EXCLUDED.content_type,
	size = EXCLUDED.size,
	data = EXCLUDED.data,
	uploaded_at = now()`

const deleteFile = `DELETE FROM uploaded_files WHERE name = $1`

const listFiles = `SELECT name FROM uploaded_files ORDER BY uploaded_at, name`

func (p *Postgres) Upload(ctx context.Context, f uploader.File) (string, error) {
	data, err := readAll(f, p.maxSize)
	if err != nil {
		return "", err
	}

	tag, err := p.db.Exec(ctx, upsertFile, f.Name(), f.ContentType(), int64(len(data)), data)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", f.Name(), err)
	}
	if tag.RowsAffected() != 1 {
		return "", notSavedError(f)
	}
	return savedMessage(f), nil
}

func (p *Postgres) Delete(ctx context.Context, f uploader.File) error {
	if _, err := p.db.Exec(ctx, deleteFile, f.Name()); err != nil {
		return fmt.Errorf("delete %s: %w", f.Name(), err)
	}
	return nil
}

// List returns stored file names, oldest first.
func (p *Postgres) List(ctx context.Context) ([]string, error) {
	rows, err := p.db.Query(ctx, listFiles)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return names, nil
}

func (p *Postgres) Close() error {
	if p.close != nil {
		p.close()
	}
	return nil
}
