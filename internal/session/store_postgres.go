package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists sessions in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			content_id TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT 'en',
			type TEXT NOT NULL DEFAULT 'public',
			facilitator TEXT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			started BOOLEAN NOT NULL DEFAULT FALSE,
			ended BOOLEAN NOT NULL DEFAULT FALSE,
			link TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			room_name TEXT NOT NULL DEFAULT '',
			exercise_index INTEGER NOT NULL DEFAULT 0,
			exercise_playing BOOLEAN NOT NULL DEFAULT FALSE,
			exercise_timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions (start_time);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

const sessionColumns = `id, content_id, language, type, facilitator, start_time,
	started, ended, link, url, room_name,
	exercise_index, exercise_playing, exercise_timestamp`

func (s *PostgresStore) Add(ctx context.Context, sess Session) (*Session, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		sess.ID,
		sess.ContentID,
		sess.Language,
		string(sess.Type),
		sess.Facilitator,
		sess.StartTime,
		sess.Started,
		sess.Ended,
		sess.Link,
		sess.URL,
		sess.RoomName,
		sess.ExerciseState.Index,
		sess.ExerciseState.Playing,
		sess.ExerciseState.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("add session: %w", err)
	}
	return clone(&sess), nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id=$1`, id)
	return scanSession(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY start_time, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, u Update) (*Session, error) {
	set := make([]string, 0, 2)
	args := []any{id}
	if u.Started != nil {
		args = append(args, *u.Started)
		set = append(set, fmt.Sprintf("started=$%d", len(args)))
	}
	if u.Ended != nil {
		args = append(args, *u.Ended)
		set = append(set, fmt.Sprintf("ended=$%d", len(args)))
	}
	if len(set) == 0 {
		return nil, ErrEmptyUpdate
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE sessions SET `+strings.Join(set, ", ")+` WHERE id=$1 RETURNING `+sessionColumns,
		args...)
	return scanSession(row)
}

func (s *PostgresStore) UpdateExerciseState(ctx context.Context, id string, u StateUpdate) (*Session, error) {
	set := make([]string, 0, 3)
	args := []any{id}
	if u.Index != nil {
		args = append(args, *u.Index)
		set = append(set, fmt.Sprintf("exercise_index=$%d", len(args)))
	}
	if u.Playing != nil {
		args = append(args, *u.Playing)
		set = append(set, fmt.Sprintf("exercise_playing=$%d", len(args)))
	}
	if u.Timestamp != nil {
		args = append(args, *u.Timestamp)
		set = append(set, fmt.Sprintf("exercise_timestamp=$%d", len(args)))
	}
	if len(set) == 0 {
		return nil, ErrEmptyUpdate
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE sessions SET `+strings.Join(set, ", ")+` WHERE id=$1 RETURNING `+sessionColumns,
		args...)
	return scanSession(row)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var sess Session
	var typ string
	err := row.Scan(
		&sess.ID,
		&sess.ContentID,
		&sess.Language,
		&typ,
		&sess.Facilitator,
		&sess.StartTime,
		&sess.Started,
		&sess.Ended,
		&sess.Link,
		&sess.URL,
		&sess.RoomName,
		&sess.ExerciseState.Index,
		&sess.ExerciseState.Playing,
		&sess.ExerciseState.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	sess.Type = Type(typ)
	return &sess, nil
}
