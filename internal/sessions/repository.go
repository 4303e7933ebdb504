package sessions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetscribe/backend/internal/models"
)

// ErrNotFound is returned when a session or chunk does not exist.
var ErrNotFound = errors.New("session not found")

// Repository handles recording session persistence. All mutations of a
// session go through AppendChunk, Complete or SetChunkArchiveURL; the
// find-or-create/append step is a single transaction so concurrent uploads
// for one session serialize on the session row instead of racing.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AppendChunk atomically finds-or-creates the session for sessionID, appends
// the chunk record and bumps end_time. When complete is true the session is
// marked completed; a completed session never reverts to active.
func (r *Repository) AppendChunk(ctx context.Context, sessionID string, chunk models.Chunk, complete bool) (*models.RecordingSession, error) {
	status := models.SessionStatusActive
	if complete {
		status = models.SessionStatusCompleted
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upsert = `INSERT INTO recording_sessions (session_id, status, start_time, end_time)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (session_id) DO UPDATE SET
			end_time = EXCLUDED.end_time,
			status = CASE WHEN recording_sessions.status = 'completed'
				THEN recording_sessions.status ELSE EXCLUDED.status END`
	if _, err := tx.Exec(ctx, upsert, sessionID, status, chunk.Timestamp); err != nil {
		return nil, fmt.Errorf("upsert session: %w", err)
	}

	const insert = `INSERT INTO recording_chunks (session_id, captured_at, path, size)
		VALUES ($1, $2, $3, $4) RETURNING id`
	if err := tx.QueryRow(ctx, insert, sessionID, chunk.Timestamp, chunk.Path, chunk.Size).Scan(&chunk.ID); err != nil {
		return nil, fmt.Errorf("insert chunk: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return r.GetBySessionID(ctx, sessionID)
}

// Complete transitions a session to completed (explicit end-of-session
// signal). Idempotent: completing a completed session is a no-op.
func (r *Repository) Complete(ctx context.Context, sessionID string) (*models.RecordingSession, error) {
	const q = `UPDATE recording_sessions SET status = $1, end_time = NOW()
		WHERE session_id = $2 AND status <> $1`
	if _, err := r.pool.Exec(ctx, q, models.SessionStatusCompleted, sessionID); err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}
	return r.GetBySessionID(ctx, sessionID)
}

// GetBySessionID returns the full session record with chunks in append order.
func (r *Repository) GetBySessionID(ctx context.Context, sessionID string) (*models.RecordingSession, error) {
	const q = `SELECT session_id, status, start_time, end_time
		FROM recording_sessions WHERE session_id = $1`
	var s models.RecordingSession
	err := r.pool.QueryRow(ctx, q, sessionID).Scan(&s.SessionID, &s.Status, &s.StartTime, &s.EndTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	const cq = `SELECT id, captured_at, path, size, COALESCE(archive_url, '')
		FROM recording_chunks WHERE session_id = $1 ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, cq, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	s.Chunks = make([]models.Chunk, 0)
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ID, &c.Timestamp, &c.Path, &c.Size, &c.ArchiveURL); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		s.Chunks = append(s.Chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chunk rows: %w", err)
	}
	return &s, nil
}

// ListSessions returns all sessions, newest first, without chunk contents.
func (r *Repository) ListSessions(ctx context.Context) ([]models.RecordingSession, error) {
	const q = `SELECT session_id, status, start_time, end_time
		FROM recording_sessions ORDER BY start_time DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	list := make([]models.RecordingSession, 0)
	for rows.Next() {
		var s models.RecordingSession
		if err := rows.Scan(&s.SessionID, &s.Status, &s.StartTime, &s.EndTime); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.Chunks = make([]models.Chunk, 0)
		list = append(list, s)
	}
	return list, rows.Err()
}

// GetChunk returns one chunk of a session.
func (r *Repository) GetChunk(ctx context.Context, sessionID string, chunkID uuid.UUID) (*models.Chunk, error) {
	const q = `SELECT id, captured_at, path, size, COALESCE(archive_url, '')
		FROM recording_chunks WHERE session_id = $1 AND id = $2`
	var c models.Chunk
	err := r.pool.QueryRow(ctx, q, sessionID, chunkID).Scan(&c.ID, &c.Timestamp, &c.Path, &c.Size, &c.ArchiveURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get chunk: %w", err)
	}
	return &c, nil
}

// SetChunkArchiveURL records the S3 location after the archival worker
// mirrors a chunk file.
func (r *Repository) SetChunkArchiveURL(ctx context.Context, chunkID uuid.UUID, url string) error {
	const q = `UPDATE recording_chunks SET archive_url = $1 WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, url, chunkID)
	return err
}
