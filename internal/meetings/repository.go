package meetings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetscribe/backend/internal/models"
)

// ErrNotFound is returned when a meeting does not exist.
var ErrNotFound = errors.New("meeting not found")

// Repository handles meeting persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a meetings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new meeting with the start time set.
func (r *Repository) Create(ctx context.Context, m *models.Meeting) error {
	const q = `INSERT INTO meetings (id, participant1, participant2, meeting_start, actions)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id`
	if m.Actions == nil {
		m.Actions = []string{}
	}
	return r.pool.QueryRow(ctx, q, m.Participant1, m.Participant2, m.MeetingStart, m.Actions).Scan(&m.ID)
}

// GetByID returns a meeting by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	const q = `SELECT id, participant1, participant2, meeting_start, meeting_end, actions, COALESCE(sentiment, '')
		FROM meetings WHERE id = $1`
	var m models.Meeting
	err := r.pool.QueryRow(ctx, q, id).Scan(&m.ID, &m.Participant1, &m.Participant2, &m.MeetingStart, &m.MeetingEnd, &m.Actions, &m.Sentiment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	if m.Actions == nil {
		m.Actions = []string{}
	}
	return &m, nil
}

// List returns all meetings, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Meeting, error) {
	const q = `SELECT id, participant1, participant2, meeting_start, meeting_end, actions, COALESCE(sentiment, '')
		FROM meetings ORDER BY meeting_start DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	list := make([]models.Meeting, 0)
	for rows.Next() {
		var m models.Meeting
		if err := rows.Scan(&m.ID, &m.Participant1, &m.Participant2, &m.MeetingStart, &m.MeetingEnd, &m.Actions, &m.Sentiment); err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		if m.Actions == nil {
			m.Actions = []string{}
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// AppendAction appends one action item to a meeting.
func (r *Repository) AppendAction(ctx context.Context, id uuid.UUID, action string) error {
	const q = `UPDATE meetings SET actions = actions || to_jsonb($1::text) WHERE id = $2`
	tag, err := r.pool.Exec(ctx, q, action, id)
	if err != nil {
		return fmt.Errorf("append action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// End sets the meeting end time and sentiment summary.
func (r *Repository) End(ctx context.Context, id uuid.UUID, sentiment string) (*models.Meeting, error) {
	const q = `UPDATE meetings SET meeting_end = NOW(), sentiment = $1 WHERE id = $2`
	tag, err := r.pool.Exec(ctx, q, sentiment, id)
	if err != nil {
		return nil, fmt.Errorf("end meeting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}
