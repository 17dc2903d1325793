package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) GetSessionByID(ctx context.Context, sessionID string) (Session, error) {
	row := s.pool.QueryRow(
		ctx,
		`SELECT id, title, status, created_at FROM collaboration_sessions WHERE id = $1`,
		sessionID,
	)

	var sess Session
	err := row.Scan(&sess.ID, &sess.Title, &sess.Status, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("failed to find session by id: %w", err)
	}

	return sess, nil
}

func (s *PgStore) GetUserByID(ctx context.Context, userID int64) (User, error) {
	row := s.pool.QueryRow(
		ctx,
		`SELECT id, name, role, status, last_seen FROM users WHERE id = $1`,
		userID,
	)

	var user User
	err := row.Scan(&user.ID, &user.Name, &user.Role, &user.Status, &user.LastSeen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("failed to find user by id: %w", err)
	}

	return user, nil
}

func (s *PgStore) CreateActivityRecord(ctx context.Context, rec ActivityRecord) error {
	_, err := s.pool.Exec(
		ctx,
		`INSERT INTO session_activity (session_id, user_id, user_name, activity_type, entity_type, entity_id, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.SessionID,
		rec.UserID,
		rec.UserName,
		rec.ActivityType,
		nullable(rec.EntityType),
		nullableID(rec.EntityID),
		[]byte(rec.Details),
		rec.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to create activity record: %w", err)
	}
	return nil
}

func (s *PgStore) RecentActivity(ctx context.Context, sessionID string, limit int) ([]ActivityRecord, error) {
	rows, err := s.pool.Query(
		ctx,
		`SELECT session_id, user_id, user_name, activity_type,
		        COALESCE(entity_type, ''), COALESCE(entity_id, 0), details, created_at
		 FROM session_activity
		 WHERE session_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		sessionID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent activity: %w", err)
	}
	defer rows.Close()

	var records []ActivityRecord
	for rows.Next() {
		var rec ActivityRecord
		var details []byte
		if err := rows.Scan(&rec.SessionID, &rec.UserID, &rec.UserName, &rec.ActivityType,
			&rec.EntityType, &rec.EntityID, &details, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity record: %w", err)
		}
		rec.Details = details
		records = append(records, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows iteration error: %w", rows.Err())
	}

	return records, nil
}

func (s *PgStore) PersistChatMessage(ctx context.Context, rec ChatRecord) error {
	_, err := s.pool.Exec(
		ctx,
		`INSERT INTO session_chat_messages (session_id, sender_id, sender_name, content, thread_id, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.SessionID,
		rec.SenderID,
		rec.SenderName,
		rec.Content,
		nullable(rec.ThreadID),
		rec.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to persist chat message: %w", err)
	}
	return nil
}

func (s *PgStore) UpdateUserStatus(ctx context.Context, userID int64, status string) error {
	tag, err := s.pool.Exec(
		ctx,
		`UPDATE users SET status = $2, last_seen = now() WHERE id = $1`,
		userID,
		status,
	)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PgStore) UpdateTaskAssignment(ctx context.Context, taskID, assigneeID int64) error {
	_, err := s.pool.Exec(
		ctx,
		`UPDATE tasks SET assignee_id = $2, updated_at = now() WHERE id = $1`,
		taskID,
		assigneeID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task assignment: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
