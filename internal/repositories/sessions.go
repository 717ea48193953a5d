package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/offbeatlabs/stepsync/internal/models"
	"github.com/offbeatlabs/stepsync/internal/shared"
)

// SessionRepository implements [models.Repository] for [models.PersistedSession]
// persistence. It is the upload journal's backing store.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session into the database. The session ID from the
// upload flow becomes the row ID when present.
func (r *SessionRepository) Create(session *models.PersistedSession) error {
	sequence, err := NextSequence(r.db, "upload_sessions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := session.ID()
	if id == "" {
		id = session.Session().SessionID
	}
	if id == "" {
		id = shared.GenerateID()
	}
	session.SetID(id)

	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO upload_sessions (id, sequence, owner_kind, owner_id, filename, state, progress, playback_id, asset_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	s := session.Session()
	ref := session.Reference()
	_, err = r.db.Exec(query, id, sequence, string(s.OwnerKind), s.OwnerID, s.Filename,
		string(session.State()), s.Progress, nullable(ref.PlaybackID), nullable(ref.AssetID),
		session.CreatedAt(), session.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID, excluding soft-deleted sessions
func (r *SessionRepository) Get(id string) (*models.PersistedSession, error) {
	query := `
		SELECT id, sequence, owner_kind, owner_id, filename, state, progress, playback_id, asset_id, created_at, updated_at, deleted_at
		FROM upload_sessions
		WHERE id = ? AND deleted_at IS NULL
	`

	session, err := scanSession(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return session, nil
}

// Update modifies an existing session's state, progress, and reference
func (r *SessionRepository) Update(session *models.PersistedSession) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	session.SetUpdatedAt(now)

	query := `
		UPDATE upload_sessions
		SET state = ?, progress = ?, playback_id = ?, asset_id = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	ref := session.Reference()
	result, err := r.db.Exec(query, string(session.State()), session.Session().Progress,
		nullable(ref.PlaybackID), nullable(ref.AssetID), now, session.ID())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found or already deleted: %s", session.ID())
	}

	return nil
}

// Delete soft-deletes a session by ID
func (r *SessionRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE upload_sessions
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all sessions matching the given criteria, excluding
// soft-deleted sessions. Supported criteria: owner_kind, owner_id, state.
func (r *SessionRepository) List(criteria map[string]any) ([]*models.PersistedSession, error) {
	query := `
		SELECT id, sequence, owner_kind, owner_id, filename, state, progress, playback_id, asset_id, created_at, updated_at, deleted_at
		FROM upload_sessions
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if kind, ok := criteria["owner_kind"].(string); ok && kind != "" {
		query += " AND owner_kind = ?"
		args = append(args, kind)
	}
	if owner, ok := criteria["owner_id"].(string); ok && owner != "" {
		query += " AND owner_id = ?"
		args = append(args, owner)
	}
	if state, ok := criteria["state"].(string); ok && state != "" {
		query += " AND state = ?"
		args = append(args, state)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.PersistedSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.PersistedSession, error) {
	var (
		id         string
		sequence   int
		ownerKind  string
		ownerID    string
		filename   string
		state      string
		progress   int
		playbackID sql.NullString
		assetID    sql.NullString
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &ownerKind, &ownerID, &filename, &state, &progress,
		&playbackID, &assetID, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	session := models.NewPersistedSession(sequence, models.UploadSession{
		SessionID: id,
		OwnerKind: models.OwnerKind(ownerKind),
		OwnerID:   ownerID,
		Filename:  filename,
		Progress:  progress,
	}, models.State(state))
	session.SetID(id)
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)
	session.SetReference(models.MediaReference{
		PlaybackID: playbackID.String,
		AssetID:    assetID.String,
	})
	if deletedAt.Valid {
		session.SetDeletedAt(&deletedAt.Time)
	}

	return session, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
