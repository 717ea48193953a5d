package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/offbeatlabs/stepsync/internal/models"
	"github.com/offbeatlabs/stepsync/internal/shared"
)

// PostRepository implements [models.Repository] for [models.PersistedPost]
// persistence. It caches the community feed for offline viewing.
type PostRepository struct {
	db *sql.DB
}

// NewPostRepository creates a new [PostRepository] with the given database connection
func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

// reactionsBlob is the serialized form of a post's reaction state.
type reactionsBlob struct {
	Counts map[string]int `json:"counts"`
	Mine   []string       `json:"mine,omitempty"`
}

// Create inserts a new cached post into the database with generated ID and sequence
func (r *PostRepository) Create(post *models.PersistedPost) error {
	sequence, err := NextSequence(r.db, "feed_posts")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	post.SetID(id)

	if err := post.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	p := post.Post()
	reactions, err := json.Marshal(reactionsBlob{Counts: p.Reactions, Mine: p.Mine})
	if err != nil {
		return fmt.Errorf("failed to serialize reactions: %w", err)
	}

	query := `
		INSERT INTO feed_posts (id, sequence, remote_id, author, body, playback_id, asset_id, reactions, pending, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, nullable(post.RemoteID()), p.Author, p.Body,
		nullable(p.Media.PlaybackID), nullable(p.Media.AssetID), string(reactions),
		boolInt(p.Pending), post.CreatedAt(), post.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}

	return nil
}

// Get retrieves a cached post by ID, excluding soft-deleted posts
func (r *PostRepository) Get(id string) (*models.PersistedPost, error) {
	query := `
		SELECT id, sequence, remote_id, author, body, playback_id, asset_id, reactions, pending, created_at, updated_at, deleted_at
		FROM feed_posts
		WHERE id = ? AND deleted_at IS NULL
	`

	post, err := scanPost(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("post not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query post: %w", err)
	}

	return post, nil
}

// Update modifies an existing cached post
func (r *PostRepository) Update(post *models.PersistedPost) error {
	if err := post.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	post.SetUpdatedAt(now)

	p := post.Post()
	reactions, err := json.Marshal(reactionsBlob{Counts: p.Reactions, Mine: p.Mine})
	if err != nil {
		return fmt.Errorf("failed to serialize reactions: %w", err)
	}

	query := `
		UPDATE feed_posts
		SET remote_id = ?, author = ?, body = ?, playback_id = ?, asset_id = ?, reactions = ?, pending = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, nullable(post.RemoteID()), p.Author, p.Body,
		nullable(p.Media.PlaybackID), nullable(p.Media.AssetID), string(reactions),
		boolInt(p.Pending), now, post.ID())
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("post not found or already deleted: %s", post.ID())
	}

	return nil
}

// Delete soft-deletes a cached post by ID
func (r *PostRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE feed_posts
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("post not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all cached posts matching the given criteria, excluding
// soft-deleted posts. Supported criteria: author, pending.
func (r *PostRepository) List(criteria map[string]any) ([]*models.PersistedPost, error) {
	query := `
		SELECT id, sequence, remote_id, author, body, playback_id, asset_id, reactions, pending, created_at, updated_at, deleted_at
		FROM feed_posts
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if author, ok := criteria["author"].(string); ok && author != "" {
		query += " AND author = ?"
		args = append(args, author)
	}
	if pending, ok := criteria["pending"].(bool); ok {
		query += " AND pending = ?"
		args = append(args, boolInt(pending))
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []*models.PersistedPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return posts, nil
}

// FindByRemoteID retrieves a cached post by the backend's identifier.
func (r *PostRepository) FindByRemoteID(remoteID string) (*models.PersistedPost, error) {
	query := `
		SELECT id, sequence, remote_id, author, body, playback_id, asset_id, reactions, pending, created_at, updated_at, deleted_at
		FROM feed_posts
		WHERE remote_id = ? AND deleted_at IS NULL
	`

	post, err := scanPost(r.db.QueryRow(query, remoteID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("post not found for remote id: %s", remoteID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query post: %w", err)
	}

	return post, nil
}

// ReplaceAll swaps the entire cache for a fresh server snapshot in one
// transaction.
func (r *PostRepository) ReplaceAll(posts []models.Post) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.Exec("UPDATE feed_posts SET deleted_at = ? WHERE deleted_at IS NULL", now); err != nil {
		return fmt.Errorf("failed to retire cached posts: %w", err)
	}

	query := `
		INSERT INTO feed_posts (id, sequence, remote_id, author, body, playback_id, asset_id, reactions, pending, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, p := range posts {
		reactions, err := json.Marshal(reactionsBlob{Counts: p.Reactions, Mine: p.Mine})
		if err != nil {
			return fmt.Errorf("failed to serialize reactions: %w", err)
		}
		_, err = tx.Exec(query, shared.GenerateID(), i+1, nullable(p.ID), p.Author, p.Body,
			nullable(p.Media.PlaybackID), nullable(p.Media.AssetID), string(reactions),
			boolInt(p.Pending), now, now)
		if err != nil {
			return fmt.Errorf("failed to cache post: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache refresh: %w", err)
	}

	return nil
}

func scanPost(row rowScanner) (*models.PersistedPost, error) {
	var (
		id         string
		sequence   int
		remoteID   sql.NullString
		author     string
		body       string
		playbackID sql.NullString
		assetID    sql.NullString
		reactions  string
		pending    int
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &remoteID, &author, &body, &playbackID, &assetID,
		&reactions, &pending, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	var blob reactionsBlob
	if err := json.Unmarshal([]byte(reactions), &blob); err != nil {
		return nil, fmt.Errorf("failed to parse reactions: %w", err)
	}
	if blob.Counts == nil {
		blob.Counts = map[string]int{}
	}

	post := models.NewPersistedPost(sequence, remoteID.String, models.Post{
		ID:        remoteID.String,
		Author:    author,
		Body:      body,
		Media:     models.MediaReference{PlaybackID: playbackID.String, AssetID: assetID.String},
		Reactions: blob.Counts,
		Mine:      blob.Mine,
		Pending:   pending != 0,
		CreatedAt: createdAt,
	})
	post.SetID(id)
	post.SetCreatedAt(createdAt)
	post.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		post.SetDeletedAt(&deletedAt.Time)
	}

	return post, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
