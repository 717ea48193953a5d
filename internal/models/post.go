package models

import (
	"fmt"
	"time"
)

// Post represents a community feed post from the backend.
type Post struct {
	ID        string         `json:"id"`
	Author    string         `json:"author"`
	Body      string         `json:"body"`
	Media     MediaReference `json:"media"`
	Reactions map[string]int `json:"reactions"` // emoji -> count
	Mine      []string       `json:"mine"`      // reactions placed by the current user
	Pending   bool           `json:"pending"`   // true while an optimistic create awaits the server
	CreatedAt time.Time      `json:"created_at"`
}

// Clone returns a deep copy of the post, used for rollback snapshots.
func (p Post) Clone() Post {
	out := p
	out.Reactions = make(map[string]int, len(p.Reactions))
	for k, v := range p.Reactions {
		out.Reactions[k] = v
	}
	out.Mine = append([]string(nil), p.Mine...)
	return out
}

// PersistedPost wraps a Post with persistence metadata for the local feed cache.
type PersistedPost struct {
	id        string
	sequence  int
	remoteID  string
	post      Post
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPersistedPost creates a PersistedPost for the given post.
//
// remoteID is the backend's identifier; it is empty for optimistic posts that
// have not yet been acknowledged by the server.
func NewPersistedPost(sequence int, remoteID string, post Post) *PersistedPost {
	now := time.Now()
	return &PersistedPost{
		sequence:  sequence,
		remoteID:  remoteID,
		post:      post,
		createdAt: now,
		updatedAt: now,
	}
}

func (p *PersistedPost) ID() string            { return p.id }
func (p *PersistedPost) CreatedAt() time.Time  { return p.createdAt }
func (p *PersistedPost) UpdatedAt() time.Time  { return p.updatedAt }
func (p *PersistedPost) Sequence() int         { return p.sequence }
func (p *PersistedPost) RemoteID() string      { return p.remoteID }
func (p *PersistedPost) Post() Post            { return p.post }
func (p *PersistedPost) DeletedAt() *time.Time { return p.deletedAt }

func (p *PersistedPost) SetID(id string)           { p.id = id }
func (p *PersistedPost) SetCreatedAt(t time.Time)  { p.createdAt = t }
func (p *PersistedPost) SetRemoteID(id string)     { p.remoteID = id }
func (p *PersistedPost) SetPost(post Post)         { p.post = post }
func (p *PersistedPost) SetUpdatedAt(t time.Time)  { p.updatedAt = t }
func (p *PersistedPost) SetDeletedAt(t *time.Time) { p.deletedAt = t }

// Validate checks that the post has an author and a body.
func (p *PersistedPost) Validate() error {
	if p.post.Author == "" {
		return fmt.Errorf("post requires an author")
	}
	if p.post.Body == "" {
		return fmt.Errorf("post requires a body")
	}
	return nil
}
