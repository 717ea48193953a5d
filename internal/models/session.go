package models

import (
	"fmt"
	"time"
)

// UploadSession is the ephemeral record of one file upload: created on file
// selection, destroyed on terminal success, failure, or abort. Never shared
// between owners.
type UploadSession struct {
	SessionID string    `json:"session_id"`
	OwnerKind OwnerKind `json:"owner_kind"`
	OwnerID   string    `json:"owner_id"`
	Filename  string    `json:"filename"`
	Progress  int       `json:"progress"` // 0..100, monotonic
}

// PersistedSession wraps an UploadSession with persistence metadata for the
// local upload journal.
//
// The journal is the crash-safe record of in-flight uploads: a restarted CLI
// reads it to know which owners were mid-upload and reconciles them.
type PersistedSession struct {
	id        string
	sequence  int
	session   UploadSession
	state     State
	reference MediaReference
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPersistedSession creates a PersistedSession for the given session in the given state.
func NewPersistedSession(sequence int, session UploadSession, state State) *PersistedSession {
	now := time.Now()
	return &PersistedSession{
		sequence:  sequence,
		session:   session,
		state:     state,
		createdAt: now,
		updatedAt: now,
	}
}

func (s *PersistedSession) ID() string                { return s.id }
func (s *PersistedSession) CreatedAt() time.Time      { return s.createdAt }
func (s *PersistedSession) UpdatedAt() time.Time      { return s.updatedAt }
func (s *PersistedSession) Sequence() int             { return s.sequence }
func (s *PersistedSession) Session() UploadSession    { return s.session }
func (s *PersistedSession) State() State              { return s.state }
func (s *PersistedSession) Reference() MediaReference { return s.reference }
func (s *PersistedSession) DeletedAt() *time.Time     { return s.deletedAt }

func (s *PersistedSession) SetID(id string)               { s.id = id }
func (s *PersistedSession) SetState(state State)          { s.state = state }
func (s *PersistedSession) SetProgress(p int)             { s.session.Progress = p }
func (s *PersistedSession) SetReference(r MediaReference) { s.reference = r }
func (s *PersistedSession) SetCreatedAt(t time.Time)      { s.createdAt = t }
func (s *PersistedSession) SetUpdatedAt(t time.Time)      { s.updatedAt = t }
func (s *PersistedSession) SetDeletedAt(t *time.Time)     { s.deletedAt = t }

// Validate checks that the session has an owner, a filename, and a progress
// value in range.
func (s *PersistedSession) Validate() error {
	if s.session.OwnerKind == "" || s.session.OwnerID == "" {
		return fmt.Errorf("session requires an owner")
	}
	if s.session.Filename == "" {
		return fmt.Errorf("session requires a filename")
	}
	if s.session.Progress < 0 || s.session.Progress > 100 {
		return fmt.Errorf("progress out of range: %d", s.session.Progress)
	}
	return nil
}
