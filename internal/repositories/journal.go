package repositories

import (
	"fmt"

	"github.com/offbeatlabs/stepsync/internal/models"
)

// Journal adapts [SessionRepository] to the upload lifecycle's journaling
// hooks. Sessions are created when an upload starts, updated as it moves,
// and soft-deleted once it settles so only in-flight uploads remain active.
type Journal struct {
	sessions *SessionRepository
}

// NewJournal creates a Journal over the given repository.
func NewJournal(sessions *SessionRepository) *Journal {
	return &Journal{sessions: sessions}
}

// Begin records a freshly started upload session.
func (j *Journal) Begin(session models.UploadSession) error {
	persisted := models.NewPersistedSession(0, session, models.StateUploading)
	persisted.SetID(session.SessionID)
	if err := j.sessions.Create(persisted); err != nil {
		return fmt.Errorf("failed to journal session start: %w", err)
	}
	return nil
}

// Track updates an in-flight session's state and progress.
func (j *Journal) Track(sessionID string, state models.State, progress int) error {
	session, err := j.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	session.SetState(state)
	session.SetProgress(progress)
	return j.sessions.Update(session)
}

// Finish records a session's terminal state and retires it from the active
// journal.
func (j *Journal) Finish(sessionID string, state models.State, ref models.MediaReference) error {
	session, err := j.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	session.SetState(state)
	session.SetReference(ref)
	if err := j.sessions.Update(session); err != nil {
		return err
	}
	return j.sessions.Delete(sessionID)
}

// Active lists the sessions still in flight, i.e. uploads that never
// settled. A restarted process reconciles these owners first.
func (j *Journal) Active() ([]*models.PersistedSession, error) {
	return j.sessions.List(nil)
}
