package models

import (
	"time"
)

// Model defines the base interface for rows in the local cache database.
// Implementations include PersistedSession and PersistedPost.
type Model interface {
	ID() string            // ID returns the unique identifier for this model
	CreatedAt() time.Time  // CreatedAt returns when this model was created
	UpdatedAt() time.Time  // UpdatedAt returns when this model was last updated
	Sequence() int         // Sequence returns the stable local ordering number
	DeletedAt() *time.Time // DeletedAt returns the soft-delete timestamp, nil while the row is live
	Validate() error       // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for cache data access. Deletes are soft:
// rows are stamped rather than removed, so a settled upload session stays
// inspectable after the fact.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete soft-deletes a model by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves live models matching the given criteria
}
