// package services defines interfaces for the two remote collaborators:
// the media gateway and the platform backend.
//
// The gateway issues upload destinations, transcodes uploaded video, and
// answers asset existence checks. The backend is the record store: one
// entity per owner, each with at most one media reference.
package services

import (
	"context"
	"io"

	"github.com/offbeatlabs/stepsync/internal/models"
)

// AssetGateway is the remote transcoding service consumed by the lifecycle
// machine. Concrete transport is JSON over HTTPS.
type AssetGateway interface {
	// CreateUploadDestination requests a one-time pre-signed upload URL
	// scoped to the owner identity.
	CreateUploadDestination(ctx context.Context, kind models.OwnerKind, ownerID, filename string) (*UploadDestination, error)

	// CheckAssetStatus looks up the gateway's asset for an owner identity.
	// Used both for transcode polling and as the side channel when the
	// backend record has no reference yet (a webhook may have landed first).
	CheckAssetStatus(ctx context.Context, kind models.OwnerKind, ownerID string) (*models.AssetStatus, error)

	// AssetExists reports whether an asset is still present at the gateway.
	AssetExists(ctx context.Context, assetID string) (bool, error)

	// DeleteAsset removes an asset. A "not found" response is success
	// (idempotent delete); any other failure wraps shared.ErrDeleteFailed.
	DeleteAsset(ctx context.Context, assetID string) error
}

// UploadDestination is a one-time upload target issued by the gateway.
type UploadDestination struct {
	UploadURL string `json:"upload_url"`
	SessionID string `json:"session_id"`
}

// Entity is the backend's record for an owner, carrying the optional media
// reference alongside display fields.
type Entity struct {
	ID         string           `json:"id"`
	Kind       models.OwnerKind `json:"kind"`
	Title      string           `json:"title"`
	PlaybackID *string          `json:"playback_id"`
	AssetID    *string          `json:"asset_id"`
}

// Reference returns the entity's media reference; a missing side maps to an
// empty string so the models.MediaReference invariants apply.
func (e *Entity) Reference() models.MediaReference {
	var ref models.MediaReference
	if e.PlaybackID != nil {
		ref.PlaybackID = *e.PlaybackID
	}
	if e.AssetID != nil {
		ref.AssetID = *e.AssetID
	}
	return ref
}

// RecordStore is the platform backend's entity API. It is the single arbiter
// of persisted truth and always the last writer in a reconciliation sequence.
type RecordStore interface {
	// GetEntity retrieves the record for one owner.
	GetEntity(ctx context.Context, kind models.OwnerKind, ownerID string) (*Entity, error)

	// UpdateMedia persists the given media reference on the owner record.
	// A zero reference clears both fields.
	UpdateMedia(ctx context.Context, kind models.OwnerKind, ownerID string, ref models.MediaReference) (*Entity, error)

	// ListEntities retrieves all records of one kind (used by the audit sweep).
	ListEntities(ctx context.Context, kind models.OwnerKind) ([]Entity, error)
}

// FeedStore is the backend's community feed API.
type FeedStore interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	CreatePost(ctx context.Context, post models.Post) (*models.Post, error)
	DeletePost(ctx context.Context, postID string) error
	React(ctx context.Context, postID, emoji string) error
	Unreact(ctx context.Context, postID, emoji string) error
}

// UploadTransport streams file bytes to a pre-signed destination, reporting
// progress and terminal success or failure.
type UploadTransport interface {
	// Upload PUTs size bytes from r to uploadURL. onProgress receives
	// monotonically non-decreasing percentages and is called with 100
	// exactly once, on success, before Upload returns.
	Upload(ctx context.Context, uploadURL string, r io.Reader, size int64, onProgress func(int)) error
}

// Owner binds one (kind, id) pair to a RecordStore, giving the lifecycle
// machine a capability interface instead of a type tag to branch on.
type Owner struct {
	store RecordStore
	kind  models.OwnerKind
	id    string
}

// NewOwner creates an Owner bound to the given record store.
func NewOwner(store RecordStore, kind models.OwnerKind, id string) *Owner {
	return &Owner{store: store, kind: kind, id: id}
}

func (o *Owner) Kind() models.OwnerKind { return o.kind }
func (o *Owner) ID() string             { return o.id }

// Reference reads the currently persisted media reference for this owner.
func (o *Owner) Reference(ctx context.Context) (models.MediaReference, error) {
	entity, err := o.store.GetEntity(ctx, o.kind, o.id)
	if err != nil {
		return models.MediaReference{}, err
	}
	return entity.Reference(), nil
}

// SetReference persists a complete media reference on this owner.
func (o *Owner) SetReference(ctx context.Context, ref models.MediaReference) error {
	_, err := o.store.UpdateMedia(ctx, o.kind, o.id, ref)
	return err
}

// ClearReference removes both sides of the media reference from this owner.
func (o *Owner) ClearReference(ctx context.Context) error {
	_, err := o.store.UpdateMedia(ctx, o.kind, o.id, models.MediaReference{})
	return err
}
