package models

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// OwnerKind identifies the backend record type that owns a media slot.
type OwnerKind string

const (
	OwnerLesson OwnerKind = "lesson"
	OwnerCourse OwnerKind = "course"
	OwnerLevel  OwnerKind = "level"
	OwnerPost   OwnerKind = "post"
)

// ParseOwnerKind parses an owner kind from its string form.
func ParseOwnerKind(s string) (OwnerKind, error) {
	switch OwnerKind(strings.ToLower(s)) {
	case OwnerLesson, OwnerCourse, OwnerLevel, OwnerPost:
		return OwnerKind(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("unknown owner kind %q (must be lesson, course, level, or post)", s)
	}
}

func (k OwnerKind) String() string {
	return string(k)
}

// MediaReference is the canonical fact an owner record persists: the paired
// playback and asset identifiers that together locate a processed video at
// the gateway.
//
// Both fields are set together or both are empty; a reference with exactly
// one side set is an inconsistency healed on the next reconcile.
type MediaReference struct {
	PlaybackID string `json:"playback_id"`
	AssetID    string `json:"asset_id"`
}

// Complete reports whether both identifiers are set.
func (r MediaReference) Complete() bool {
	return r.PlaybackID != "" && r.AssetID != ""
}

// Zero reports whether both identifiers are empty.
func (r MediaReference) Zero() bool {
	return r.PlaybackID == "" && r.AssetID == ""
}

// Inconsistent reports whether exactly one identifier is set.
func (r MediaReference) Inconsistent() bool {
	return !r.Complete() && !r.Zero()
}

// State is the reconciliation state of one owner's media slot. It is derived,
// never stored remotely, and owned exclusively by one lifecycle machine.
type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StateLive       State = "live"
	StateError      State = "error"
	StateDeleting   State = "deleting"
)

func (s State) String() string {
	return string(s)
}

// Terminal reports whether the state is a settlement point from which no
// automatic transition occurs without new user or external input.
func (s State) Terminal() bool {
	return s == StateIdle || s == StateLive || s == StateError
}

// AssetStatus values reported by the gateway status check.
const (
	AssetReady      = "ready"
	AssetProcessing = "processing"
	AssetErrored    = "errored"
)

// AssetStatus is the gateway's view of an owner's asset.
type AssetStatus struct {
	Status     string `json:"status"`
	PlaybackID string `json:"playback_id,omitempty"`
	AssetID    string `json:"asset_id,omitempty"`
}

// Reference returns the media reference carried by a ready status.
func (a AssetStatus) Reference() MediaReference {
	return MediaReference{PlaybackID: a.PlaybackID, AssetID: a.AssetID}
}

// videoExtensions covers the containers the gateway accepts. The system MIME
// table is consulted as a fallback for anything not listed.
var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".m4v": true, ".webm": true, ".mkv": true,
	".avi": true, ".wmv": true, ".mpg": true, ".mpeg": true, ".3gp": true,
}

// IsVideoFile reports whether the filename carries a video MIME type.
//
// The check is by extension; upload validation happens before any bytes are
// read so content sniffing is not available.
func IsVideoFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if videoExtensions[ext] {
		return true
	}
	return strings.HasPrefix(mime.TypeByExtension(ext), "video/")
}
