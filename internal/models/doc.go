// Package models defines the data model for the media sync tool.
//
// The central types are [MediaReference], the paired playback/asset
// identifiers an owner record persists, and [State], the reconciliation
// state owned by a lifecycle machine. Persisted variants (PersistedSession,
// PersistedPost) back the local SQLite cache.
package models
