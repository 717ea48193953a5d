// Package lifecycle implements the media reconciliation engine.
//
// The core abstraction is [Machine], which owns one owner's media lifecycle
// state and reconciles three sources of truth that can disagree at any
// moment: local state, the media gateway's asset record, and the backend's
// persisted media reference. Operations emit [Update] events via channels
// for non-blocking status reporting to CLI/UI layers.
//
// A machine settles into one of three terminal states (live, idle, error)
// and guarantees the caller never observes contradictory or orphaned state:
// a backend reference to a vanished asset is healed to "no video", and a
// gateway asset the backend does not know about yet is adopted and
// persisted.
package lifecycle
