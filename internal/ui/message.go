package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/offbeatlabs/stepsync/internal/lifecycle"
	"github.com/offbeatlabs/stepsync/internal/models"
	"github.com/offbeatlabs/stepsync/internal/services"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgOwnersFetched MsgKind = iota
	MsgStatusReconciled
	MsgMachineUpdate
	MsgOperationDone
)

// ownersFetchedMsg is the constructor for [MsgOwnersFetched]
func ownersFetchedMsg(owners []services.Entity, err error) Msg {
	return Msg{
		kind: MsgOwnersFetched,
		data: struct {
			owners []services.Entity
			err    error
		}{owners, err},
	}
}

// statusReconciledMsg is the constructor for [MsgStatusReconciled]
func statusReconciledMsg(state models.State, ref models.MediaReference, err error) Msg {
	return Msg{
		kind: MsgStatusReconciled,
		data: struct {
			state models.State
			ref   models.MediaReference
			err   error
		}{state, ref, err},
	}
}

// machineUpdateMsg is the constructor for [MsgMachineUpdate]
func machineUpdateMsg(update lifecycle.Update) Msg {
	return Msg{kind: MsgMachineUpdate, data: update}
}

// operationDoneMsg is the constructor for [MsgOperationDone]
func operationDoneMsg(state models.State, err error) Msg {
	return Msg{
		kind: MsgOperationDone,
		data: struct {
			state models.State
			err   error
		}{state, err},
	}
}
