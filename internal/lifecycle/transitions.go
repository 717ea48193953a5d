package lifecycle

import (
	"fmt"

	"github.com/offbeatlabs/stepsync/internal/models"
)

// Transition represents a state transition of the lifecycle machine.
type Transition struct {
	From models.State
	To   models.State
}

// validTransitions defines all legal transitions in the media lifecycle.
var validTransitions = map[Transition]bool{
	// Upload flow
	{models.StateIdle, models.StateUploading}:       true,
	{models.StateUploading, models.StateProcessing}: true,
	{models.StateUploading, models.StateError}:      true,
	{models.StateProcessing, models.StateLive}:      true,
	{models.StateProcessing, models.StateError}:     true,

	// Reconciliation settlement
	{models.StateIdle, models.StateLive}:  true, // discovered via record or side channel
	{models.StateLive, models.StateIdle}:  true, // dangling reference healed
	{models.StateError, models.StateIdle}: true,
	{models.StateError, models.StateLive}: true,

	// Delete flow
	{models.StateLive, models.StateDeleting}:  true,
	{models.StateIdle, models.StateDeleting}:  true, // partial reference cleanup
	{models.StateDeleting, models.StateIdle}:  true,
	{models.StateDeleting, models.StateError}: true,
	{models.StateError, models.StateDeleting}: true, // retry after a hard delete failure

	// Error recovery re-enters the upload flow
	{models.StateError, models.StateUploading}: true,
}

// ValidTransition reports whether moving between the two states is legal.
// Self transitions are always allowed (settling into the current state).
func ValidTransition(from, to models.State) bool {
	if from == to {
		return true
	}
	return validTransitions[Transition{From: from, To: to}]
}

// checkTransition returns an error describing an illegal transition.
func checkTransition(from, to models.State) error {
	if !ValidTransition(from, to) {
		return fmt.Errorf("invalid state transition from %s to %s", from, to)
	}
	return nil
}
