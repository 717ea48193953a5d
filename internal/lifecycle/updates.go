package lifecycle

import (
	"fmt"

	"github.com/offbeatlabs/stepsync/internal/models"
)

// Update represents a progress event during a lifecycle operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type Update struct {
	Phase     Phase                 // Operation phase
	State     models.State          // Machine state after the event
	Progress  int                   // Upload progress 0..100
	Message   string                // Human-readable message for display
	Reference models.MediaReference // Settled reference, when known
}

// Operation phase enumeration
type Phase int

const (
	Reconciling Phase = iota
	Uploading
	Processing
	PollCheck
	Deleting
	DeleteCheck
	Settled
	Failed
	AuditFetch
	AuditCheck
)

func (p Phase) String() string {
	switch p {
	case Reconciling:
		return "reconciling"
	case Uploading:
		return "uploading"
	case Processing:
		return "processing"
	case PollCheck:
		return "poll_check"
	case Deleting:
		return "deleting"
	case DeleteCheck:
		return "delete_check"
	case Settled:
		return "settled"
	case Failed:
		return "failed"
	case AuditFetch:
		return "audit_fetch"
	case AuditCheck:
		return "audit_check"
	default:
		return ""
	}
}

func reconcilingUpdate(kind models.OwnerKind, id string) Update {
	return Update{
		Phase:   Reconciling,
		Message: fmt.Sprintf("Reconciling %s %s...", kind, id),
	}
}

func uploadStartUpdate(filename string) Update {
	return Update{
		Phase:   Uploading,
		State:   models.StateUploading,
		Message: fmt.Sprintf("Uploading %s...", filename),
	}
}

func uploadProgressUpdate(pct int) Update {
	return Update{
		Phase:    Uploading,
		State:    models.StateUploading,
		Progress: pct,
		Message:  fmt.Sprintf("Uploading... %d%%", pct),
	}
}

func processingUpdate() Update {
	return Update{
		Phase:    Processing,
		State:    models.StateProcessing,
		Progress: 100,
		Message:  "Upload complete, transcoding in progress...",
	}
}

func pollCheckUpdate(n int) Update {
	return Update{
		Phase:   PollCheck,
		State:   models.StateProcessing,
		Message: fmt.Sprintf("Checking transcode status (attempt %d)...", n),
	}
}

func liveUpdate(ref models.MediaReference) Update {
	return Update{
		Phase:     Settled,
		State:     models.StateLive,
		Progress:  100,
		Message:   fmt.Sprintf("Video live (playback %s)", ref.PlaybackID),
		Reference: ref,
	}
}

func idleUpdate(message string) Update {
	return Update{
		Phase:   Settled,
		State:   models.StateIdle,
		Message: message,
	}
}

func deletingUpdate() Update {
	return Update{
		Phase:   Deleting,
		State:   models.StateDeleting,
		Message: "Deleting video...",
	}
}

func deleteCheckUpdate(step, total int) Update {
	return Update{
		Phase:   DeleteCheck,
		State:   models.StateDeleting,
		Message: fmt.Sprintf("Verifying deletion (%d/%d)...", step, total),
	}
}

func errorUpdate(err error) Update {
	return Update{
		Phase:   Failed,
		State:   models.StateError,
		Message: fmt.Sprintf("Error: %v", err),
	}
}

func auditFetchUpdate(kind models.OwnerKind, total int) Update {
	return Update{
		Phase:   AuditFetch,
		Message: fmt.Sprintf("Fetched %d %s records", total, kind),
	}
}

func auditCheckUpdate(step, total int, id string) Update {
	return Update{
		Phase:   AuditCheck,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, id),
	}
}
