package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrMissingToken  = fmt.Errorf("missing API token")

	// Media lifecycle errors
	ErrInvalidFileType = fmt.Errorf("not a video file")
	ErrUploadTransport = fmt.Errorf("upload transport failed")
	ErrUploadAborted   = fmt.Errorf("upload aborted")
	ErrBusy            = fmt.Errorf("operation already in flight")
	ErrNoReference     = fmt.Errorf("no media reference")

	// Gateway and backend errors
	ErrGatewayUnavailable = fmt.Errorf("gateway unavailable")
	ErrAssetNotFound      = fmt.Errorf("asset not found")
	ErrDeleteFailed       = fmt.Errorf("asset delete failed")
	ErrRecordNotFound     = fmt.Errorf("record not found")
	ErrBackendRequest     = fmt.Errorf("backend request failed")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
