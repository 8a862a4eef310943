package shared

import (
	"fmt"

	"github.com/desertthunder/albumsync/internal/poll"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Run preconditions. Fatal, surfaced before any I/O.
	ErrPrecondition   = fmt.Errorf("sync precondition failed")
	ErrEmptyTrackList = fmt.Errorf("empty track list")
	ErrSyncInProgress = fmt.Errorf("sync already in progress")

	// Provider errors. Recoverable and scoped to a single track.
	ErrProvider           = fmt.Errorf("provider request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNotFound           = fmt.Errorf("no match found")
	ErrTimeout            = poll.ErrTimeout
	ErrStalled            = poll.ErrStalled

	// Persistence errors
	ErrMappingNotFound = fmt.Errorf("mapping not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
