package assembly

import (
	"context"
	"errors"
	"fmt"

	"imageassembly/internal/metadata"
)

var (
	// ErrNoTimeSlicesAssembled is returned by Run when not a single time
	// point produced an output file.
	ErrNoTimeSlicesAssembled = errors.New("no time slices assembled")
	// ErrDiscovery means the stitching directory could not be listed.
	ErrDiscovery = errors.New("time point discovery failed")
	// ErrOutputLocked means another run holds the output directory.
	ErrOutputLocked = errors.New("output directory locked by another run")

	ErrUnreadable = errors.New("time point unreadable")
	ErrWriterInit = errors.New("writer initialization failed")
	ErrWrite      = errors.New("tile write failed")
	ErrFinalize   = errors.New("finalize failed")
)

// wrap tags err with marker and the time point so ReasonOf can classify it
// after it leaves the pipeline.
func wrap(marker error, timePoint, operation string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: time point %s: %s", marker, timePoint, operation)
	}
	return fmt.Errorf("%w: time point %s: %s: %w", marker, timePoint, operation, err)
}

// ReasonOf maps a per-time-point error to its report reason.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	case errors.Is(err, ErrUnreadable):
		return ReasonUnreadable
	case errors.Is(err, metadata.ErrMetadataUnavailable):
		return ReasonMetadataUnavailable
	case errors.Is(err, ErrWriterInit):
		return ReasonWriterInit
	case errors.Is(err, ErrWrite):
		return ReasonWriteError
	case errors.Is(err, ErrFinalize):
		return ReasonFinalizeError
	default:
		return ReasonWriteError
	}
}
