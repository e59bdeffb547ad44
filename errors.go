package tablespace

import (
	"errors"
	"fmt"

	"github.com/hupe1980/tablespace/blobstore"
	"github.com/hupe1980/tablespace/internal/directive"
	"github.com/hupe1980/tablespace/internal/locks"
	"github.com/hupe1980/tablespace/internal/store"
	"github.com/hupe1980/tablespace/resource"
	"github.com/hupe1980/tablespace/scheduler"
	"github.com/hupe1980/tablespace/table"
)

var (
	// ErrUnknownResource is returned by Purge and Remove for names the
	// workspace has never seen.
	ErrUnknownResource = locks.ErrUnknown

	// ErrNotFound is returned when no table exists under a name, neither in
	// the workspace nor in its blob store.
	ErrNotFound = store.ErrNotFound

	// ErrTypeMismatch is returned by Get when the stored table has another
	// kind than requested.
	ErrTypeMismatch = store.ErrTypeMismatch

	// ErrUnsupportedShape is returned when a table's kind is outside the
	// family an operation accepts.
	ErrUnsupportedShape = table.ErrUnsupportedShape

	// ErrUnsupportedMetric is returned by indexing for unknown metrics.
	ErrUnsupportedMetric = table.ErrUnsupportedMetric

	// ErrFaulted is returned by Schedule once a task has failed.
	ErrFaulted = scheduler.ErrFaulted

	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = directive.ErrConfiguration

	// ErrMemoryLimitExceeded is returned when installing a table would exceed
	// the configured memory limit.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded

	// ErrNotHeld is returned by InsertHeld when the name's lock is free.
	ErrNotHeld = errors.New("resource lock not held")

	// ErrBusy is returned by SetMode while work is pending.
	ErrBusy = errors.New("workspace has pending work")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("workspace closed")
)

// ConfigurationError reports a malformed batch directive. It is returned
// before any task is scheduled.
type ConfigurationError = directive.ConfigurationError

// FatalError is returned by Schedule in Inline mode once the workspace is
// faulted.
type FatalError = scheduler.FatalError

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// A missing table file is a missing resource to workspace callers.
	if errors.Is(err, blobstore.ErrNotFound) && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, scheduler.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	return err
}
