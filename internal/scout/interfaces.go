package scout

import (
	"context"
	"time"
)

// Session is one isolated browser page context. Implementations are not
// safe for concurrent use; the pool guarantees exclusive ownership
// between Acquire and Release.
type Session interface {
	// Navigate loads url and returns the resolved location after
	// redirects. A timeout or load failure returns a *NavigationError.
	Navigate(ctx context.Context, url string, timeout time.Duration) (string, error)

	// HTML returns the rendered outer HTML of the current document.
	HTML(ctx context.Context) (string, error)

	// Location returns the current document URL.
	Location(ctx context.Context) (string, error)

	// ScrollToBottom scrolls the element matching selector to its
	// bottom, triggering incremental result loading.
	ScrollToBottom(ctx context.Context, selector string) error
}

// RunStore persists run metadata and serialized results.
type RunStore interface {
	CreateRun(ctx context.Context, run Run) error
	UpdateRunStatus(ctx context.Context, id string, status RunStatus, errText string) error
	CompleteRun(ctx context.Context, id string, status RunStatus, errText string, result *RunResult, duration time.Duration) error
	GetRun(ctx context.Context, id string) (Run, error)
	GetRunResult(ctx context.Context, id string) (*RunResult, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// BlobStore archives raw artifacts (rendered page HTML) and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes run-completion events to a message bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time; injected for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
