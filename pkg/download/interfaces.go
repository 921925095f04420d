package download

import (
	"net/http"
	"time"

	"github.com/cwillem/addonstore/pkg/certtrust"
	"github.com/cwillem/addonstore/pkg/dispatch"
	"github.com/cwillem/addonstore/pkg/errors"
	"github.com/cwillem/addonstore/pkg/model"
)

// OnComplete is invoked exactly once for every request that reaches a
// terminal state without being cancelled. cachePath is the verified file in
// the cache directory, or "" when the download produced no file.
type OnComplete func(req *model.Request, cachePath string)

// OnDisplayableError receives a user-facing failure notification. It is
// always invoked through the manager's Dispatcher, never on a worker
// goroutine.
type OnDisplayableError func(derr *errors.DisplayableError)

// Manager is the download manager surface consumed by the CLI and the GUI
// layer above it.
type Manager interface {
	// Submit schedules one download and returns immediately. Exactly one of
	// the callbacks' terminal outcomes will follow, unless the request is
	// cancelled, in which case no callback fires.
	Submit(req *model.Request, onComplete OnComplete, onError OnDisplayableError) error

	// Cancel requests cooperative cancellation of one in-flight download.
	Cancel(req *model.Request)

	// CancelAll cancels everything, tears the pool down and deletes the
	// temp-download directory. The manager is unusable afterwards.
	CancelAll()

	// Progress returns the number of chunks received for req. ok is false
	// when the request is not tracked (never submitted, or already terminal).
	Progress(req *model.Request) (chunks int, ok bool)

	// Result returns the recorded outcome for a completed request: the cache
	// path, or "" when no file was produced.
	Result(req *model.Request) (cachePath string, ok bool)
}

// Options configure a download manager.
type Options struct {
	// TempDir holds in-progress downloads. It is cleared at construction and
	// removed entirely by CancelAll. Required.
	TempDir string

	// MaxParallel is the worker pool size. Defaults to 10.
	MaxParallel int

	// ChunkSize is the streaming read size in bytes. Defaults to 128 KiB.
	ChunkSize int

	// Timeout bounds one whole GET including the body. Defaults to 6 hours:
	// large packages on slow links must never be killed by a generic timeout.
	Timeout time.Duration

	// UserAgent for store requests.
	UserAgent string

	// Client is the HTTP client used for downloads. When nil a default
	// client with Timeout is built. Pass a client backed by
	// certtrust.NewTransport to make granted trust take effect on retries.
	Client *http.Client

	// TrustResolver handles certificate verification failures. When nil,
	// certificate faults are reported like any other network fault.
	TrustResolver *certtrust.Resolver

	// Dispatcher marshals displayable-error notifications off the worker
	// goroutines. Defaults to dispatch.Inline.
	Dispatcher dispatch.Dispatcher

	// WriteAllowed gates writes to persistent storage (portable/read-only
	// runs). When it reports false every download short-circuits as
	// cancelled. Defaults to always allowed.
	WriteAllowed func() bool
}
