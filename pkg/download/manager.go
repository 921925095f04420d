package download

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cwillem/addonstore/internal/logger"
	"github.com/cwillem/addonstore/pkg/dispatch"
	"github.com/cwillem/addonstore/pkg/errors"
	"github.com/cwillem/addonstore/pkg/fsutil"
	"github.com/cwillem/addonstore/pkg/model"
)

const (
	defaultMaxParallel = 10
	defaultChunkSize   = 128 * 1024
	defaultTimeout     = 6 * time.Hour
	defaultUserAgent   = "addonstore/1.0"
)

// ManagerImpl runs downloads on a bounded worker pool and guarantees every
// submitted request yields at most one completion notification.
//
// One mutex guards the progress, pending and completion tables together with
// every write to a temp file and the checksum read over it. Presence of a
// request in the progress table doubles as its liveness flag: removing the
// entry is the cancellation signal workers poll between chunks.
type ManagerImpl struct {
	mu       sync.Mutex
	progress map[*model.Request]int
	pending  map[*task]struct{}
	complete map[*model.Request]string
	inflight map[string]*model.Request
	closed   bool

	sem    chan struct{}
	stop   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	client       *http.Client
	resolver     trustResolver
	dispatcher   dispatch.Dispatcher
	writeAllowed func() bool

	tempDir   string
	chunkSize int
	userAgent string
}

// task is one scheduled download: the request plus its caller-supplied
// callbacks and, after the worker returns, its outcome.
type task struct {
	req        *model.Request
	onComplete OnComplete
	onError    OnDisplayableError

	path string
	err  error
}

// trustResolver is the slice of certtrust.Resolver the worker needs.
type trustResolver interface {
	Resolve(ctx context.Context, rawURL string) (bool, error)
}

// NewManager creates a download manager. If writes to persistent storage are
// allowed, the temp-download directory is cleared and recreated so leftover
// partial files from a previous run never masquerade as valid downloads.
func NewManager(opts Options) (*ManagerImpl, error) {
	if opts.TempDir == "" {
		return nil, errors.Wrap(errors.ErrInvalidPath, "temp download directory is required")
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = defaultMaxParallel
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = dispatch.Inline{}
	}
	if opts.WriteAllowed == nil {
		opts.WriteAllowed = func() bool { return true }
	}

	if opts.WriteAllowed() {
		if err := fsutil.ResetDir(opts.TempDir); err != nil {
			return nil, errors.Wrap(err, "could not prepare temp download dir")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &ManagerImpl{
		progress:     make(map[*model.Request]int),
		pending:      make(map[*task]struct{}),
		complete:     make(map[*model.Request]string),
		inflight:     make(map[string]*model.Request),
		sem:          make(chan struct{}, opts.MaxParallel),
		stop:         make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
		client:       opts.Client,
		dispatcher:   opts.Dispatcher,
		writeAllowed: opts.WriteAllowed,
		tempDir:      opts.TempDir,
		chunkSize:    opts.ChunkSize,
		userAgent:    opts.UserAgent,
	}
	if opts.TrustResolver != nil {
		m.resolver = opts.TrustResolver
	}
	return m, nil
}

// Submit schedules req on the pool. The progress entry is created before the
// worker is scheduled, so a cancellation issued immediately after Submit is
// guaranteed to be observed.
func (m *ManagerImpl) Submit(req *model.Request, onComplete OnComplete, onError OnDisplayableError) error {
	if err := req.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.ErrManagerClosed
	}
	if _, busy := m.inflight[req.ID]; busy {
		m.mu.Unlock()
		return errors.Wrap(errors.ErrAlreadyInFlight, req.ID)
	}
	t := &task{req: req, onComplete: onComplete, onError: onError}
	m.inflight[req.ID] = req
	m.progress[req] = 0
	m.pending[t] = struct{}{}
	m.mu.Unlock()

	logger.Debug("download submitted", logger.Fields{"package": req.ID})
	go m.run(t)
	return nil
}

// run is the pool entry for one task: wait for a worker slot, perform the
// download, then resolve the outcome. Unexpected faults are contained here so
// one bad download can never take down the pool.
func (m *ManagerImpl) run(t *task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("unhandled panic in download worker", logger.Fields{
				"package": t.req.ID,
				"panic":   r,
			})
			m.mu.Lock()
			delete(m.pending, t)
			delete(m.progress, t.req)
			delete(m.inflight, t.req.ID)
			m.mu.Unlock()
		}
	}()

	select {
	case <-m.stop:
		// Pool shut down before this download started.
	case m.sem <- struct{}{}:
		func() {
			defer func() { <-m.sem }()
			t.path, t.err = m.download(t.req, 0)
		}()
	}
	m.finish(t)
}

// finish resolves one task exactly once. A task is treated as cancelled when
// its registration or its progress entry is gone, even if the worker produced
// a result: a late success for a cancelled request is discarded and its file
// deleted, because callers are not designed to receive late results.
func (m *ManagerImpl) finish(t *task) {
	m.mu.Lock()
	_, registered := m.pending[t]
	_, tracked := m.progress[t.req]
	if !registered || !tracked {
		delete(m.pending, t)
		delete(m.progress, t.req)
		delete(m.inflight, t.req.ID)
		// The worker may have partially written the temp file.
		if err := fsutil.RemoveIfExists(t.req.TempPath); err != nil {
			logger.Error("error deleting partially downloaded file", logger.Fields{
				"path": t.req.TempPath,
				"err":  err,
			})
		}
		m.mu.Unlock()
		logger.Debug("download cancelled, not notifying", logger.Fields{"package": t.req.ID})
		return
	}
	m.mu.Unlock()

	notify := true
	if t.err != nil {
		t.path = ""
		if derr, ok := errors.AsDisplayable(t.err); ok {
			onError := t.onError
			if onError != nil {
				m.dispatcher.CallLater(func() { onError(derr) })
			}
		} else {
			// A non-displayable error is a programming defect: log it and
			// swallow it so the caller never sees an inconsistent outcome.
			logger.Error("unhandled error in download worker", logger.Fields{
				"package": t.req.ID,
				"err":     t.err,
			})
			notify = false
		}
	}

	m.mu.Lock()
	delete(m.pending, t)
	delete(m.progress, t.req)
	delete(m.inflight, t.req.ID)
	m.complete[t.req] = t.path
	m.mu.Unlock()

	if notify && t.onComplete != nil {
		t.onComplete(t.req, t.path)
	}
}

// Cancel signals cooperative cancellation of req by removing its progress
// entry. A worker past its last checkpoint will still run to completion; its
// result is then discarded by finish.
func (m *ManagerImpl) Cancel(req *model.Request) {
	m.mu.Lock()
	delete(m.progress, req)
	m.mu.Unlock()
	logger.Debug("download cancel requested", logger.Fields{"package": req.ID})
}

// CancelAll cancels every pending download, shuts the pool down without
// waiting for in-flight work, and removes the temp-download directory tree.
// The manager accepts no further submissions afterwards. Safe to call more
// than once.
func (m *ManagerImpl) CancelAll() {
	logger.Debug("cancelling all downloads")

	m.mu.Lock()
	alreadyClosed := m.closed
	m.closed = true
	clear(m.progress)
	clear(m.pending)
	clear(m.inflight)
	m.mu.Unlock()

	if !alreadyClosed {
		close(m.stop)
		m.cancel()
	}

	if err := os.RemoveAll(m.tempDir); err != nil {
		logger.Error("failed to remove temp download dir", logger.Fields{
			"dir": m.tempDir,
			"err": err,
		})
	}
}

// Progress returns the chunk count for req. ok is false when the request is
// no longer tracked: either never submitted, or already terminal.
func (m *ManagerImpl) Progress(req *model.Request) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chunks, ok := m.progress[req]
	return chunks, ok
}

// Result returns the recorded outcome of a completed request.
func (m *ManagerImpl) Result(req *model.Request) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path, ok := m.complete[req]
	return path, ok
}

var _ Manager = (*ManagerImpl)(nil)
