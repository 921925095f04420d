package download

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/cwillem/addonstore/internal/logger"
	"github.com/cwillem/addonstore/pkg/certtrust"
	"github.com/cwillem/addonstore/pkg/checksum"
	"github.com/cwillem/addonstore/pkg/errors"
	"github.com/cwillem/addonstore/pkg/fsutil"
	"github.com/cwillem/addonstore/pkg/model"
)

// downloadFailureCaption titles every user-facing download failure.
const downloadFailureCaption = "Package download failure"

// maxTrustRetries bounds the retry after newly granted certificate trust to a
// single immediate re-attempt. A second consecutive certificate failure is
// surfaced, not auto-retried.
const maxTrustRetries = 1

// download performs one download attempt for req and returns the verified
// cache path. ("", nil) means the download was cancelled, either by the
// caller or by the user declining certificate trust.
func (m *ManagerImpl) download(req *model.Request, attempt int) (string, error) {
	logger.Debug("starting download", logger.Fields{"package": req.ID, "attempt": attempt})

	if !m.writeAllowed() {
		logger.Error("writes to persistent storage are disabled, cancelling download",
			logger.Fields{"package": req.ID})
		return "", nil
	}

	// A stale file at the cache path is replaced by this download.
	if err := fsutil.RemoveIfExists(req.CachePath); err != nil {
		logger.Warn("unable to remove stale cache file", logger.Fields{"path": req.CachePath, "err": err})
		return "", errors.NewDisplayable(err, downloadFailureCaption,
			"Unable to save package as a file: %s", req.DisplayName)
	}

	m.mu.Lock()
	_, tracked := m.progress[req]
	m.mu.Unlock()
	if !tracked {
		logger.Debug("download cancelled before it started", logger.Fields{"package": req.ID})
		return "", nil
	}

	finished, err := m.streamToTemp(req)
	if err != nil {
		switch {
		case certtrust.IsVerificationError(err):
			return m.escalateCertFailure(req, attempt, err)
		case stderrors.Is(err, errors.ErrLocalWrite):
			logger.Warn("unable to save package file", logger.Fields{
				"package": req.ID,
				"path":    req.TempPath,
				"err":     err,
			})
			return "", errors.NewDisplayable(err, downloadFailureCaption,
				"Unable to save package as a file: %s", req.DisplayName)
		default:
			logger.Warn("unable to download package file", logger.Fields{"package": req.ID, "err": err})
			return "", errors.NewDisplayable(err, downloadFailureCaption,
				"Unable to download package: %s", req.DisplayName)
		}
	}
	if !finished {
		return "", nil
	}

	matches, err := m.verifyChecksum(req)
	if err != nil {
		logger.Warn("unable to read downloaded file for verification", logger.Fields{
			"package": req.ID,
			"err":     err,
		})
		return "", errors.NewDisplayable(err, downloadFailureCaption,
			"Unable to save package as a file: %s", req.DisplayName)
	}
	if !matches {
		m.mu.Lock()
		_ = os.Remove(req.TempPath)
		m.mu.Unlock()
		logger.Warn("temp file deleted, checksum mismatch", logger.Fields{
			"package": req.ID,
			"path":    req.TempPath,
		})
		return "", errors.NewDisplayable(errors.ErrChecksumMismatch, downloadFailureCaption,
			"Package download not safe: checksum failed for %s", req.DisplayName)
	}

	// Single rename, never copy-then-delete: no window where a half-written
	// file occupies the cache path.
	m.mu.Lock()
	err = fsutil.Move(req.TempPath, req.CachePath)
	m.mu.Unlock()
	if err != nil {
		logger.Warn("unable to publish package to cache", logger.Fields{"package": req.ID, "err": err})
		return "", errors.NewDisplayable(err, downloadFailureCaption,
			"Unable to save package as a file: %s", req.DisplayName)
	}

	logger.Debug("cache file available", logger.Fields{"package": req.ID, "path": req.CachePath})
	return req.CachePath, nil
}

// streamToTemp issues the GET and copies the body to the temp file in fixed
// size chunks. Each chunk write and the following liveness check happen under
// the shared lock, so a cancellation and a chunk write are mutually atomic.
// Returns (false, nil) when the download was cancelled mid-flight.
func (m *ManagerImpl) streamToTemp(req *model.Request) (bool, error) {
	httpReq, err := http.NewRequestWithContext(m.ctx, http.MethodGet, req.URL, http.NoBody)
	if err != nil {
		return false, errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("User-Agent", m.userAgent)

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status code: %d: %w", resp.StatusCode, errors.ErrDownloadFailed)
	}

	fd, err := os.OpenFile(req.TempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeSecure)
	if err != nil {
		return false, errors.Wrap(errors.ErrLocalWrite, err.Error())
	}

	buf := make([]byte, m.chunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			m.mu.Lock()
			_, writeErr := fd.Write(buf[:n])
			live := false
			if writeErr == nil {
				if _, ok := m.progress[req]; ok {
					m.progress[req]++
					live = true
				}
			}
			m.mu.Unlock()

			if writeErr != nil {
				_ = fd.Close()
				return false, errors.Wrap(errors.ErrLocalWrite, writeErr.Error())
			}
			if !live {
				_ = fd.Close()
				logger.Debug("cancelled download", logger.Fields{"package": req.ID})
				return false, nil
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = fd.Close()
			return false, readErr
		}
	}

	if err := fd.Close(); err != nil {
		return false, errors.Wrap(errors.ErrLocalWrite, err.Error())
	}
	return true, nil
}

// escalateCertFailure runs the trust-on-first-use flow. Newly granted trust
// retries the whole download once; a decline is a cancellation, not an error.
func (m *ManagerImpl) escalateCertFailure(req *model.Request, attempt int, cause error) (string, error) {
	if m.resolver == nil || attempt >= maxTrustRetries {
		logger.Warn("certificate verification failed", logger.Fields{
			"package": req.ID,
			"attempt": attempt,
			"err":     cause,
		})
		return "", errors.NewDisplayable(cause, downloadFailureCaption,
			"Unable to download package: %s", req.DisplayName)
	}

	granted, err := m.resolver.Resolve(m.ctx, req.URL)
	if err != nil {
		logger.Warn("certificate trust escalation failed", logger.Fields{"package": req.ID, "err": err})
		return "", errors.NewDisplayable(err, downloadFailureCaption,
			"Unable to download package: %s", req.DisplayName)
	}
	if !granted {
		return "", nil
	}
	return m.download(req, attempt+1)
}

// verifyChecksum compares the temp file digest against the declared checksum
// under the shared lock, serialized with writers on the same path.
func (m *ManagerImpl) verifyChecksum(req *model.Request) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return checksum.FileMatches(req.TempPath, req.SHA256)
}
