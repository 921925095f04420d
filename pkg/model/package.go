// Package model provides the data structures shared between the store
// catalog, the download manager and the CLI.
package model

import (
	"fmt"
	"path/filepath"

	goversion "github.com/hashicorp/go-version"

	"github.com/cwillem/addonstore/pkg/errors"
)

const (
	// CacheFileExt is the extension of verified packages in the cache directory.
	CacheFileExt = ".addon"
	// TempFileExt is the extension of in-progress files in the temp download directory.
	TempFileExt = ".download"
)

// PackageDescriptor is one entry of the store catalog: everything the store
// declares about a downloadable package.
type PackageDescriptor struct {
	ID            string `json:"id"`
	DisplayName   string `json:"displayName"`
	Version       string `json:"version"`
	URL           string `json:"URL"`
	SHA256        string `json:"sha256"`
	Channel       string `json:"channel,omitempty"`
	Size          int64  `json:"size,omitempty"`
	MinAPIVersion string `json:"minAPIVersion,omitempty"`
	LastTestedAPI string `json:"lastTestedAPIVersion,omitempty"`
}

// SupportsAPIVersion reports whether the package declares compatibility with
// the given host API version: MinAPIVersion <= apiVersion <= LastTestedAPI.
// Bounds the descriptor does not declare are treated as open.
func (d *PackageDescriptor) SupportsAPIVersion(apiVersion string) bool {
	v, err := goversion.NewVersion(apiVersion)
	if err != nil {
		return false
	}
	if d.MinAPIVersion != "" {
		minV, err := goversion.NewVersion(d.MinAPIVersion)
		if err != nil || v.LessThan(minV) {
			return false
		}
	}
	if d.LastTestedAPI != "" {
		lastV, err := goversion.NewVersion(d.LastTestedAPI)
		if err != nil || v.GreaterThan(lastV) {
			return false
		}
	}
	return true
}

// Request identifies one package to fetch. It is immutable once submitted to
// the download manager; the manager references it for the lifetime of the
// operation and keys its tables by ID.
type Request struct {
	ID          string
	DisplayName string
	Version     string
	URL         string
	SHA256      string
	TempPath    string
	CachePath   string
}

// NewRequest builds a Request for desc with its temp and cache paths laid out
// under tempDir and cacheDir.
func NewRequest(desc *PackageDescriptor, tempDir, cacheDir string) *Request {
	return &Request{
		ID:          desc.ID,
		DisplayName: desc.DisplayName,
		Version:     desc.Version,
		URL:         desc.URL,
		SHA256:      desc.SHA256,
		TempPath:    filepath.Join(tempDir, desc.ID+TempFileExt),
		CachePath:   filepath.Join(cacheDir, CacheFilename(desc.ID, desc.Version)),
	}
}

// CacheFilename returns the final cache file name for a package version.
func CacheFilename(id, version string) string {
	return fmt.Sprintf("%s-%s%s", id, version, CacheFileExt)
}

// Validate checks that the request carries everything a download needs.
func (r *Request) Validate() error {
	switch {
	case r.ID == "":
		return errors.Wrap(errors.ErrInvalidPath, "request is missing a package ID")
	case r.URL == "":
		return errors.Wrapf(errors.ErrDownloadFailed, "request %s is missing a source URL", r.ID)
	case r.TempPath == "" || r.CachePath == "":
		return errors.Wrapf(errors.ErrInvalidPath, "request %s is missing target paths", r.ID)
	}
	return nil
}
