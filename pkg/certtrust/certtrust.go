//go:generate mockgen -destination=./mocks/certtrust.go . Prompter,Store

// Package certtrust implements the trust-on-first-use flow for store servers
// that present a certificate the client does not trust yet: classify the TLS
// failure, fingerprint the offending certificate, ask the user, and install
// the certificate as a trusted root when the user confirms.
package certtrust

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	stderrors "errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/cwillem/addonstore/internal/logger"
	"github.com/cwillem/addonstore/pkg/checksum"
	"github.com/cwillem/addonstore/pkg/errors"
)

// Prompter asks the user whether to trust the certificate presented by host.
// The fingerprint must always be shown; implementations must never confirm
// without an explicit user decision.
type Prompter interface {
	ConfirmTrust(host, fingerprint string) (bool, error)
}

// Store installs a certificate as a trusted root for future connections.
type Store interface {
	InstallRoot(cert *x509.Certificate) error
}

// Resolver handles a TLS verification failure for one URL and decides whether
// the failed request should be retried.
type Resolver struct {
	prompter    Prompter
	store       Store
	dialTimeout time.Duration
}

const defaultDialTimeout = 30 * time.Second

// NewResolver creates a Resolver using the given prompt and root store
// collaborators.
func NewResolver(prompter Prompter, store Store) *Resolver {
	return &Resolver{
		prompter:    prompter,
		store:       store,
		dialTimeout: defaultDialTimeout,
	}
}

// Resolve fetches the certificate presented by the server behind rawURL,
// shows its SHA-256 fingerprint to the user and, if the user confirms,
// installs it as a trusted root. It returns true when trust was granted and
// the caller should retry the request once. A declined prompt returns
// (false, nil): the user chose not to proceed, which is a cancellation, not
// an error.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, errors.Wrap(errors.ErrStoreURLInvalid, rawURL)
	}

	cert, err := r.fetchCertificate(ctx, parsed)
	if err != nil {
		return false, errors.Wrapf(err, "failed to fetch certificate from %s", parsed.Host)
	}

	fingerprint := Fingerprint(cert)
	logger.Debug("prompting for certificate trust", logger.Fields{
		"host":        parsed.Host,
		"fingerprint": fingerprint,
	})

	confirmed, err := r.prompter.ConfirmTrust(parsed.Host, fingerprint)
	if err != nil {
		return false, errors.Wrap(err, "trust prompt failed")
	}
	if !confirmed {
		logger.Debug("certificate trust declined", logger.Fields{"host": parsed.Host})
		return false, nil
	}

	if err := r.store.InstallRoot(cert); err != nil {
		return false, errors.Wrap(err, "failed to install trusted root")
	}
	logger.Info("installed trusted root certificate", logger.Fields{
		"host":        parsed.Host,
		"fingerprint": fingerprint,
	})
	return true, nil
}

// fetchCertificate dials the server and returns the leaf certificate it
// presents. Verification is skipped: it has already failed, and the leaf is
// only needed so the user can inspect its fingerprint.
func (r *Resolver) fetchCertificate(ctx context.Context, u *url.URL) (*x509.Certificate, error) {
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, r.dialTimeout)
	defer cancel()

	dialer := &tls.Dialer{
		Config: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // the leaf is fingerprinted for the user, never silently trusted
		},
	}
	conn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, fmt.Errorf("server %s presented no certificate", host)
	}
	return state.PeerCertificates[0], nil
}

// Fingerprint returns the hex-encoded SHA-256 digest of the certificate in
// DER form, as shown to the user in the trust prompt.
func Fingerprint(cert *x509.Certificate) string {
	return checksum.Sum256Hex(cert.Raw)
}

// IsVerificationError reports whether err is specifically a certificate
// verification failure, as opposed to any other TLS or transport fault.
func IsVerificationError(err error) bool {
	if err == nil {
		return false
	}
	var certErr *tls.CertificateVerificationError
	if stderrors.As(err, &certErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if stderrors.As(err, &unknownAuthority) {
		return true
	}
	var hostname x509.HostnameError
	if stderrors.As(err, &hostname) {
		return true
	}
	var invalid x509.CertificateInvalidError
	return stderrors.As(err, &invalid)
}
