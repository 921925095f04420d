package certtrust

import (
	"crypto/x509"
	"sync"
)

// Pool is a mutable set of trusted root certificates. It starts from the
// system roots and grows as the user grants trust; Snapshot hands immutable
// clones to TLS handshakes.
type Pool struct {
	mu    sync.RWMutex
	roots *x509.CertPool
}

// NewPool creates a Pool seeded with the system roots. If the system pool is
// unavailable the pool starts empty, so nothing is trusted implicitly.
func NewPool() *Pool {
	roots, err := x509.SystemCertPool()
	if err != nil {
		roots = x509.NewCertPool()
	}
	return &Pool{roots: roots}
}

// NewPoolFrom creates a Pool seeded with the given roots. A nil argument
// starts an empty pool. Mainly used by tests.
func NewPoolFrom(roots *x509.CertPool) *Pool {
	if roots == nil {
		roots = x509.NewCertPool()
	}
	return &Pool{roots: roots.Clone()}
}

// InstallRoot adds cert as a trusted root. Implements Store.
func (p *Pool) InstallRoot(cert *x509.Certificate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roots.AddCert(cert)
	return nil
}

// Snapshot returns a clone of the current roots for use in a TLS handshake.
func (p *Pool) Snapshot() *x509.CertPool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.roots.Clone()
}

var _ Store = (*Pool)(nil)
