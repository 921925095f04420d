package certtrust

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
)

// NewTransport returns an HTTP transport whose TLS handshakes verify against
// the current state of pool. Each handshake takes a fresh snapshot, so roots
// installed after a failed request take effect on the retry.
func NewTransport(pool *Pool) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				host = addr
			}
			dialer := &tls.Dialer{
				Config: &tls.Config{
					RootCAs:    pool.Snapshot(),
					ServerName: host,
					MinVersion: tls.VersionTLS12,
				},
			}
			return dialer.DialContext(ctx, network, addr)
		},
	}
}
