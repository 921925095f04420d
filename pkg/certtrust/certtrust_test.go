package certtrust

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cwillem/addonstore/pkg/certtrust/mocks"
	"github.com/cwillem/addonstore/pkg/checksum"
)

func newTLSServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestIsVerificationError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil",
			err:      nil,
			expected: false,
		},
		{
			name:     "unknown authority",
			err:      x509.UnknownAuthorityError{},
			expected: true,
		},
		{
			name:     "wrapped in url.Error",
			err:      &url.Error{Op: "Get", URL: "https://x", Err: &tls.CertificateVerificationError{Err: x509.UnknownAuthorityError{}}},
			expected: true,
		},
		{
			name:     "hostname mismatch",
			err:      x509.HostnameError{Host: "store.example.com"},
			expected: true,
		},
		{
			name:     "plain transport error",
			err:      fmt.Errorf("connection refused"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsVerificationError(tt.err))
		})
	}
}

func TestIsVerificationError_RealHandshake(t *testing.T) {
	server := newTLSServer(t)

	// Empty root pool: the handshake must fail verification.
	client := &http.Client{Transport: NewTransport(NewPoolFrom(nil))}
	_, err := client.Get(server.URL)
	require.Error(t, err)
	assert.True(t, IsVerificationError(err), "expected a certificate verification error, got %v", err)
}

func TestFingerprint(t *testing.T) {
	server := newTLSServer(t)
	cert := server.Certificate()
	assert.Equal(t, checksum.Sum256Hex(cert.Raw), Fingerprint(cert))
}

func TestResolve_Confirmed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server := newTLSServer(t)
	serverURL, err := url.Parse(server.URL)
	require.NoError(t, err)
	wantFingerprint := Fingerprint(server.Certificate())

	prompter := mocks.NewMockPrompter(ctrl)
	prompter.EXPECT().ConfirmTrust(serverURL.Host, wantFingerprint).Return(true, nil)

	store := mocks.NewMockStore(ctrl)
	store.EXPECT().InstallRoot(gomock.Any()).DoAndReturn(func(cert *x509.Certificate) error {
		assert.Equal(t, server.Certificate().Raw, cert.Raw)
		return nil
	})

	r := NewResolver(prompter, store)
	retry, err := r.Resolve(context.Background(), server.URL)
	require.NoError(t, err)
	assert.True(t, retry)
}

func TestResolve_Declined(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server := newTLSServer(t)

	prompter := mocks.NewMockPrompter(ctrl)
	prompter.EXPECT().ConfirmTrust(gomock.Any(), gomock.Any()).Return(false, nil)

	// InstallRoot must never be called on decline.
	store := mocks.NewMockStore(ctrl)

	r := NewResolver(prompter, store)
	retry, err := r.Resolve(context.Background(), server.URL)
	require.NoError(t, err)
	assert.False(t, retry)
}

func TestResolve_InstallFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server := newTLSServer(t)

	prompter := mocks.NewMockPrompter(ctrl)
	prompter.EXPECT().ConfirmTrust(gomock.Any(), gomock.Any()).Return(true, nil)

	store := mocks.NewMockStore(ctrl)
	store.EXPECT().InstallRoot(gomock.Any()).Return(fmt.Errorf("store is read-only"))

	r := NewResolver(prompter, store)
	retry, err := r.Resolve(context.Background(), server.URL)
	require.Error(t, err)
	assert.False(t, retry)
}

func TestResolve_UnreachableServer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server := newTLSServer(t)
	serverURL := server.URL
	server.Close()

	r := NewResolver(mocks.NewMockPrompter(ctrl), mocks.NewMockStore(ctrl))
	retry, err := r.Resolve(context.Background(), serverURL)
	require.Error(t, err)
	assert.False(t, retry)
}

func TestPoolAndTransport_TrustGrantTakesEffect(t *testing.T) {
	server := newTLSServer(t)

	pool := NewPoolFrom(nil)
	client := &http.Client{Transport: NewTransport(pool)}

	_, err := client.Get(server.URL)
	require.Error(t, err, "untrusted certificate must fail the handshake")

	require.NoError(t, pool.InstallRoot(server.Certificate()))

	resp, err := client.Get(server.URL)
	require.NoError(t, err, "installed root must make the retry succeed")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
