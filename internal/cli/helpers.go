package cli

import (
	"net/http"
	"time"

	"github.com/fatih/color"

	"github.com/cwillem/addonstore/internal/logger"
	"github.com/cwillem/addonstore/pkg/certtrust"
	"github.com/cwillem/addonstore/pkg/config"
	"github.com/cwillem/addonstore/pkg/errors"
	"github.com/cwillem/addonstore/pkg/store"
)

// These variables will be set by the main package.
var (
	ConfigPath *string
	Verbose    *bool
	NoColor    *bool
)

const catalogFetchTimeout = 30 * time.Second

// loadConfig loads the configuration file and applies the global CLI flags on
// top of it.
func loadConfig() (*config.Config, error) {
	configPath := ""
	if ConfigPath != nil {
		configPath = *ConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	if Verbose != nil && *Verbose {
		cfg.LogLevel = "debug"
	}
	if NoColor != nil && *NoColor {
		color.NoColor = true
	}

	logger.Init(cfg.LogLevel)
	return cfg, nil
}

// storeStack wires the pieces every store-facing command needs: a mutable
// trust pool, an HTTP client whose handshakes read that pool, the interactive
// trust resolver and the catalog client.
type storeStack struct {
	pool     *certtrust.Pool
	client   *http.Client
	resolver *certtrust.Resolver
	store    *store.Client
}

func newStoreStack(cfg *config.Config, timeout time.Duration) *storeStack {
	pool := certtrust.NewPool()

	client := &http.Client{
		Transport: certtrust.NewTransport(pool),
		Timeout:   timeout,
	}

	return &storeStack{
		pool:     pool,
		client:   client,
		resolver: certtrust.NewResolver(newTrustPrompter(), pool),
		store:    store.NewClient(cfg.BaseURL, client),
	}
}
