package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cwillem/addonstore/internal/logger"
	"github.com/cwillem/addonstore/pkg/dispatch"
	"github.com/cwillem/addonstore/pkg/download"
	"github.com/cwillem/addonstore/pkg/errors"
	"github.com/cwillem/addonstore/pkg/fsutil"
	"github.com/cwillem/addonstore/pkg/model"
	"github.com/cwillem/addonstore/pkg/store"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	var (
		lang        string
		channel     string
		apiVersion  string
		cacheDir    string
		maxParallel int
	)

	cmd := &cobra.Command{
		Use:   "fetch [PACKAGE...]",
		Short: "Download packages from the store",
		Long: `Download one or more packages from the configured store server.
Each file is verified against the checksum the catalog declares before it is
published to the cache directory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd.Context(), args, lang, channel, apiVersion, cacheDir, maxParallel)
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "en", "Catalog language")
	cmd.Flags().StringVar(&channel, "channel", string(store.ChannelStable), "Release channel (stable, beta, dev, all)")
	cmd.Flags().StringVar(&apiVersion, "api-version", store.LatestAPIVersion, "Host API version to fetch the catalog for")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Package cache directory (defaults to config)")
	cmd.Flags().IntVar(&maxParallel, "max-parallel", 0, "Number of parallel downloads (0=config)")

	return cmd
}

func runFetch(ctx context.Context, ids []string, lang, channelStr, apiVersion, cacheDir string, maxParallel int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cacheDir != "" {
		cfg.CacheDir = cacheDir
	}
	if maxParallel > 0 {
		cfg.MaxParallel = maxParallel
	}

	channel, err := store.ParseChannel(channelStr)
	if err != nil {
		return err
	}

	stack := newStoreStack(cfg, cfg.HTTPTimeout.Duration())

	catalogCtx, cancel := context.WithTimeout(ctx, catalogFetchTimeout)
	defer cancel()
	packages, _, err := stack.store.FetchCatalog(catalogCtx, lang, channel, apiVersion)
	if err != nil {
		return errors.Wrap(err, "failed to fetch catalog")
	}

	selected, err := selectPackages(packages, ids, apiVersion)
	if err != nil {
		return err
	}

	if !cfg.ReadOnly {
		if err := os.MkdirAll(cfg.CacheDir, fsutil.DirModeSecure); err != nil {
			return errors.Wrap(err, "failed to create cache directory")
		}
	}

	disp := dispatch.NewLoop()
	defer disp.Close()

	mgr, err := download.NewManager(download.Options{
		TempDir:       cfg.TempDir,
		MaxParallel:   cfg.MaxParallel,
		ChunkSize:     cfg.ChunkSize,
		Timeout:       cfg.HTTPTimeout.Duration(),
		Client:        stack.client,
		TrustResolver: stack.resolver,
		Dispatcher:    disp,
		WriteAllowed:  func() bool { return !cfg.ReadOnly },
	})
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	// A download that produces no file was either cancelled (trust declined,
	// read-only mode) or failed. Only failures raise an error notification,
	// so they are counted there; cancellations are reported but exit clean.
	var (
		wg       sync.WaitGroup
		skipped  atomic.Int32
		failures atomic.Int32
	)

	onComplete := func(req *model.Request, path string) {
		defer wg.Done()
		if path == "" {
			skipped.Add(1)
			fmt.Printf("%s %s %s\n", yellow("skipped"), req.ID, req.Version)
			return
		}
		size := ""
		if fi, statErr := os.Stat(path); statErr == nil {
			size = " (" + humanize.Bytes(uint64(fi.Size())) + ")"
		}
		fmt.Printf("%s %s %s%s -> %s\n", green("fetched"), req.ID, req.Version, size, path)
	}
	onError := func(derr *errors.DisplayableError) {
		failures.Add(1)
		fmt.Fprintf(os.Stderr, "%s %s\n", red(derr.Caption+":"), derr.Message)
	}

	requests := make([]*model.Request, 0, len(selected))
	for _, desc := range selected {
		req := model.NewRequest(desc, cfg.TempDir, cfg.CacheDir)
		wg.Add(1)
		if err := mgr.Submit(req, onComplete, onError); err != nil {
			wg.Done()
			mgr.CancelAll()
			return errors.Wrapf(err, "failed to schedule %s", desc.ID)
		}
		requests = append(requests, req)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("interrupted, cancelling downloads")
		mgr.CancelAll()
		return ctx.Err()
	}

	// Every onError was enqueued before its onComplete ran; Close drains the
	// queue so the counter is settled before it is read.
	disp.Close()

	if n := failures.Load(); n > 0 {
		return errors.Wrapf(errors.ErrDownloadFailed, "%d of %d packages failed", n, len(requests))
	}
	if n := skipped.Load(); n > 0 {
		fmt.Printf("%d of %d packages skipped\n", n, len(requests))
	}
	return nil
}

// selectPackages resolves the requested IDs against the catalog, preserving
// the order they were asked for. When a concrete API version was requested,
// packages whose declared compatibility range excludes it are rejected.
func selectPackages(packages []*model.PackageDescriptor, ids []string, apiVersion string) ([]*model.PackageDescriptor, error) {
	byID := make(map[string]*model.PackageDescriptor, len(packages))
	for _, desc := range packages {
		byID[desc.ID] = desc
	}

	selected := make([]*model.PackageDescriptor, 0, len(ids))
	var missing, incompatible []string
	for _, id := range ids {
		desc, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if apiVersion != store.LatestAPIVersion && !desc.SupportsAPIVersion(apiVersion) {
			incompatible = append(incompatible, id)
			continue
		}
		selected = append(selected, desc)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("not in catalog: %s", strings.Join(missing, ", "))
	}
	if len(incompatible) > 0 {
		return nil, fmt.Errorf("not compatible with API version %s: %s", apiVersion, strings.Join(incompatible, ", "))
	}
	return selected, nil
}
