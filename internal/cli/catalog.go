package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cwillem/addonstore/pkg/errors"
	"github.com/cwillem/addonstore/pkg/store"
)

// NewCatalogCmd creates the catalog command.
func NewCatalogCmd() *cobra.Command {
	var (
		lang       string
		channel    string
		apiVersion string
		showHash   bool
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the packages the store offers",
		Long:  "Fetch and display the package catalog for one language, channel and host API version.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCatalog(cmd.Context(), lang, channel, apiVersion, showHash)
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "en", "Catalog language")
	cmd.Flags().StringVar(&channel, "channel", string(store.ChannelAll), "Release channel (stable, beta, dev, all)")
	cmd.Flags().StringVar(&apiVersion, "api-version", store.LatestAPIVersion, "Host API version to fetch the catalog for")
	cmd.Flags().BoolVar(&showHash, "show-hash", false, "Also print the catalog cache hash")

	return cmd
}

func runCatalog(ctx context.Context, lang, channelStr, apiVersion string, showHash bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	channel, err := store.ParseChannel(channelStr)
	if err != nil {
		return err
	}

	stack := newStoreStack(cfg, catalogFetchTimeout)

	fetchCtx, cancel := context.WithTimeout(ctx, catalogFetchTimeout)
	defer cancel()
	packages, cacheHash, err := stack.store.FetchCatalog(fetchCtx, lang, channel, apiVersion)
	if err != nil {
		return errors.Wrap(err, "failed to fetch catalog")
	}

	bold := color.New(color.Bold).SprintFunc()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", bold("ID"), bold("VERSION"), bold("CHANNEL"), bold("SIZE"), bold("NAME"))
	for _, desc := range packages {
		size := "-"
		if desc.Size > 0 {
			size = humanize.Bytes(uint64(desc.Size))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", desc.ID, desc.Version, desc.Channel, size, desc.DisplayName)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d packages\n", len(packages))
	if showHash {
		fmt.Printf("cache hash: %s\n", cacheHash)
	}
	return nil
}
