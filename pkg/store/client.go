// Package store talks to the addon store server: it builds the store URL
// scheme and fetches the package catalog. Choosing which packages to download
// stays with the caller.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwillem/addonstore/pkg/errors"
	"github.com/cwillem/addonstore/pkg/model"
)

// Channel is a release channel of the store catalog.
type Channel string

// Release channels understood by the store server.
const (
	ChannelStable Channel = "stable"
	ChannelBeta   Channel = "beta"
	ChannelDev    Channel = "dev"
	ChannelAll    Channel = "all"
)

// ParseChannel converts user input into a Channel.
func ParseChannel(s string) (Channel, error) {
	switch ch := Channel(s); ch {
	case ChannelStable, ChannelBeta, ChannelDev, ChannelAll:
		return ch, nil
	default:
		return "", errors.Wrap(errors.ErrUnknownChannel, s)
	}
}

// LatestAPIVersion requests the newest catalog regardless of the host API
// version, including entries for older incompatible hosts.
const LatestAPIVersion = "latest"

const defaultTimeout = 30 * time.Second

// Client fetches catalog documents from one store server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a store client for baseURL. A nil httpClient gets a
// default with a short timeout; catalog documents are small.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		userAgent:  "addonstore/1.0",
	}
}

// CatalogURL returns the URL of the catalog document for one language,
// channel and host API version: {base}/{lang}/{channel}/{apiVersion}.json.
func (c *Client) CatalogURL(lang string, ch Channel, apiVersion string) (string, error) {
	return c.join(lang, string(ch), apiVersion+".json")
}

// CacheHashURL returns the URL of the catalog cache-hash document.
func (c *Client) CacheHashURL() (string, error) {
	return c.join("cacheHash.json")
}

func (c *Client) join(elems ...string) (string, error) {
	joined, err := url.JoinPath(c.baseURL, elems...)
	if err != nil {
		return "", errors.Wrap(errors.ErrStoreURLInvalid, c.baseURL)
	}
	return joined, nil
}

// FetchCatalog downloads the catalog and its cache hash concurrently and
// returns the decoded package list plus the hash string.
func (c *Client) FetchCatalog(ctx context.Context, lang string, ch Channel, apiVersion string) ([]*model.PackageDescriptor, string, error) {
	catalogURL, err := c.CatalogURL(lang, ch, apiVersion)
	if err != nil {
		return nil, "", err
	}
	hashURL, err := c.CacheHashURL()
	if err != nil {
		return nil, "", err
	}

	var (
		packages  []*model.PackageDescriptor
		cacheHash string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		body, err := c.get(gctx, catalogURL)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &packages); err != nil {
			return errors.Wrap(errors.ErrCatalogDecode, err.Error())
		}
		return nil
	})
	g.Go(func() error {
		body, err := c.get(gctx, hashURL)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &cacheHash); err != nil {
			return errors.Wrap(errors.ErrCatalogDecode, err.Error())
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, "", err
	}
	return packages, cacheHash, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", rawURL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code for %s: %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	return body, nil
}
