// Package ingest pulls published contract notices from the Contracts Finder
// OCDS search API and maps them into contract records for the screening
// pipeline.
package ingest

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/carbonsight/carbon-cli/internal/model"
)

// Getter abstracts the rate-limited HTTP fetcher for testing.
type Getter interface {
	Get(ctx context.Context, url string) (io.ReadCloser, error)
}

// Options configures a search crawl.
type Options struct {
	BaseURL       string
	PageLimit     int
	MaxDescLen    int
	CPVPrefixes   []string // empty disables the prefix filter
	PublishedFrom string   // YYYY-MM-DD
	PublishedTo   string   // YYYY-MM-DD
	CursorPath    string   // optional: resume/persist the pagination cursor
}

// Client walks the OCDS search endpoint page by page.
type Client struct {
	fetch Getter
	opts  Options
}

// NewClient creates a search client over the given fetcher.
func NewClient(fetch Getter, opts Options) *Client {
	if opts.PageLimit == 0 {
		opts.PageLimit = 100
	}
	if opts.MaxDescLen == 0 {
		opts.MaxDescLen = 500
	}
	return &Client{fetch: fetch, opts: opts}
}

// FetchAll crawls every result page and returns the notices that survive the
// CPV prefix filter, deduplicated by ocid. The pagination cursor is saved
// after each page when CursorPath is set, so an interrupted crawl resumes
// instead of restarting.
func (c *Client) FetchAll(ctx context.Context) ([]model.ContractRecord, error) {
	nextURL, err := c.startURL()
	if err != nil {
		return nil, err
	}

	var records []model.ContractRecord
	seen := make(map[string]bool)
	page := 0

	for nextURL != "" {
		page++
		zap.L().Info("ingest: fetching page",
			zap.Int("page", page),
			zap.Int("collected", len(records)),
		)

		body, err := c.fetch.Get(ctx, nextURL)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: fetch page %d", page)
		}

		var resp searchResponse
		decodeErr := json.NewDecoder(body).Decode(&resp)
		_ = body.Close()
		if decodeErr != nil {
			return nil, eris.Wrapf(decodeErr, "ingest: decode page %d", page)
		}

		if len(resp.Releases) == 0 {
			break
		}

		for _, rel := range resp.Releases {
			rec, ok := c.parseRelease(rel)
			if !ok || seen[rec.OCID] {
				continue
			}
			seen[rec.OCID] = true
			records = append(records, rec)
		}

		nextURL = resp.Links.Next
		if nextURL != "" && c.opts.CursorPath != "" {
			if err := os.WriteFile(c.opts.CursorPath, []byte(nextURL), 0644); err != nil {
				zap.L().Warn("ingest: failed to persist cursor", zap.Error(err))
			}
		}
	}

	zap.L().Info("ingest: crawl complete",
		zap.Int("pages", page),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// startURL resumes from a persisted cursor when one exists, otherwise builds
// the first-page query.
func (c *Client) startURL() (string, error) {
	if c.opts.CursorPath != "" {
		if data, err := os.ReadFile(c.opts.CursorPath); err == nil {
			cursor := strings.TrimSpace(string(data))
			if cursor != "" {
				zap.L().Info("ingest: resuming from saved cursor")
				return cursor, nil
			}
		}
	}

	u, err := url.Parse(c.opts.BaseURL)
	if err != nil {
		return "", eris.Wrap(err, "ingest: parse base url")
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(c.opts.PageLimit))
	if c.opts.PublishedFrom != "" {
		q.Set("publishedFrom", c.opts.PublishedFrom)
	}
	if c.opts.PublishedTo != "" {
		q.Set("publishedTo", c.opts.PublishedTo)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
