// Package rugparser downloads the CMS RUG-IV crosswalk and turns it into
// classified records.
package rugparser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/giygas/rug-formats/logging"
	"github.com/giygas/rug-formats/metrics"
	"github.com/giygas/rug-formats/rugparser/entities"
	"github.com/juju/ratelimit"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrUnexpectedStatus is returned when the API answers with a non-2xx status
	ErrUnexpectedStatus = errors.New("unexpected response status")
	// ErrEmptyDataset is returned when the API returns no rows at all
	ErrEmptyDataset = errors.New("source returned no records")
)

const (
	// maxBodySize caps a single page body (the full crosswalk is a few KB)
	maxBodySize = 32 * 1024 * 1024
	// maxPages stops runaway paging when a server ignores $offset
	maxPages = 1000
)

// DownloaderOptions configures a Downloader.
type DownloaderOptions struct {
	SourceURL         string
	AppToken          string
	PageSize          int
	RequestsPerSecond float64
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// Downloader fetches the crosswalk from a Socrata resource endpoint.
type Downloader struct {
	sourceURL string
	appToken  string
	pageSize  int
	client    *http.Client
	bucket    *ratelimit.Bucket
}

// NewDownloader creates a Downloader. Zero values fall back to sane defaults.
func NewDownloader(opts DownloaderOptions) *Downloader {
	if opts.PageSize <= 0 {
		opts.PageSize = 1000
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = time.Minute
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Downloader{
		sourceURL: opts.SourceURL,
		appToken:  opts.AppToken,
		pageSize:  opts.PageSize,
		client:    client,
		bucket:    ratelimit.NewBucketWithRate(opts.RequestsPerSecond, 1),
	}
}

// FetchRecords downloads every page of the crosswalk in API order.
func (d *Downloader) FetchRecords(ctx context.Context) ([]entities.SourceRecord, error) {
	var records []entities.SourceRecord

	for page := 0; ; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("stopped after %d pages, source does not honour $offset", maxPages)
		}

		pageURL, err := d.pageURL(page * d.pageSize)
		if err != nil {
			return nil, err
		}

		if err := d.throttle(ctx); err != nil {
			return nil, err
		}
		rows, err := d.fetchPage(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		metrics.SourcePagesTotal.Inc()
		logging.Debug("Fetched crosswalk page", "page", page, "rows", len(rows))

		records = append(records, rows...)
		if len(rows) < d.pageSize {
			break
		}
	}

	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	logging.Info("Crosswalk downloaded", "records", len(records))
	return records, nil
}

// throttle waits for a page token, giving up when ctx is done
func (d *Downloader) throttle(ctx context.Context) error {
	wait := d.bucket.Take(1)
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pageURL keeps the configured $select and adds stable paging parameters
func (d *Downloader) pageURL(offset int) (string, error) {
	u, err := url.Parse(d.sourceURL)
	if err != nil {
		return "", fmt.Errorf("invalid source URL %q: %w", d.sourceURL, err)
	}

	q := u.Query()
	q.Set("$limit", strconv.Itoa(d.pageSize))
	q.Set("$offset", strconv.Itoa(offset))
	if q.Get("$order") == "" {
		q.Set("$order", ":id")
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (d *Downloader) fetchPage(ctx context.Context, pageURL string) ([]entities.SourceRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if d.appToken != "" {
		req.Header.Set("X-App-Token", d.appToken)
	}

	response, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", pageURL, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s from %s", ErrUnexpectedStatus, response.Status, pageURL)
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(response.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return decodeRecords(bodyBytes)
}

// decodeRecords parses a JSON array of crosswalk rows.
// Bodies that are not valid UTF-8 are read as ISO-8859-1.
func decodeRecords(body []byte) ([]entities.SourceRecord, error) {
	var reader io.Reader = bytes.NewReader(body)
	if !utf8.Valid(body) {
		reader = charmap.ISO8859_1.NewDecoder().Reader(reader)
	}

	var rows []entities.SourceRecord
	if err := json.NewDecoder(reader).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode crosswalk JSON: %w", err)
	}
	return rows, nil
}
