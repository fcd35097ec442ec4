package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gasfeel/gaspay/internal/config"
	"github.com/gasfeel/gaspay/internal/models"
	"go.uber.org/zap"
)

// ErrMissingColumns is returned when the feed header lacks one of the
// configured required columns. The whole feed is unusable in that case.
var ErrMissingColumns = errors.New("required columns absent from feed header")

// noCodeSentinel marks rows the sheet exports for customers with no
// referral code assigned.
const noCodeSentinel = "0"

// timestampLayouts are tried in order. The published sheet is not strict
// about its export format, so a few common shapes are accepted. Naive
// stamps are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2006-01-02",
}

// Client fetches the published CSV feed and sanitizes it into an
// EventSet. It performs network I/O only; all state lives in the
// returned value.
type Client struct {
	httpClient *http.Client
	cfg        config.FeedConfig
	logger     *zap.Logger
}

// NewClient constructs a feed client with a bounded fetch timeout.
func NewClient(cfg config.FeedConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// FetchAndParse retrieves the feed and returns the sanitized snapshot.
// Individual malformed rows are skipped and counted; an error is returned
// only when the feed as a whole is unusable (transport failure, non-2xx,
// undecodable content, or missing required columns). A reachable feed
// with zero valid rows yields an empty EventSet and a nil error.
func (c *Client) FetchAndParse(ctx context.Context) (*models.EventSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch feed: unexpected status %d", resp.StatusCode)
	}

	set, err := c.Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	if set.Skipped > 0 {
		c.logger.Warn("feed rows skipped",
			zap.Int("skipped", set.Skipped),
			zap.Int("valid", len(set.Events)),
		)
	}
	return set, nil
}

// Parse reads CSV content and applies the sanitization rules: rows with
// an empty, whitespace-only, or "0" code are dropped, as are rows whose
// timestamp does not parse. Extra columns are ignored.
func (c *Client) Parse(r io.Reader) (*models.EventSet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("decode feed header: %w", err)
	}

	tsIdx, codeIdx := -1, -1
	for i, name := range header {
		switch {
		case strings.EqualFold(strings.TrimSpace(name), c.cfg.TimestampColumn):
			tsIdx = i
		case strings.EqualFold(strings.TrimSpace(name), c.cfg.CodeColumn):
			codeIdx = i
		}
	}
	if tsIdx < 0 || codeIdx < 0 {
		return nil, fmt.Errorf("%w: want %q and %q, got %v",
			ErrMissingColumns, c.cfg.TimestampColumn, c.cfg.CodeColumn, header)
	}

	set := &models.EventSet{Events: []models.ReferralEvent{}}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A ragged or unquotable row is a row problem, not a
			// feed problem.
			set.Skipped++
			continue
		}
		if tsIdx >= len(record) || codeIdx >= len(record) {
			set.Skipped++
			continue
		}

		code := strings.TrimSpace(record[codeIdx])
		if code == "" || code == noCodeSentinel {
			set.Skipped++
			continue
		}

		ts, ok := parseTimestamp(strings.TrimSpace(record[tsIdx]))
		if !ok {
			set.Skipped++
			continue
		}

		set.Events = append(set.Events, models.ReferralEvent{
			Timestamp: ts,
			Code:      code,
		})
	}

	return set, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
