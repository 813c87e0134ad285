package hansard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/hansard-backend/internal/domain"
	apperrors "github.com/yungbote/hansard-backend/internal/pkg/errors"
	"github.com/yungbote/hansard-backend/internal/pkg/logger"
)

// Client fetches official sitting reports from the parliamentary catalog.
type Client interface {
	// FetchReport retrieves the raw report for a sitting date. The date must
	// already be in the catalog's DD-MM-YYYY form.
	FetchReport(ctx context.Context, sittingDate string) (*domain.RawHansard, error)

	// FetchURL retrieves a raw report from an explicit URL, with the same
	// retry policy as FetchReport.
	FetchURL(ctx context.Context, rawURL string) (*domain.RawHansard, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client

	maxRetries int
	retryDelay time.Duration
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	baseURL := strings.TrimSpace(os.Getenv("HANSARD_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://sprs.parl.gov.sg/search/getHansardReport/"
	}

	timeoutSec := 30
	if v := os.Getenv("HANSARD_FETCH_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 3
	if v := os.Getenv("HANSARD_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	retryDelayMS := 1000
	if v := os.Getenv("HANSARD_RETRY_DELAY_MS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			retryDelayMS = parsed
		}
	}

	return &client{
		log:        log.With("service", "HansardClient"),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
		retryDelay: time.Duration(retryDelayMS) * time.Millisecond,
	}, nil
}

func (c *client) FetchReport(ctx context.Context, sittingDate string) (*domain.RawHansard, error) {
	sittingDate = strings.TrimSpace(sittingDate)
	if sittingDate == "" {
		return nil, apperrors.BadRequest("sitting date required")
	}
	u := c.baseURL + "?sittingDate=" + url.QueryEscape(sittingDate)
	return c.fetch(ctx, u, sittingDate)
}

func (c *client) FetchURL(ctx context.Context, rawURL string) (*domain.RawHansard, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, apperrors.BadRequest("raw url required")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, apperrors.BadRequest("raw url must be http(s)")
	}
	return c.fetch(ctx, rawURL, rawURL)
}

func (c *client) fetch(ctx context.Context, u string, label string) (*domain.RawHansard, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, apperrors.Upstream("hansard fetch cancelled", ctx.Err())
		}
		if attempt > 0 {
			// retry_delay * 2^attempt, clock starts after the first failure
			sleepFor := c.retryDelay * time.Duration(1<<uint(attempt-1))
			c.log.Warn("hansard fetch retrying",
				"target", label,
				"attempt", attempt,
				"max_retries", c.maxRetries,
				"sleep", sleepFor.String(),
				"error", lastErr.Error(),
			)
			select {
			case <-ctx.Done():
				return nil, apperrors.Upstream("hansard fetch cancelled", ctx.Err())
			case <-time.After(sleepFor):
			}
		}

		raw, retryable, err := c.fetchOnce(ctx, u)
		if err == nil {
			var report domain.RawHansard
			if uErr := json.Unmarshal(raw, &report); uErr != nil {
				return nil, apperrors.Malformed(fmt.Sprintf("hansard report for %s is not valid JSON", label), uErr)
			}
			return &report, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, apperrors.Upstream(fmt.Sprintf("hansard fetch failed after %d attempts", c.maxRetries+1), lastErr)
}

// fetchOnce reports whether the failure is worth another attempt: network
// errors and 5xx yes, 4xx no.
func (c *client) fetchOnce(ctx context.Context, u string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, true, readErr
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("hansard http %d: %s", resp.StatusCode, truncate(string(raw), 200))
	case resp.StatusCode >= 400:
		return nil, false, apperrors.Upstream(fmt.Sprintf("hansard http %d", resp.StatusCode), fmt.Errorf("%s", truncate(string(raw), 200)))
	}
	return raw, false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
