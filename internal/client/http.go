package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pricescout/crawler/internal/config"
	"pricescout/crawler/internal/domain"

	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36"

// newHTTPClient builds the single session a client owns. Every request is
// attempted exactly once.
func newHTTPClient(cfg config.HTTPConfig) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(time.Duration(cfg.Timeout)*time.Second).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "*/*")
}

func newLimiter(requestsPerSecond int) ratelimit.Limiter {
	if requestsPerSecond <= 0 {
		return ratelimit.NewUnlimited()
	}
	return ratelimit.New(requestsPerSecond)
}

// transportError classifies a failed request, keeping parent cancellation visible to errors.Is.
func transportError(ctx context.Context, method, path string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("request cancelled: %w", ctx.Err())
	}
	return fmt.Errorf("%w: %s %s: %w", domain.ErrNetwork, method, path, err)
}

func statusError(method, path string, resp *resty.Response) error {
	return fmt.Errorf("%w: %s %s: HTTP %d", domain.ErrNetwork, method, path, resp.StatusCode())
}

// parsePrice accepts integer or zero-fraction decimal prices, with optional thousands separators.
func parsePrice(raw string) (int64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || strings.Trim(whole, "0123456789") != "" || strings.Trim(frac, "0") != "" {
		return 0, fmt.Errorf("%w: invalid price %q", domain.ErrData, raw)
	}

	price, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid price %q", domain.ErrData, raw)
	}
	return price, nil
}

// escapeNonASCII percent-encodes bytes outside ASCII so a path that already
// carries escapes like %2F reaches the server unchanged.
func escapeNonASCII(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x80 {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}
