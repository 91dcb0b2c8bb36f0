package client

import (
	"net/http/httptest"
	"testing"

	"pricescout/crawler/internal/config"
)

func testHTTPConfig(srv *httptest.Server) config.HTTPConfig {
	return config.HTTPConfig{
		BaseURL: srv.URL,
		Timeout: 5,
	}
}

func closeClient(t *testing.T, c interface{ Close() error }) {
	t.Helper()
	t.Cleanup(func() { c.Close() }) //nolint:errcheck
}
