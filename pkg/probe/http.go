package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/app-tools/appwarden/pkg/logging"
)

// responseBodyLimit caps how much of a probe response body is drained so the
// connection can be reused without reading an unbounded payload.
const responseBodyLimit = 4 << 10

type httpProber struct {
	config  HTTPConfig
	timeout time.Duration
	client  *http.Client
	id      string
	logger  logging.Logger
}

// Check issues one request against the liveness endpoint. Any 2xx status is
// healthy; everything else, including transport errors and timeouts, is a
// failure with the reason in the message.
func (p *httpProber) Check(ctx context.Context) Result {
	start := time.Now()

	p.logger.Debugf("Performing HTTP probe, id: %s, url: %s", p.id, p.config.URL)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	method := p.config.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, p.config.URL, nil)
	if err != nil {
		return newResult(start, false, fmt.Sprintf("failed to create HTTP request: %v", err))
	}

	for key, value := range p.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return newResult(start, false, fmt.Sprintf("HTTP request failed: %v", err))
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, responseBodyLimit))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return newResult(start, true, fmt.Sprintf("HTTP probe passed: %s", resp.Status))
	}

	return newResult(start, false, fmt.Sprintf("HTTP probe failed: %s", resp.Status))
}
