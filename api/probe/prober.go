package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
)

// Result is the classified outcome of a single probe attempt.
type Result struct {
	Up         bool
	StatusCode *int     // nil when no response arrived
	LatencyMs  *float64 // nil when no response arrived
	Error      *string  // nil when up
}

// Prober issues one outbound HTTP check per call. It holds a shared
// transport; per-probe timeouts come from the monitor, not the client.
type Prober struct {
	client *http.Client
}

func New() *Prober {
	return &Prober{
		client: &http.Client{
			// Redirects are followed; per-probe deadline is set via context.
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Check performs one GET against the target and classifies the result.
// A status in [200, 400) is up. No retries; each call is one attempt.
func (p *Prober) Check(ctx context.Context, target string, timeout time.Duration) Result {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return down(nil, nil, err.Error())
	}

	resp, err := p.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		return down(nil, nil, classify(err))
	}
	resp.Body.Close()

	latency := float64(elapsed.Microseconds()) / 1000.0
	code := resp.StatusCode
	if code >= 200 && code < 400 {
		return Result{Up: true, StatusCode: &code, LatencyMs: &latency}
	}
	msg := "HTTP " + resp.Status
	return down(&code, &latency, msg)
}

func down(code *int, latency *float64, msg string) Result {
	return Result{Up: false, StatusCode: code, LatencyMs: latency, Error: &msg}
}

// classify maps transport failures onto the two stable error strings
// the evaluator and API consumers key on.
func classify(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) {
		return "connection error"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// url.Error wraps the transport cause; dial and DNS failures
		// land here when the inner type is not one of the above.
		if urlErr.Timeout() {
			return "timeout"
		}
		return "connection error"
	}
	return err.Error()
}
