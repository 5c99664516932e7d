package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/smazurov/peqlink/internal/logging"
	"github.com/smazurov/peqlink/internal/metrics"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/version"
)

const networkLabel = "network"

// NetworkOptions configures requests to a LAN device.
type NetworkOptions struct {
	Scheme   string
	Timeout  time.Duration
	RetryMax int
	// Insecure accepts the self-signed certificates these devices ship with.
	Insecure bool
}

// DefaultNetworkOptions returns the settings used when none are configured.
func DefaultNetworkOptions() NetworkOptions {
	return NetworkOptions{
		Scheme:   "https",
		Timeout:  5 * time.Second,
		RetryMax: 2,
		Insecure: true,
	}
}

// NetworkResponse is a device answer. Body is nil when the response could
// not be read, which callers treat as an opaque success.
type NetworkResponse struct {
	StatusCode int
	Body       []byte
}

// NetworkSession issues HTTP API commands to one device.
type NetworkSession struct {
	host   string
	base   string
	client *retryablehttp.Client
	logger *slog.Logger
}

// NewNetworkSession prepares a session for host (IP or host name).
func NewNetworkSession(host string, opts NetworkOptions) *NetworkSession {
	if opts.Scheme == "" {
		opts.Scheme = "https"
	}
	logger := logging.GetLogger("network")

	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.Logger = logger
	client.HTTPClient.Timeout = opts.Timeout
	// hand the last response back once retries run out so callers see
	// the device's status code
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Insecure {
		client.HTTPClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // devices use self-signed certificates
		}
	}

	return &NetworkSession{
		host:   host,
		base:   fmt.Sprintf("%s://%s", opts.Scheme, host),
		client: client,
		logger: logger,
	}
}

// Host returns the device address.
func (n *NetworkSession) Host() string { return n.host }

// HTTPClient exposes the underlying client.
func (n *NetworkSession) HTTPClient() *http.Client { return n.client.HTTPClient }

// Command sends one httpapi.asp command. The command must already be
// escaped for use in a query string.
func (n *NetworkSession) Command(ctx context.Context, command string) (NetworkResponse, error) {
	url := n.base + "/httpapi.asp?command=" + command
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NetworkResponse{}, fmt.Errorf("build request: %w", err)
	}

	n.logger.Debug("Network request", "host", n.host, "command", command)
	start := time.Now()
	metrics.IncReportsSent(networkLabel)
	req.Header.Set("User-Agent", version.UserAgent())
	resp, err := n.client.Do(req)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			metrics.IncTimeouts(networkLabel)
			return NetworkResponse{}, peq.Timeout("network request", err)
		}
		return NetworkResponse{}, peq.Disconnected("network request", err)
	}
	defer resp.Body.Close()
	metrics.IncReportsReceived(networkLabel)
	metrics.ObserveLatency(networkLabel, time.Since(start))

	out := NetworkResponse{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		n.logger.Debug("Network response unreadable", "host", n.host, "error", err)
		return out, nil
	}
	out.Body = body
	n.logger.Debug("Network response", "host", n.host, "status", resp.StatusCode, "body", string(body))
	return out, nil
}

// isTimeout reports whether err is a request or dial deadline, including
// the client's own Timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Close drops idle connections.
func (n *NetworkSession) Close() error {
	n.client.HTTPClient.CloseIdleConnections()
	return nil
}
