package api

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jarcoal/httpmock"

	"github.com/smazurov/peqlink/internal/api/models"
	"github.com/smazurov/peqlink/internal/connector"
	"github.com/smazurov/peqlink/internal/events"
	"github.com/smazurov/peqlink/internal/filterlist"
	"github.com/smazurov/peqlink/internal/logging"
	"github.com/smazurov/peqlink/internal/orchestrator"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/smazurov/peqlink/internal/registry"
	"github.com/smazurov/peqlink/internal/transport"
)

const wiimURL = "https://192.168.1.60/httpapi.asp"

// wiimConnectors opens WiiM sessions whose HTTP client is mocked.
type wiimConnectors struct {
	net *connector.Network
}

func (c *wiimConnectors) Candidates(ctx context.Context, _ peq.TransportKind) ([]connector.Candidate, error) {
	return c.net.Candidates(ctx)
}

func (c *wiimConnectors) Connect(_ context.Context, req connector.Request) (*connector.DeviceSession, error) {
	if req.IP == "" {
		return nil, peq.NewDeviceError(peq.ErrCodeInvalidParams, "no address", nil)
	}
	n := transport.NewNetworkSession(req.IP, transport.NetworkOptions{Scheme: "https", Timeout: time.Second})
	httpmock.ActivateNonDefault(n.HTTPClient())
	return c.net.Session("WiiM", n)
}

type testServer struct {
	*httptest.Server
	bus  *events.Bus
	list *filterlist.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	t.Cleanup(httpmock.DeactivateAndReset)

	reg := registry.New()
	bus := events.New()
	list := filterlist.New(bus)
	orch := orchestrator.New(orchestrator.Options{
		Connectors: &wiimConnectors{net: connector.NewNetwork(connector.Options{Registry: reg})},
		FilterList: list,
		Bus:        bus,
	})
	server := NewServer(&Options{
		AuthUsername: "test",
		AuthPassword: "test",
		Orchestrator: orch,
		FilterList:   list,
		Registry:     reg,
		EventBus:     bus,
	})
	ts := httptest.NewServer(server.GetMux())
	t.Cleanup(ts.Close)
	t.Cleanup(orch.Close)
	return &testServer{Server: ts, bus: bus, list: list}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = strings.NewReader(string(data))
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	req.SetBasicAuth("test", "test")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestPublicEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/health", "/api/version"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d without credentials", path, resp.StatusCode)
		}
	}
}

func TestRootRedirectsToDocs(t *testing.T) {
	ts := newTestServer(t)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/docs" {
		t.Errorf("GET / = %d %q, want redirect to /docs", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, err = client.Get(ts.URL + "/api/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /api/nope = %d, want 404", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/session/push", nil)
	req.Header.Set("Origin", "http://editor.local")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Headers"); !strings.Contains(got, "Last-Event-ID") {
		t.Errorf("Allow-Headers = %q", got)
	}
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t)
	good := base64.StdEncoding.EncodeToString([]byte("test:test"))
	bad := base64.StdEncoding.EncodeToString([]byte("test:nope"))

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"none", "", "", http.StatusUnauthorized},
		{"wrong password", "Basic " + bad, "", http.StatusUnauthorized},
		{"bearer", "Bearer abc", "", http.StatusUnauthorized},
		{"header", "Basic " + good, "", http.StatusOK},
		{"query", "", "?auth=" + good, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/filters"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{peq.ErrUnsupportedDevice, http.StatusUnprocessableEntity},
		{peq.Timeout("pull", nil), http.StatusGatewayTimeout},
		{peq.Disconnected("push", nil), http.StatusGone},
		{peq.ErrProtocolDecode, http.StatusBadGateway},
		{peq.ErrNotConnected, http.StatusConflict},
		{peq.ErrSessionActive, http.StatusConflict},
		{peq.NewDeviceError(peq.ErrCodeInvalidParams, "bad slot", nil), http.StatusBadRequest},
		{peq.ErrExperimental, http.StatusPreconditionFailed},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		var se huma.StatusError
		if !errors.As(toHTTPError(tt.err), &se) {
			t.Fatalf("toHTTPError(%v) is not a status error", tt.err)
		}
		if se.GetStatus() != tt.want {
			t.Errorf("toHTTPError(%v) status = %d, want %d", tt.err, se.GetStatus(), tt.want)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)

	var cmds []string
	httpmock.RegisterResponder(http.MethodGet, wiimURL, func(req *http.Request) (*http.Response, error) {
		name, _, _ := strings.Cut(req.URL.Query().Get("command"), ":")
		cmds = append(cmds, name)
		return httpmock.NewStringResponse(http.StatusOK, `{"status":"OK"}`), nil
	})

	if code := ts.do(t, http.MethodGet, "/api/session", nil, nil); code != http.StatusConflict {
		t.Errorf("GET /api/session before connect = %d", code)
	}

	var sess models.SessionData
	code := ts.do(t, http.MethodPost, "/api/session", map[string]any{"transport": "network", "ip": "192.168.1.60"}, &sess)
	if code != http.StatusOK {
		t.Fatalf("POST /api/session = %d", code)
	}
	if sess.Handler != registry.HandlerWiiM || sess.CurrentSlot == nil || *sess.CurrentSlot != 0 {
		t.Errorf("session = %+v", sess)
	}
	var health models.HealthData
	if ts.do(t, http.MethodGet, "/api/health", nil, &health); !health.Connected {
		t.Errorf("health after connect = %+v", health)
	}
	if code := ts.do(t, http.MethodPost, "/api/session", map[string]any{"transport": "network", "ip": "192.168.1.61"}, nil); code != http.StatusConflict {
		t.Errorf("second POST /api/session = %d, want 409", code)
	}

	// Nothing to push yet
	if code := ts.do(t, http.MethodPost, "/api/session/push", map[string]any{"slot_id": 0}, nil); code != http.StatusBadRequest {
		t.Errorf("push of an empty list = %d, want 400", code)
	}

	set := peq.FilterSet{Filters: []peq.Filter{
		{Type: peq.Peaking, Freq: 1000, Gain: -4, Q: 1},
		{Type: peq.Peaking, Freq: 50000, Gain: 2, Q: 1},
	}}
	var stored peq.FilterSet
	if code := ts.do(t, http.MethodPut, "/api/filters", set, &stored); code != http.StatusOK {
		t.Fatalf("PUT /api/filters = %d", code)
	}
	if len(stored.Filters) != 2 {
		t.Errorf("stored filters = %+v", stored)
	}

	var pushed orchestrator.PushOutcome
	if code := ts.do(t, http.MethodPost, "/api/session/push", map[string]any{"slot_id": 0}, &pushed); code != http.StatusOK {
		t.Fatalf("POST /api/session/push = %d", code)
	}
	if len(pushed.Filters) != 10 || pushed.Filters[1].Freq != peq.DefaultFreq || pushed.Preamp != -2 {
		t.Errorf("push outcome = %+v", pushed)
	}
	if len(pushed.Warnings) != 1 || pushed.Warnings[0].Code != peq.WarnValuesClamped {
		t.Errorf("warnings = %+v", pushed.Warnings)
	}
	if len(cmds) == 0 {
		t.Error("push sent no commands")
	}

	var slot models.SelectSlotResult
	if code := ts.do(t, http.MethodPut, "/api/session/slot", map[string]any{"slot_id": -1}, &slot); code != http.StatusOK {
		t.Fatalf("PUT /api/session/slot = %d", code)
	}
	if slot.Enabled {
		t.Errorf("slot -1 reported enabled")
	}

	var gone models.DisconnectData
	ts.do(t, http.MethodDelete, "/api/session", nil, &gone)
	if !gone.Disconnected {
		t.Errorf("DELETE /api/session = %+v", gone)
	}
	ts.do(t, http.MethodDelete, "/api/session", nil, &gone)
	if gone.Disconnected {
		t.Errorf("second DELETE /api/session = %+v", gone)
	}
}

func TestConnectWithoutAddress(t *testing.T) {
	ts := newTestServer(t)
	if code := ts.do(t, http.MethodPost, "/api/session", map[string]any{"transport": "network"}, nil); code != http.StatusBadRequest {
		t.Errorf("connect without address = %d, want 400", code)
	}
}

func TestDevicesAndRegistry(t *testing.T) {
	ts := newTestServer(t)

	var devices models.DevicesData
	if code := ts.do(t, http.MethodGet, "/api/devices?transport=network", nil, &devices); code != http.StatusOK {
		t.Fatalf("GET /api/devices = %d", code)
	}
	if devices.Count != 1 || devices.Devices[0].Vendor != "WiiM" {
		t.Errorf("devices = %+v", devices)
	}
	if code := ts.do(t, http.MethodGet, "/api/devices?transport=bluetooth", nil, nil); code != http.StatusUnprocessableEntity {
		t.Errorf("unknown transport = %d", code)
	}

	var reg models.RegistryData
	if code := ts.do(t, http.MethodGet, "/api/registry", nil, &reg); code != http.StatusOK {
		t.Fatalf("GET /api/registry = %d", code)
	}
	if len(reg.Vendors) == 0 || len(reg.Entries) < len(reg.Vendors) {
		t.Errorf("registry has %d vendors and %d entries", len(reg.Vendors), len(reg.Entries))
	}
}

func TestReplaceFiltersRejectsUnknownType(t *testing.T) {
	ts := newTestServer(t)
	set := peq.FilterSet{Filters: []peq.Filter{{Type: "NOTCH", Freq: 1000, Q: 1}}}
	if code := ts.do(t, http.MethodPut, "/api/filters", set, nil); code != http.StatusBadRequest {
		t.Errorf("PUT /api/filters = %d, want 400", code)
	}
}

func TestLogs(t *testing.T) {
	logging.Initialize(logging.Config{Level: "info", Format: "text"})
	ts := newTestServer(t)

	logging.GetLogger("hid").Warn("Report timed out", "op", "pull")
	logging.GetLogger("registry").Info("Registry catalogue updated")

	var logs models.LogsData
	if code := ts.do(t, http.MethodGet, "/api/logs?module=hid&level=warn", nil, &logs); code != http.StatusOK {
		t.Fatalf("GET /api/logs = %d", code)
	}
	if logs.Count == 0 || logs.Entries[logs.Count-1].Message != "Report timed out" {
		t.Fatalf("logs = %+v", logs)
	}
	for _, e := range logs.Entries {
		if e.Module != "hid" || e.Seq == 0 {
			t.Errorf("unexpected entry %+v", e)
		}
	}
	if !strings.Contains(logs.Text, "[WARN] [hid] Report timed out op=pull") {
		t.Errorf("text = %q", logs.Text)
	}
}

func readData(t *testing.T, body io.Reader) <-chan string {
	t.Helper()
	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data:") {
				lines <- line
			}
		}
	}()
	return lines
}

func TestSSEConnectionAndEvents(t *testing.T) {
	ts := newTestServer(t)

	credentials := base64.StdEncoding.EncodeToString([]byte("test:test"))
	resp, err := http.Get(fmt.Sprintf("%s/api/events?auth=%s", ts.URL, credentials))
	if err != nil {
		t.Fatalf("Failed to connect to SSE: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("Expected SSE content type, got %s", resp.Header.Get("Content-Type"))
	}

	lines := readData(t, resp.Body)
	select {
	case msg := <-lines:
		if !strings.Contains(msg, "SSE connection established") {
			t.Errorf("Expected connection established message, got: %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for initial SSE message")
	}

	ts.bus.Notify(events.LevelWarning, peq.WarnFiltersTruncated, "only first 10 will be applied", 10*time.Second)

	select {
	case msg := <-lines:
		if !strings.Contains(msg, peq.WarnFiltersTruncated) || !strings.Contains(msg, `"duration_ms":10000`) {
			t.Errorf("notification = %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for notification")
	}

	if err := ts.list.Replace(peq.FilterSet{Filters: []peq.Filter{{Type: peq.Peaking, Freq: 100, Q: 1}}}); err != nil {
		t.Fatal(err)
	}
	select {
	case msg := <-lines:
		if !strings.Contains(msg, `"source":"user"`) {
			t.Errorf("filter list event = %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for filter list event")
	}
}
