package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/primus/primacron/internal/config"
	"github.com/primus/primacron/internal/connection"
	"github.com/primus/primacron/internal/directory"
	"github.com/primus/primacron/internal/gatewayerr"
	"github.com/primus/primacron/internal/session"
	"github.com/primus/primacron/internal/validate"
)

func testConfig() *config.Config {
	return &config.Config{
		Broadcast:  "/primacron/broadcast",
		Endpoint:   "/stream/",
		Namespace:  "ns-test",
		Timeout:    900,
		Address:    "127.0.0.1",
		ListenAddr: ":0",
	}
}

func TestNodeDeliverPipeWritesToConnection(t *testing.T) {
	n := New(testConfig(), directory.NewMemory())
	sender := &recordingSender{}
	record := connection.NewRecord("conn-1", "alice", "s1", nil)
	n.connMgr.Open(record, sender)

	n.DeliverPipe("conn-1", "hello")

	if len(sender.sent) != 1 || string(sender.sent[0]) != "hello" {
		t.Fatalf("expected pipe write, got %v", sender.sent)
	}
}

func TestNodeDeliverPipeUnknownConnectionNoOp(t *testing.T) {
	n := New(testConfig(), directory.NewMemory())
	n.DeliverPipe("nosuch", "hello") // must not panic
}

func TestNodeDeliverTailAppendsAddress(t *testing.T) {
	n := New(testConfig(), directory.NewMemory())
	record := connection.NewRecord("conn-1", "alice", "s1", nil)
	n.connMgr.Open(record, &recordingSender{})

	n.DeliverTail("conn-1", []string{"http://peer@conn-9"})

	if got := record.Tail(); len(got) != 1 || got[0] != "http://peer@conn-9" {
		t.Fatalf("expected tail to contain the new address, got %v", got)
	}
}

func TestNodeDeliverMessageEncodesWithCodec(t *testing.T) {
	n := New(testConfig(), directory.NewMemory())
	sender := &recordingSender{}
	n.connMgr.Open(connection.NewRecord("conn-1", "alice", "s1", nil), sender)

	n.DeliverMessage("conn-1", map[string]any{"type": "ping"})

	if len(sender.sent) != 1 {
		t.Fatalf("expected one encoded write, got %v", sender.sent)
	}
}

func TestNodeHas(t *testing.T) {
	n := New(testConfig(), directory.NewMemory())
	if n.Has("conn-1") {
		t.Fatal("expected Has to report false before connect")
	}
	n.connMgr.Open(connection.NewRecord("conn-1", "alice", "s1", nil), &recordingSender{})
	if !n.Has("conn-1") {
		t.Fatal("expected Has to report true after connect")
	}
}

func TestBootstrapRegistersInSessionDirectory(t *testing.T) {
	n := New(testConfig(), directory.NewMemory())
	n.genSessionID = func() string { return "fixed-session" }

	record, err := n.bootstrap(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if record.Account != "alice" || record.Session != "fixed-session" {
		t.Fatalf("unexpected record: %+v", record)
	}

	nodeURL, connID, ok, err := n.dir.Lookup(context.Background(), "alice", "fixed-session")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || nodeURL != n.nodeURL || connID != record.ID {
		t.Fatalf("expected directory entry to match bootstrap, got nodeURL=%q connID=%q ok=%v", nodeURL, connID, ok)
	}
}

func TestMuxHealthz(t *testing.T) {
	n := New(testConfig(), directory.NewMemory())
	srv := httptest.NewServer(n.mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMuxMetrics(t *testing.T) {
	n := New(testConfig(), directory.NewMemory())
	srv := httptest.NewServer(n.mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMuxExcludesMetricsWhenMetricsAddrSet(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsAddr = ":0"
	n := New(cfg, directory.NewMemory())
	srv := httptest.NewServer(n.mux())
	defer srv.Close()

	for _, path := range []string{"/metrics", "/healthz"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected %s on the main listener to fall through to 400 when MetricsAddr is set, got %d", path, resp.StatusCode)
		}
	}
}

func TestMetricsMuxServesHealthzAndMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsAddr = ":0"
	n := New(cfg, directory.NewMemory())
	srv := httptest.NewServer(n.metricsMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from the metrics listener's /healthz, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from the metrics listener's /metrics, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for anything else on the metrics listener, got %d", resp.StatusCode)
	}
}

func TestMuxFallbackWithoutRedirectIs400(t *testing.T) {
	n := New(testConfig(), directory.NewMemory())
	srv := httptest.NewServer(n.mux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestMuxFallbackRedirects(t *testing.T) {
	cfg := testConfig()
	cfg.Redirect = "https://example.invalid/"
	n := New(cfg, directory.NewMemory())
	srv := httptest.NewServer(n.mux())
	defer srv.Close()

	client := &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMovedPermanently {
		t.Fatalf("expected 301, got %d", resp.StatusCode)
	}
}

// TestFullRoundTripSelfTailDelivery exercises the whole chain end to end: a
// client attaches over the realtime transport, is registered as its own
// tailgator, sends a validated message, and observes the tail fan-out (an
// HTTP PUT back to this same node) delivered back down its own socket.
func TestFullRoundTripSelfTailDelivery(t *testing.T) {
	cfg := testConfig()
	n := New(cfg, directory.NewMemory())
	n.genSessionID = func() string { return "s1" }
	n.RegisterValidator("echo", func(ctx context.Context, data []any, complete validate.Complete) {
		complete(nil, true, nil)
	}, 1)

	srv := httptest.NewServer(n.mux())
	defer srv.Close()
	n.nodeURL = srv.URL

	wsURL := "ws" + srv.URL[len("http"):] + "/stream/?account=alice"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dialing transport: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Give the server a moment to run bootstrap before we register the
	// self-tailgator address, since the connection id is only known once
	// bootstrap has run.
	time.Sleep(50 * time.Millisecond)

	record, _, ok := n.connMgr.BySession("alice", "s1")
	if !ok {
		t.Fatal("expected the connection to be attached under (alice, s1)")
	}
	self := session.Address(srv.URL, record.ID)
	if err := n.dir.AddTailgator(ctx, "alice", "s1", self); err != nil {
		t.Fatal(err)
	}
	// AddTailgator only writes the directory set, which the live connection
	// read once at bootstrap; forward the address to it as an array
	// broadcast so its tail list picks it up.
	if _, err := n.peer.Send(ctx, srv.URL, record.ID, []string{self}); err != nil {
		t.Fatal(err)
	}

	const payload = `{"event":"echo","args":[]}`
	if err := conn.Write(ctx, websocket.MessageText, []byte(payload)); err != nil {
		t.Fatal(err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("reading tail delivery: %v", err)
	}
	if string(data) != payload {
		t.Fatalf("expected the original payload echoed back, got %q", data)
	}
}

func TestHandleInboundEventShapedRoutesArgsToEvent(t *testing.T) {
	n := New(testConfig(), directory.NewMemory())
	record := connection.NewRecord("conn-1", "alice", "s1", nil)
	n.connMgr.Open(record, &recordingSender{})

	var gotData []any
	n.RegisterValidator("chat", func(ctx context.Context, data []any, complete validate.Complete) {
		gotData = data
		complete(nil, true, nil)
	}, 2)

	raw := []byte(`{"event":"chat","args":["hello"]}`)
	n.handleInbound(context.Background(), record, raw)

	if len(gotData) != 1 || gotData[0] != "hello" {
		t.Fatalf("expected args to reach the chat validator, got %v", gotData)
	}
}

func TestHandleInboundNonEventShapedRoutesToMessage(t *testing.T) {
	n := New(testConfig(), directory.NewMemory())
	record := connection.NewRecord("conn-1", "alice", "s1", nil)
	n.connMgr.Open(record, &recordingSender{})

	var gotData []any
	n.RegisterValidator("message", func(ctx context.Context, data []any, complete validate.Complete) {
		gotData = data
		complete(nil, true, nil)
	}, 2)

	raw := []byte(`{"type":"ping"}`)
	n.handleInbound(context.Background(), record, raw)

	if len(gotData) != 1 {
		t.Fatalf("expected the whole decoded object passed as one data argument, got %v", gotData)
	}
	decoded, ok := gotData[0].(map[string]any)
	if !ok || decoded["type"] != "ping" {
		t.Fatalf("expected the decoded object to round-trip unchanged, got %v", gotData[0])
	}
}

func TestHandleInboundNonObjectIsInvalid(t *testing.T) {
	n := New(testConfig(), directory.NewMemory())
	record := connection.NewRecord("conn-1", "alice", "s1", nil)
	n.connMgr.Open(record, &recordingSender{})

	var gotKind gatewayerr.Kind
	n.onError = func(ev gatewayerr.Event) { gotKind = ev.Kind }

	n.handleInbound(context.Background(), record, []byte(`["not", "an", "object"]`))

	if gotKind != gatewayerr.KindInvalid {
		t.Fatalf("expected error::invalid for a non-object message, got %q", gotKind)
	}
}

type recordingSender struct {
	sent [][]byte
}

func (r *recordingSender) Send(data []byte) error {
	r.sent = append(r.sent, data)
	return nil
}

func (r *recordingSender) Close() error { return nil }
