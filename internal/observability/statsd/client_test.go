package statsd

import (
	"net"
	"strings"
	"testing"
	"time"
)

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" grant/issue ":  "grant_issue",
		"store..retry":   "store.retry",
		"job:transition": "job_transition",
		".":              "",
	}

	for input, want := range tests {
		if got := normalizeMetricName(input); got != want {
			t.Fatalf("normalizeMetricName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " collector "}
	local := map[string]string{"result": " success ", "": "ignored", "env": "stage"}

	got := formatTags(global, local)
	want := "|#env:stage,result:success,service:collector"
	if got != want {
		t.Fatalf("formatTags mismatch\n got: %q\nwant: %q", got, want)
	}
	if got := formatTags(nil, nil); got != "" {
		t.Fatalf("formatTags(nil, nil) = %q, want empty string", got)
	}
}

func TestClientWritesLines(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp listener unavailable: %v", err)
	}
	defer pc.Close()

	client, err := NewClient(Config{Enabled: true, Address: pc.LocalAddr().String(), Prefix: ".disclosures."})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer client.Close()

	client.Count("batch.items", 3, map[string]string{"result": "created"})
	client.Timing("job.duration", 1500*time.Microsecond, nil)

	buf := make([]byte, 512)
	var lines []string
	for range 2 {
		_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, rerr := pc.ReadFrom(buf)
		if rerr != nil {
			t.Fatalf("read: %v", rerr)
		}
		lines = append(lines, string(buf[:n]))
	}

	got := strings.Join(lines, "\n")
	if !strings.Contains(got, "disclosures.batch.items:3|c|#result:created") {
		t.Fatalf("missing counter line in %q", got)
	}
	if !strings.Contains(got, "disclosures.job.duration:1.5|ms") {
		t.Fatalf("missing timing line in %q", got)
	}
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{conn: clientConn}
	if !client.Enabled() {
		t.Fatal("expected client.Enabled to report true with active connection")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client.Enabled to report false after Close")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close (second call) error: %v", err)
	}

	// Writes after close are dropped silently.
	client.Count("x", 1, nil)

	var nilClient *Client
	nilClient.Count("x", 1, nil)
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
}

func TestNewClientDisabled(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client to stay disabled when address is empty")
	}
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	if err == nil || !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("expected statsd dial error, got %v", err)
	}
}
