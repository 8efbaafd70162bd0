package producer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestBrowseExecuteRecordsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	b := NewBrowse(srv.URL, time.Second, testLogger())
	if err := b.Execute(context.Background(), "reading", "vpn"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	stats := b.Stats()
	if stats.Requests != 1 || stats.Errors != 0 {
		t.Fatalf("Stats() = %+v, want 1 request 0 errors", stats)
	}
	if stats.Bytes != int64(len("hello")) {
		t.Fatalf("Bytes = %d, want %d", stats.Bytes, len("hello"))
	}
	if len(b.RecentActivity(10)) != 1 {
		t.Fatalf("RecentActivity size = %d, want 1", len(b.RecentActivity(10)))
	}
}

func TestBrowseExecuteSucceedsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := NewBrowse(srv.URL, time.Second, testLogger())
	// A 500 status is not a transport error; Execute still succeeds from
	// the HTTP client's perspective, matching real browser behavior (the
	// page "loaded", it just served an error body).
	if err := b.Execute(context.Background(), "reading", ""); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
}

func TestBrowseExecuteFailsOnUnreachableHost(t *testing.T) {
	b := NewBrowse("http://127.0.0.1:1", 200*time.Millisecond, testLogger())
	if err := b.Execute(context.Background(), "reading", ""); err == nil {
		t.Fatal("expected error dialing unreachable host")
	}
	if stats := b.Stats(); stats.Errors != 1 {
		t.Fatalf("Errors = %d, want 1", stats.Errors)
	}
}

func TestDNSExecuteResolvesInPool(t *testing.T) {
	d, err := NewDNS(2, func(topic string) string { return "localhost" }, testLogger())
	if err != nil {
		t.Fatalf("NewDNS() error = %v", err)
	}
	defer d.Close()

	if err := d.Execute(context.Background(), "idle", ""); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if stats := d.Stats(); stats.Requests != 1 {
		t.Fatalf("Requests = %d, want 1", stats.Requests)
	}
}

func TestDNSExecuteRespectsCancellation(t *testing.T) {
	d, err := NewDNS(1, func(topic string) string { return "localhost" }, testLogger())
	if err != nil {
		t.Fatalf("NewDNS() error = %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Execute(ctx, "idle", ""); err == nil {
		t.Fatal("expected error for already-cancelled context")
	}
}
