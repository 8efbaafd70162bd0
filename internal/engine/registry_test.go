package engine

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/coverdrift/coverdrift/internal/planner"
)

type fakeProducer struct {
	fail   bool
	topics []string

	bytes int64
}

func (f *fakeProducer) Execute(ctx context.Context, actionTag, topic string) error {
	if f.fail {
		return errors.New("boom")
	}
	f.bytes += 1024
	return nil
}
func (f *fakeProducer) Stats() Stats                             { return Stats{Bytes: f.bytes} }
func (f *fakeProducer) RecentActivity(count int) []ActivityEntry { return nil }
func (f *fakeProducer) Topics() []string                         { return f.topics }

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestDispatchPrefersFirstEnabledCandidate(t *testing.T) {
	reg := NewRegistry(2, testLogger())
	reg.Register("browse", &fakeProducer{}, true)
	reg.Register("search", &fakeProducer{}, true)

	got := reg.Dispatch(context.Background(), planner.StateReading, "")
	if got != "browse" {
		t.Fatalf("Dispatch() = %q, want %q", got, "browse")
	}
}

func TestDispatchFallsBackWhenFirstDisabled(t *testing.T) {
	reg := NewRegistry(2, testLogger())
	reg.Register("browse", &fakeProducer{}, false)
	reg.Register("search", &fakeProducer{}, true)

	got := reg.Dispatch(context.Background(), planner.StateReading, "")
	if got != "search" {
		t.Fatalf("Dispatch() = %q, want %q", got, "search")
	}
}

func TestDispatchNoOpWhenNoneEnabled(t *testing.T) {
	reg := NewRegistry(2, testLogger())
	reg.Register("browse", &fakeProducer{}, false)

	got := reg.Dispatch(context.Background(), planner.StateReading, "")
	if got != "" {
		t.Fatalf("Dispatch() = %q, want no-op", got)
	}
}

func TestDispatchErrorContainedAndCounted(t *testing.T) {
	reg := NewRegistry(2, testLogger())
	reg.Register("dns", &fakeProducer{fail: true}, true)

	got := reg.Dispatch(context.Background(), planner.StateIdle, "")
	if got != "" {
		t.Fatalf("Dispatch() with failing producer = %q, want no-op on error", got)
	}
	rec := reg.Record("dns")
	snap := rec.Snapshot()
	if snap.Errors != 1 {
		t.Fatalf("Errors = %d, want 1", snap.Errors)
	}
	if snap.Requests != 1 {
		t.Fatalf("Requests = %d, want 1", snap.Requests)
	}
}

func TestToggleIsIdempotentAfterTwoCalls(t *testing.T) {
	reg := NewRegistry(2, testLogger())
	rec := reg.Register("browse", &fakeProducer{}, true)

	first, _ := reg.Toggle("browse")
	second, _ := reg.Toggle("browse")
	if first == second {
		t.Fatalf("two consecutive toggles produced same value twice: %v, %v", first, second)
	}
	if rec.Enabled() != true {
		t.Fatalf("Enabled() after two toggles = %v, want original true", rec.Enabled())
	}
}

func TestActivityRingCapsAt200(t *testing.T) {
	reg := NewRegistry(2, testLogger())
	reg.Register("browse", &fakeProducer{}, true)
	rec := reg.Record("browse")

	for i := 0; i < 300; i++ {
		reg.Dispatch(context.Background(), planner.StateReading, "")
	}
	if got := len(rec.RecentActivity(1000)); got != 200 {
		t.Fatalf("RecentActivity size after 300 pushes = %d, want 200", got)
	}
}

func TestSnapshotBytesMergedFromProducerStats(t *testing.T) {
	reg := NewRegistry(2, testLogger())
	reg.Register("browse", &fakeProducer{}, true)

	reg.Dispatch(context.Background(), planner.StateReading, "")
	reg.Dispatch(context.Background(), planner.StateReading, "")

	rec := reg.Record("browse")
	snap := rec.Snapshot()
	if snap.Bytes != 2048 {
		t.Fatalf("Bytes = %d, want 2048 (two dispatches of 1024 bytes each)", snap.Bytes)
	}
}

func TestSnapshotBytesMergedOnFailureToo(t *testing.T) {
	reg := NewRegistry(2, testLogger())
	reg.Register("dns", &fakeProducer{fail: true, bytes: 512}, true)

	reg.Dispatch(context.Background(), planner.StateIdle, "")

	rec := reg.Record("dns")
	snap := rec.Snapshot()
	if snap.Bytes != 512 {
		t.Fatalf("Bytes = %d, want 512 (producer's own counter, even on a failed dispatch)", snap.Bytes)
	}
}

func TestTopicsUnionAcrossEngines(t *testing.T) {
	reg := NewRegistry(2, testLogger())
	reg.Register("browse", &fakeProducer{topics: []string{"a", "b"}}, true)
	reg.Register("search", &fakeProducer{topics: []string{"b", "c"}}, true)

	got := reg.Topics()
	want := map[string]bool{"a": true, "b": true, "c": true}
	if len(got) != len(want) {
		t.Fatalf("Topics() = %v, want union of size %d", got, len(want))
	}
	for _, topic := range got {
		if !want[topic] {
			t.Fatalf("unexpected topic %q in union", topic)
		}
	}
}
