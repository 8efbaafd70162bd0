package producer

import (
	"context"
	"net"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"github.com/coverdrift/coverdrift/internal/engine"
	"github.com/coverdrift/coverdrift/internal/ring"
)

// DNS resolves a hostname per Execute call. Resolution runs inside a
// panjf2000/ants goroutine pool so a slow or hanging resolver never blocks
// the scheduler's single cooperative task, per §5's explicit requirement
// that "DNS resolution inside the DNS producer must run in a worker pool."
type DNS struct {
	resolver *net.Resolver
	pool     *ants.Pool
	hostFor  func(topic string) string
	log      *logrus.Logger
	counters counters
	activity *ring.Buffer[engine.ActivityEntry]
}

// NewDNS builds a DNS producer with a worker pool of the given size.
// hostFor maps a topic string to a hostname to resolve; callers with no
// topic-to-host mapping may pass a function that ignores its argument and
// returns a fixed rotation of plausible lookup names.
func NewDNS(poolSize int, hostFor func(topic string) string, log *logrus.Logger) (*DNS, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	return &DNS{
		resolver: net.DefaultResolver,
		pool:     pool,
		hostFor:  hostFor,
		log:      log,
		activity: newActivityRing(),
	}, nil
}

// Close releases the worker pool's goroutines.
func (d *DNS) Close() {
	d.pool.Release()
}

func (d *DNS) Execute(ctx context.Context, actionTag, topic string) error {
	host := d.hostFor(topic)

	type result struct {
		err error
	}
	done := make(chan result, 1)

	err := d.pool.Submit(func() {
		_, lookupErr := d.resolver.LookupHost(ctx, host)
		select {
		case done <- result{err: lookupErr}:
		default:
		}
	})
	if err != nil {
		d.counters.recordErr(time.Now())
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-done:
		now := time.Now()
		if r.err != nil {
			d.counters.recordErr(now)
			return r.err
		}
		d.counters.recordOK(0, now)
		d.activity.Push(engine.ActivityEntry{
			EpochSeconds: now.Unix(),
			EngineName:   "dns",
			ActionTag:    actionTag,
			Detail:       host,
		})
		return nil
	}
}

func (d *DNS) Stats() engine.Stats                             { return d.counters.snapshot(true) }
func (d *DNS) RecentActivity(count int) []engine.ActivityEntry { return d.activity.Recent(count) }
func (d *DNS) Topics() []string                                { return nil }
