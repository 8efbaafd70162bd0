package producer

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coverdrift/coverdrift/internal/engine"
	"github.com/coverdrift/coverdrift/internal/ring"
)

// AdClick issues a single GET against a click-through URL. Registered
// separately from Browse so it can be toggled independently. It is not
// part of any state's preference list (see §4.5's table), so
// Registry.Dispatch never invokes it, whether or not it is enabled.
type AdClick struct {
	client   *http.Client
	url      string
	log      *logrus.Logger
	counters counters
	activity *ring.Buffer[engine.ActivityEntry]
}

// NewAdClick builds an AdClick producer that issues requests against url.
func NewAdClick(url string, timeout time.Duration, log *logrus.Logger) *AdClick {
	return &AdClick{
		client:   &http.Client{Timeout: timeout},
		url:      url,
		log:      log,
		activity: newActivityRing(),
	}
}

func (a *AdClick) Execute(ctx context.Context, actionTag, topic string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		a.counters.recordErr(time.Now())
		return err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.counters.recordErr(time.Now())
		return err
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	now := time.Now()
	if err != nil {
		a.counters.recordErr(now)
		return err
	}

	a.counters.recordOK(int(n), now)
	a.activity.Push(engine.ActivityEntry{
		EpochSeconds: now.Unix(),
		EngineName:   "adclick",
		ActionTag:    actionTag,
		Detail:       topic,
	})
	return nil
}

func (a *AdClick) Stats() engine.Stats                             { return a.counters.snapshot(true) }
func (a *AdClick) RecentActivity(count int) []engine.ActivityEntry { return a.activity.Recent(count) }
func (a *AdClick) Topics() []string                                { return nil }
