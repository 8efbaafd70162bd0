package producer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coverdrift/coverdrift/internal/engine"
	"github.com/coverdrift/coverdrift/internal/ring"
)

// Browse issues a single outbound GET per Execute call against a URL built
// from the topic argument, the way a human idly clicking through search
// results would generate a page load. SetViewportHint stores viewport
// dimensions, but Execute does not use them and the control surface does
// not call it: full browser automation is out of scope here, per §1's
// non-goals for traffic producers.
type Browse struct {
	client   *http.Client
	baseURL  string
	log      *logrus.Logger
	counters counters
	activity *ring.Buffer[engine.ActivityEntry]

	viewportW, viewportH int
}

// NewBrowse builds a Browse producer that issues requests against baseURL
// with the topic appended as a query parameter.
func NewBrowse(baseURL string, timeout time.Duration, log *logrus.Logger) *Browse {
	return &Browse{
		client:   &http.Client{Timeout: timeout},
		baseURL:  baseURL,
		log:      log,
		activity: newActivityRing(),
	}
}

// SetViewportHint records the operator-supplied viewport dimensions for
// future requests.
func (b *Browse) SetViewportHint(width, height int) {
	b.viewportW, b.viewportH = width, height
}

func (b *Browse) Execute(ctx context.Context, actionTag, topic string) error {
	target := b.baseURL
	if topic != "" {
		target = fmt.Sprintf("%s?q=%s", b.baseURL, url.QueryEscape(topic))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		b.counters.recordErr(time.Now())
		return err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		b.counters.recordErr(time.Now())
		return err
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	now := time.Now()
	if err != nil {
		b.counters.recordErr(now)
		return err
	}

	b.counters.recordOK(int(n), now)
	b.activity.Push(engine.ActivityEntry{
		EpochSeconds: now.Unix(),
		EngineName:   "browse",
		ActionTag:    actionTag,
		Detail:       topic,
	})
	return nil
}

func (b *Browse) Stats() engine.Stats                             { return b.counters.snapshot(true) }
func (b *Browse) RecentActivity(count int) []engine.ActivityEntry { return b.activity.Recent(count) }
func (b *Browse) Topics() []string                                { return nil }
