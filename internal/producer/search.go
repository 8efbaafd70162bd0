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

// Search issues a single GET against a search endpoint template, with the
// topic substituted as the query term.
type Search struct {
	client      *http.Client
	endpointTpl string // must contain exactly one "%s" for the query term
	log         *logrus.Logger
	counters    counters
	activity    *ring.Buffer[engine.ActivityEntry]
}

// NewSearch builds a Search producer that issues requests against
// endpointTpl, a URL template with one %s placeholder for the query.
func NewSearch(endpointTpl string, timeout time.Duration, log *logrus.Logger) *Search {
	return &Search{
		client:      &http.Client{Timeout: timeout},
		endpointTpl: endpointTpl,
		log:         log,
		activity:    newActivityRing(),
	}
}

func (s *Search) Execute(ctx context.Context, actionTag, topic string) error {
	target := fmt.Sprintf(s.endpointTpl, url.QueryEscape(topic))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		s.counters.recordErr(time.Now())
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.counters.recordErr(time.Now())
		return err
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	now := time.Now()
	if err != nil {
		s.counters.recordErr(now)
		return err
	}

	s.counters.recordOK(int(n), now)
	s.activity.Push(engine.ActivityEntry{
		EpochSeconds: now.Unix(),
		EngineName:   "search",
		ActionTag:    actionTag,
		Detail:       topic,
	})
	return nil
}

func (s *Search) Stats() engine.Stats                             { return s.counters.snapshot(true) }
func (s *Search) RecentActivity(count int) []engine.ActivityEntry { return s.activity.Recent(count) }
func (s *Search) Topics() []string                                { return nil }
