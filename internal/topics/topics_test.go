package topics

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestLoadFallsBackToBuiltinWhenDirMissing(t *testing.T) {
	c := Load("/nonexistent/path/for/test", 1, testLogger())
	if len(c.All()) == 0 {
		t.Fatal("expected built-in catalogue terms when wordlist dir is absent")
	}
}

func TestRandomQueryReturnsNonEmpty(t *testing.T) {
	c := Load("", 2, testLogger())
	for i := 0; i < 50; i++ {
		if got := c.RandomQuery(""); got == "" {
			t.Fatal("RandomQuery returned empty string")
		}
	}
}

func TestQueriesForObsessionContainsTopic(t *testing.T) {
	c := Load("", 3, testLogger())
	queries := c.QueriesForObsession("vpn", 5)
	if len(queries) != 5 {
		t.Fatalf("got %d queries, want 5", len(queries))
	}
	for _, q := range queries {
		if q == "" {
			t.Fatal("empty query generated")
		}
	}
}
