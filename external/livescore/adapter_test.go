package livescore

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/ipl-snapshot/external/upstream"
	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
	"github.com/riskibarqy/ipl-snapshot/internal/normalizer"
)

var fixtureNow = time.Date(2024, 4, 21, 15, 0, 0, 0, time.UTC)

func serveBody(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != scorePath || r.URL.Query().Get("id") != "current" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fixture(t *testing.T, name string) string {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return string(raw)
}

func newTestAdapter(baseURL string) *Adapter {
	client := upstream.New(upstream.Config{Name: SourceName, BaseURL: baseURL, Timeout: time.Second})
	return New(client, normalizer.MustDefaultCanonicalizer(), Config{Clock: clockwork.NewFakeClockAt(fixtureNow)})
}

func TestAdapter_LeagueMatchInProgress(t *testing.T) {
	t.Parallel()

	srv := serveBody(t, http.StatusOK, fixture(t, "score_ipl.json"))
	partial, err := newTestAdapter(srv.URL).FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if got := partial.Sections(); len(got) != 1 || got[0] != tournament.SectionLiveMatch {
		t.Fatalf("expected only the live section, got %v", got)
	}

	live := partial.LiveMatch
	if live == nil {
		t.Fatalf("expected live match")
	}
	if live.ID != "livescore-kkr-rcb-2024-04-21" || live.Date != "2024-04-21" || live.Time != "20:30" {
		t.Fatalf("unexpected live match identity %+v", live.Match)
	}
	if live.Team1Score == nil || live.Team1Score.Runs != 187 || live.Team2Score == nil || live.Team2Score.Wickets != 4 {
		t.Fatalf("unexpected scores %+v %+v", live.Team1Score, live.Team2Score)
	}
	if live.RequiredRunRate == nil || math.Abs(*live.RequiredRunRate-32.0*6/22) > 1e-9 {
		t.Fatalf("unexpected required run rate %v", live.RequiredRunRate)
	}
	if len(live.Commentary) != 1 || live.Commentary[0].Time != "20:30" {
		t.Fatalf("unexpected commentary %+v", live.Commentary)
	}
}

func TestAdapter_OtherCompetitionMeansNothingLive(t *testing.T) {
	t.Parallel()

	srv := serveBody(t, http.StatusOK, fixture(t, "score_other.json"))
	partial, err := newTestAdapter(srv.URL).FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if !partial.LiveMatchKnown || partial.LiveMatch != nil {
		t.Fatalf("expected confirmed absence, got %+v", partial.LiveMatch)
	}
}

func TestAdapter_Failures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "upstream error", status: http.StatusInternalServerError, body: `oops`, want: tournament.ErrFetchFailed},
		{name: "error field", status: http.StatusOK, body: `{"error":"no live match"}`, want: tournament.ErrFetchFailed},
		{name: "bad json", status: http.StatusOK, body: `{"title":`, want: tournament.ErrParseFailed},
		{name: "bad teams", status: http.StatusOK, body: `{"title":"IPL 2024","teams":"KKR"}`, want: tournament.ErrParseFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := serveBody(t, tc.status, tc.body)
			_, err := newTestAdapter(srv.URL).FetchSnapshot(context.Background())
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
