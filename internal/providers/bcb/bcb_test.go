package bcb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/carteira/internal/providers"
)

func TestClient_Latest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bcdata.sgs.12/dados/ultimos/1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("formato") != "json" {
			t.Errorf("missing formato=json")
		}
		w.Write([]byte(`[{"data":"10/05/2024","valor":"0.040168"}]`))
	}))
	defer srv.Close()

	obs, err := NewClient(srv.URL, srv.Client()).Latest(context.Background(), SeriesCDI)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if obs.Date != "10/05/2024" || obs.Value != "0.040168" {
		t.Errorf("unexpected observation %+v", obs)
	}
}

func TestClient_Latest_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, srv.Client()).Latest(context.Background(), SeriesCDI); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestClient_BufferedSeries(t *testing.T) {
	var gotStart, gotEnd string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStart = r.URL.Query().Get("dataInicial")
		gotEnd = r.URL.Query().Get("dataFinal")
		if strings.Contains(r.URL.Path, "ultimos") {
			t.Errorf("range query must not use ultimos: %s", r.URL.Path)
		}
		w.Write([]byte(`[{"data":"01/01/2024","valor":"0.42"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	start := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		periodicity string
		wantStart   string
		wantEnd     string
	}{
		{PeriodicityDaily, "29/12/2023", "05/04/2024"},
		{PeriodicityMonthly, "03/11/2023", "31/05/2024"},
		{"", "03/11/2023", "31/05/2024"},
	}
	for _, tt := range tests {
		obs, err := c.SeriesFor(context.Background(), SeriesIPCA, start, end, tt.periodicity)
		if err != nil {
			t.Fatalf("SeriesFor(%q) failed: %v", tt.periodicity, err)
		}
		if len(obs) != 1 {
			t.Errorf("expected 1 observation, got %d", len(obs))
		}
		if gotStart != tt.wantStart || gotEnd != tt.wantEnd {
			t.Errorf("SeriesFor(%q) window = %s..%s, want %s..%s", tt.periodicity, gotStart, gotEnd, tt.wantStart, tt.wantEnd)
		}
	}
}

func TestClient_Indexes(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.Write([]byte(`[{"data":"01/04/2024","valor":"0.38"}]`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, srv.Client()).Indexes(context.Background())
	if err != nil {
		t.Fatalf("Indexes failed: %v", err)
	}
	for _, name := range []string{"cdi", "selic", "ipca", "igpm"} {
		if got[name].Value != "0.38" {
			t.Errorf("missing %s in %v", name, got)
		}
	}
	if len(paths) != 4 {
		t.Errorf("expected 4 calls, got %v", paths)
	}
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "series not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).Latest(context.Background(), 999999)
	var statusErr *providers.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected StatusError 404, got %v", err)
	}
}
