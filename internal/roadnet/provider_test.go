package roadnet

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"drtnav/internal/domain"
	"drtnav/pkg/overpass"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSource struct {
	fetches atomic.Int32
	err     error
}

func (s *stubSource) FetchRoadNetwork(ctx context.Context, center orb.Point, radiusM float64, networkType string) (*overpass.Extract, error) {
	s.fetches.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return lineExtract(nil, 1, 2, 3), nil
}

// memStore is an in-memory SnapshotStore.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	sets atomic.Int32
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	m.sets.Add(1)
	return nil
}

func TestProviderCachesByKey(t *testing.T) {
	src := &stubSource{}
	p := NewProvider(src, 8, nil, time.Hour, testLogger())
	center := orb.Point{127.0, 36.8}

	g1, err := p.Graph(center, 5000, domain.ProfileDriving)
	if err != nil {
		t.Fatalf("Graph returned error: %v", err)
	}
	g2, err := p.Graph(center, 5000, domain.ProfileDriving)
	if err != nil {
		t.Fatalf("Graph returned error: %v", err)
	}

	if g1 != g2 {
		t.Error("second lookup did not hit the cache")
	}
	if got := src.fetches.Load(); got != 1 {
		t.Errorf("source fetched %d times, want 1", got)
	}

	loads, builds := p.Stats()
	if loads != 2 || builds != 1 {
		t.Errorf("stats = (%d loads, %d builds), want (2, 1)", loads, builds)
	}
}

func TestProviderKeySeparatesProfiles(t *testing.T) {
	src := &stubSource{}
	p := NewProvider(src, 8, nil, time.Hour, testLogger())
	center := orb.Point{127.0, 36.8}

	if _, err := p.Graph(center, 5000, domain.ProfileDriving); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Graph(center, 5000, domain.ProfileWalking); err != nil {
		t.Fatal(err)
	}
	if got := src.fetches.Load(); got != 2 {
		t.Errorf("source fetched %d times, want 2 (one per network type)", got)
	}
}

func TestProviderRoundsCenter(t *testing.T) {
	src := &stubSource{}
	p := NewProvider(src, 8, nil, time.Hour, testLogger())

	// Two centers ~20 m apart round to the same 3-decimal key.
	if _, err := p.Graph(orb.Point{127.00010, 36.80010}, 5000, domain.ProfileDriving); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Graph(orb.Point{127.00030, 36.80020}, 5000, domain.ProfileDriving); err != nil {
		t.Fatal(err)
	}
	if got := src.fetches.Load(); got != 1 {
		t.Errorf("source fetched %d times, want 1 shared build", got)
	}
}

func TestProviderConcurrentBuildsDeduplicated(t *testing.T) {
	src := &stubSource{}
	p := NewProvider(src, 8, nil, time.Hour, testLogger())
	center := orb.Point{127.0, 36.8}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Graph(center, 5000, domain.ProfileDriving); err != nil {
				t.Errorf("Graph returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := src.fetches.Load(); got != 1 {
		t.Errorf("source fetched %d times under concurrency, want 1", got)
	}
}

func TestProviderSourceFailure(t *testing.T) {
	src := &stubSource{err: errors.New("overpass down")}
	p := NewProvider(src, 8, nil, time.Hour, testLogger())

	_, err := p.Graph(orb.Point{127.0, 36.8}, 5000, domain.ProfileDriving)

	var graphErr *domain.GraphUnavailableError
	if !errors.As(err, &graphErr) {
		t.Fatalf("error type = %T, want *domain.GraphUnavailableError", err)
	}
}

func TestProviderSnapshotTier(t *testing.T) {
	store := newMemStore()
	src := &stubSource{}
	p := NewProvider(src, 8, store, time.Hour, testLogger())
	center := orb.Point{127.0, 36.8}

	if _, err := p.Graph(center, 5000, domain.ProfileDriving); err != nil {
		t.Fatal(err)
	}
	if store.sets.Load() != 1 {
		t.Errorf("tier saw %d writes, want 1", store.sets.Load())
	}

	// A fresh provider sharing the tier hydrates from it without fetching.
	src2 := &stubSource{}
	p2 := NewProvider(src2, 8, store, time.Hour, testLogger())
	g, err := p2.Graph(center, 5000, domain.ProfileDriving)
	if err != nil {
		t.Fatal(err)
	}
	if src2.fetches.Load() != 0 {
		t.Errorf("source fetched %d times with a warm tier, want 0", src2.fetches.Load())
	}
	if len(g.Nodes) == 0 || len(g.Edges) == 0 {
		t.Error("tier-hydrated graph lost its nodes or edges")
	}
}

func TestGraphKeyString(t *testing.T) {
	k := keyFor(orb.Point{127.11394, 36.81516}, 5000, "drive")
	want := "graph:drive:36.815:127.114:5000"
	if k.String() != want {
		t.Errorf("key = %q, want %q", k.String(), want)
	}
}
