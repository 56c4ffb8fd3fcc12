package tracking

import (
	"UTM-Backend/internal/analytics"
	"UTM-Backend/internal/domain"
	"UTM-Backend/internal/geo"
	"UTM-Backend/pkg/clientip"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockStore is a mock implementation of EventStore
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateTrackingEvent(ctx context.Context, event *domain.TrackingEvent) (int64, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(int64), args.Error(1)
}

type fakeGeo struct {
	mu     sync.Mutex
	delay  time.Duration
	panics bool
	seen   []string
}

func (g *fakeGeo) Lookup(_ context.Context, ip string) geo.Result {
	g.mu.Lock()
	g.seen = append(g.seen, ip)
	g.mu.Unlock()

	if g.panics {
		panic("boom")
	}
	time.Sleep(g.delay)
	country, city := "DE", "Berlin"
	return geo.Result{Full: domain.GeoData{"country_code": "DE"}, Country: &country, City: &city}
}

func (g *fakeGeo) lookups() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.seen...)
}

type fakePublicIP struct {
	ip    string
	err   error
	delay time.Duration
}

func (p fakePublicIP) Lookup(context.Context) (string, error) {
	time.Sleep(p.delay)
	return p.ip, p.err
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Workers = 1
	cfg.BufferSize = 4
	cfg.GeoTimeout = 100 * time.Millisecond
	cfg.PublicIPTimeout = 50 * time.Millisecond
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

func signals(remote string, headers map[string]string) clientip.Signals {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	resolved := remote
	if i := strings.LastIndexByte(remote, ':'); i > 0 {
		resolved = remote[:i]
	}
	return clientip.Signals{Header: h, ResolvedIP: resolved, RemoteAddr: remote}
}

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func TestRecorder_Record(t *testing.T) {
	clickedAt := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)

	t.Run("full event", func(t *testing.T) {
		store := &MockStore{}
		store.On("CreateTrackingEvent", mock.Anything, mock.AnythingOfType("*domain.TrackingEvent")).Return(int64(7), nil)
		g := &fakeGeo{}

		r := NewRecorder(testConfig(), Deps{Store: store, Geo: g}, zap.NewNop())
		event, err := r.Record(context.Background(), Click{
			LinkID:    3,
			Code:      "Abc12345",
			Signals:   signals("10.0.0.2:5000", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}),
			UserAgent: chromeUA,
			Referer:   "https://news.example/",
			ClickedAt: clickedAt,
		})
		require.NoError(t, err)

		assert.EqualValues(t, 7, event.ID)
		assert.EqualValues(t, 3, event.LinkID)
		assert.Equal(t, "Abc12345", event.Code)
		assert.Equal(t, "203.0.113.5", *event.IPAddress)
		assert.Equal(t, "DE", *event.Country)
		assert.Equal(t, "Berlin", *event.City)
		assert.Equal(t, "DE", event.GeoData["country_code"])
		assert.Equal(t, "desktop", *event.DeviceType)
		assert.Equal(t, "Chrome", *event.Browser)
		assert.Equal(t, "Windows 10/11", *event.OS)
		assert.Equal(t, "https://news.example/", *event.Referer)
		assert.True(t, event.ClickedAt.Equal(clickedAt))
		assert.Equal(t, []string{"203.0.113.5"}, g.lookups())
		store.AssertExpectations(t)
	})

	t.Run("missing user agent and referer stay null", func(t *testing.T) {
		store := &MockStore{}
		store.On("CreateTrackingEvent", mock.Anything, mock.Anything).Return(int64(1), nil)

		r := NewRecorder(testConfig(), Deps{Store: store, Geo: &fakeGeo{}}, zap.NewNop())
		event, err := r.Record(context.Background(), Click{LinkID: 1, Code: "c", Signals: signals("203.0.113.9:1", nil)})
		require.NoError(t, err)

		assert.Nil(t, event.UserAgent)
		assert.Nil(t, event.Referer)
		assert.Nil(t, event.DeviceType)
		assert.Nil(t, event.Browser)
		assert.Nil(t, event.OS)
		assert.False(t, event.ClickedAt.IsZero())
	})

	t.Run("slow geolocation yields nulls", func(t *testing.T) {
		store := &MockStore{}
		store.On("CreateTrackingEvent", mock.Anything, mock.Anything).Return(int64(1), nil)

		r := NewRecorder(testConfig(), Deps{Store: store, Geo: &fakeGeo{delay: time.Second}}, zap.NewNop())
		start := time.Now()
		event, err := r.Record(context.Background(), Click{LinkID: 1, Code: "slow", Signals: signals("203.0.113.9:1", nil)})
		require.NoError(t, err)

		assert.Less(t, time.Since(start), 500*time.Millisecond)
		assert.Nil(t, event.Country)
		assert.Nil(t, event.City)
		assert.Nil(t, event.GeoData)
		assert.Equal(t, "203.0.113.9", *event.IPAddress)
	})

	t.Run("panicking geolocation yields nulls", func(t *testing.T) {
		store := &MockStore{}
		store.On("CreateTrackingEvent", mock.Anything, mock.Anything).Return(int64(1), nil)

		r := NewRecorder(testConfig(), Deps{Store: store, Geo: &fakeGeo{panics: true}}, zap.NewNop())
		event, err := r.Record(context.Background(), Click{LinkID: 1, Code: "p", Signals: signals("203.0.113.9:1", nil), UserAgent: chromeUA})
		require.NoError(t, err)
		assert.Nil(t, event.Country)
		assert.Equal(t, "Chrome", *event.Browser)
	})

	t.Run("persistence failure is returned", func(t *testing.T) {
		store := &MockStore{}
		store.On("CreateTrackingEvent", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

		r := NewRecorder(testConfig(), Deps{Store: store, Geo: &fakeGeo{}}, zap.NewNop())
		_, err := r.Record(context.Background(), Click{LinkID: 1, Code: "f", Signals: signals("203.0.113.9:1", nil)})
		assert.ErrorContains(t, err, "db down")
	})

	t.Run("long referer is truncated", func(t *testing.T) {
		store := &MockStore{}
		store.On("CreateTrackingEvent", mock.Anything, mock.Anything).Return(int64(1), nil)

		r := NewRecorder(testConfig(), Deps{Store: store}, zap.NewNop())
		event, err := r.Record(context.Background(), Click{LinkID: 1, Code: "r", Referer: "https://x.example/" + strings.Repeat("é", 400)})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(*event.Referer), 500)
		assert.True(t, strings.HasPrefix(*event.Referer, "https://x.example/"))
		assert.Nil(t, event.IPAddress)
	})
}

func TestRecorder_DirectClientsCountOnce(t *testing.T) {
	store := &MockStore{}
	store.On("CreateTrackingEvent", mock.Anything, mock.Anything).Return(int64(1), nil)

	r := NewRecorder(testConfig(), Deps{Store: store}, zap.NewNop())

	var events []*domain.TrackingEvent
	for _, remote := range []string{"127.0.0.1:5000", "127.0.0.1:5001"} {
		event, err := r.Record(context.Background(), Click{LinkID: 1, Code: "direct", Signals: signals(remote, nil)})
		require.NoError(t, err)
		require.NotNil(t, event.IPAddress)
		assert.Equal(t, "127.0.0.1", *event.IPAddress)
		events = append(events, event)
	}

	report := analytics.NewAggregator(time.UTC).Aggregate(&domain.Link{ID: 1, Code: "direct"}, events)
	assert.Equal(t, 2, report.Overview.TotalClicks)
	assert.Equal(t, 1, report.Overview.UniqueIPs)
}

func TestRecorder_PublicIPSubstitution(t *testing.T) {
	newStore := func() *MockStore {
		store := &MockStore{}
		store.On("CreateTrackingEvent", mock.Anything, mock.Anything).Return(int64(1), nil)
		return store
	}
	click := Click{LinkID: 1, Code: "dev", Signals: signals("127.0.0.1:5555", nil)}

	t.Run("development substitutes public ip for geolocation only", func(t *testing.T) {
		cfg := testConfig()
		cfg.Production = false
		g := &fakeGeo{}

		r := NewRecorder(cfg, Deps{Store: newStore(), Geo: g, PublicIP: fakePublicIP{ip: "198.51.100.10"}}, zap.NewNop())
		event, err := r.Record(context.Background(), click)
		require.NoError(t, err)

		assert.Equal(t, []string{"198.51.100.10"}, g.lookups())
		assert.Equal(t, "127.0.0.1", *event.IPAddress)
		assert.Equal(t, "DE", *event.Country)
	})

	t.Run("slow public ip falls back to client ip", func(t *testing.T) {
		cfg := testConfig()
		cfg.Production = false
		g := &fakeGeo{}

		r := NewRecorder(cfg, Deps{Store: newStore(), Geo: g, PublicIP: fakePublicIP{ip: "198.51.100.10", delay: time.Second}}, zap.NewNop())
		_, err := r.Record(context.Background(), click)
		require.NoError(t, err)
		assert.Equal(t, []string{"127.0.0.1"}, g.lookups())
	})

	t.Run("public ip error falls back to client ip", func(t *testing.T) {
		cfg := testConfig()
		cfg.Production = false
		g := &fakeGeo{}

		r := NewRecorder(cfg, Deps{Store: newStore(), Geo: g, PublicIP: fakePublicIP{err: errors.New("offline")}}, zap.NewNop())
		_, err := r.Record(context.Background(), click)
		require.NoError(t, err)
		assert.Equal(t, []string{"127.0.0.1"}, g.lookups())
	})

	t.Run("production never substitutes", func(t *testing.T) {
		g := &fakeGeo{}

		r := NewRecorder(testConfig(), Deps{Store: newStore(), Geo: g, PublicIP: fakePublicIP{ip: "198.51.100.10"}}, zap.NewNop())
		_, err := r.Record(context.Background(), click)
		require.NoError(t, err)
		assert.Equal(t, []string{"127.0.0.1"}, g.lookups())
	})
}

func TestRecorder_Queue(t *testing.T) {
	t.Run("submit requires start", func(t *testing.T) {
		r := NewRecorder(testConfig(), Deps{Store: &MockStore{}}, zap.NewNop())
		assert.ErrorIs(t, r.Submit(Click{Code: "x"}), ErrNotStarted)
		assert.ErrorIs(t, r.Stop(), ErrNotStarted)
	})

	t.Run("full queue drops clicks", func(t *testing.T) {
		cfg := testConfig()
		cfg.BufferSize = 1

		entered := make(chan struct{}, 4)
		release := make(chan struct{})
		store := &MockStore{}
		store.On("CreateTrackingEvent", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) {
				entered <- struct{}{}
				<-release
			}).
			Return(int64(1), nil)

		r := NewRecorder(cfg, Deps{Store: store}, zap.NewNop())
		require.NoError(t, r.Start())
		assert.Error(t, r.Start())

		require.NoError(t, r.Submit(Click{LinkID: 1, Code: "a"}))
		select {
		case <-entered:
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not pick up the first click")
		}

		require.NoError(t, r.Submit(Click{LinkID: 1, Code: "b"}))
		assert.ErrorIs(t, r.Submit(Click{LinkID: 1, Code: "c"}), ErrQueueFull)

		close(release)
		require.NoError(t, r.Stop())
		store.AssertNumberOfCalls(t, "CreateTrackingEvent", 2)

		assert.ErrorIs(t, r.Submit(Click{LinkID: 1, Code: "d"}), ErrShuttingDown)
	})

	t.Run("stop drains queued clicks", func(t *testing.T) {
		store := &MockStore{}
		store.On("CreateTrackingEvent", mock.Anything, mock.Anything).Return(int64(1), nil)

		r := NewRecorder(testConfig(), Deps{Store: store}, zap.NewNop())
		require.NoError(t, r.Start())
		for i := 0; i < 4; i++ {
			require.NoError(t, r.Submit(Click{LinkID: 1, Code: "q"}))
		}
		require.NoError(t, r.Stop())
		store.AssertNumberOfCalls(t, "CreateTrackingEvent", 4)
		assert.Equal(t, false, r.Stats()["started"])
	})

	t.Run("worker survives store panic", func(t *testing.T) {
		calls := 0
		store := &MockStore{}
		store.On("CreateTrackingEvent", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) {
				calls++
				if calls == 1 {
					panic("driver bug")
				}
			}).
			Return(int64(1), nil)

		r := NewRecorder(testConfig(), Deps{Store: store}, zap.NewNop())
		require.NoError(t, r.Start())
		require.NoError(t, r.Submit(Click{LinkID: 1, Code: "p1"}))
		require.NoError(t, r.Submit(Click{LinkID: 1, Code: "p2"}))
		require.NoError(t, r.Stop())
		assert.Equal(t, 2, calls)
	})
}
