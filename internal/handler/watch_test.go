package handler_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripboard/backend/internal/domain"
	"github.com/pkordes/tripboard/backend/internal/handler"
)

type mockTripWatcher struct {
	subscribe func(ctx context.Context, tripID string, fn func(*domain.Trip)) (func(), error)
}

func (m *mockTripWatcher) Subscribe(ctx context.Context, tripID string, fn func(*domain.Trip)) (func(), error) {
	return m.subscribe(ctx, tripID, fn)
}

var _ handler.TripWatcher = (*mockTripWatcher)(nil)

func TestWatchTrip_InitialStateThenChanges(t *testing.T) {
	var mu sync.Mutex
	var onChange func(*domain.Trip)
	watcher := &mockTripWatcher{
		subscribe: func(_ context.Context, tripID string, fn func(*domain.Trip)) (func(), error) {
			assert.Equal(t, "andalusien-2025", tripID)
			mu.Lock()
			onChange = fn
			mu.Unlock()
			return func() {}, nil
		},
	}
	svc := &mockTripServicer{
		trip: func() (*domain.Trip, error) { return tripFixture(), nil },
	}

	srv := httptest.NewServer(handler.NewServer(svc, nil, nil, watcher, "andalusien-2025", "").Routes())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/trip/watch"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// The current state arrives without any change happening.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first domain.Trip
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "Andalusien 2025", first.Title)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return onChange != nil
	}, time.Second, 10*time.Millisecond)

	updated := tripFixture()
	updated.Title = "Andalusien 2026"
	mu.Lock()
	fn := onChange
	mu.Unlock()
	fn(updated)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var second domain.Trip
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "Andalusien 2026", second.Title)
}

func TestWatchTrip_NilChangeNotForwarded(t *testing.T) {
	var mu sync.Mutex
	var onChange func(*domain.Trip)
	watcher := &mockTripWatcher{
		subscribe: func(_ context.Context, _ string, fn func(*domain.Trip)) (func(), error) {
			mu.Lock()
			onChange = fn
			mu.Unlock()
			return func() {}, nil
		},
	}
	svc := &mockTripServicer{
		trip: func() (*domain.Trip, error) { return tripFixture(), nil },
	}

	srv := httptest.NewServer(handler.NewServer(svc, nil, nil, watcher, "andalusien-2025", "").Routes())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/trip/watch"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first domain.Trip
	require.NoError(t, conn.ReadJSON(&first))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return onChange != nil
	}, time.Second, 10*time.Millisecond)

	// A deleted or undecodable document delivers nil; the socket must stay
	// silent instead of sending null and wiping the client's state.
	mu.Lock()
	fn := onChange
	mu.Unlock()
	fn(nil)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	var nerr net.Error
	require.ErrorAs(t, err, &nerr)
	assert.True(t, nerr.Timeout())
}

func TestWatchTrip_503_NotConfigured(t *testing.T) {
	rec := doRequest(t, newHTTPHandler(&mockTripServicer{}), http.MethodGet, "/trip/watch", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
