package geolocation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type collector struct {
	mu        sync.Mutex
	positions []model.Position
	errs      []error
}

func (c *collector) onUpdate(p model.Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.positions = append(c.positions, p)
}

func (c *collector) onError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func (c *collector) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.positions), len(c.errs)
}

func TestPushSource_DeliversToAllWatches(t *testing.T) {
	s := NewPushSource(zaptest.NewLogger(t))
	var a, b collector

	cancelA, err := s.StartWatch(model.WatchOptions{}, a.onUpdate, a.onError)
	require.NoError(t, err)
	cancelB, err := s.StartWatch(model.WatchOptions{}, b.onUpdate, b.onError)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Watching())

	s.Push(model.Position{Location: model.LatLng{Lat: 35.0, Lng: 135.76}, Accuracy: 5})

	na, _ := a.counts()
	nb, _ := b.counts()
	assert.Equal(t, 1, na)
	assert.Equal(t, 1, nb)
	assert.False(t, a.positions[0].Timestamp.IsZero())

	cancelA()
	cancelA()
	assert.Equal(t, 1, s.Watching())

	s.Push(model.Position{Location: model.LatLng{Lat: 35.001, Lng: 135.76}})
	na, _ = a.counts()
	nb, _ = b.counts()
	assert.Equal(t, 1, na)
	assert.Equal(t, 2, nb)

	cancelB()
	assert.Equal(t, 0, s.Watching())
}

func TestPushSource_InvalidCoordinatesBecomeErrors(t *testing.T) {
	s := NewPushSource(zaptest.NewLogger(t))
	var c collector
	cancel, err := s.StartWatch(model.WatchOptions{}, c.onUpdate, c.onError)
	require.NoError(t, err)
	defer cancel()

	s.Push(model.Position{Location: model.LatLng{Lat: 123, Lng: 0}})
	s.PushError(model.GeolocationPermissionDenied, "denied")

	positions, errs := c.counts()
	assert.Equal(t, 0, positions)
	require.Equal(t, 2, errs)

	var geoErr *model.GeolocationError
	require.True(t, errors.As(c.errs[0], &geoErr))
	assert.Equal(t, model.GeolocationPositionUnavailable, geoErr.Code)
	require.True(t, errors.As(c.errs[1], &geoErr))
	assert.Equal(t, model.GeolocationPermissionDenied, geoErr.Code)
}

func TestPushSource_Timeout(t *testing.T) {
	s := NewPushSource(zaptest.NewLogger(t))
	var c collector
	cancel, err := s.StartWatch(model.WatchOptions{Timeout: 20 * time.Millisecond}, c.onUpdate, c.onError)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, errs := c.counts()
		return errs > 0
	}, time.Second, 5*time.Millisecond)

	cancel()

	c.mu.Lock()
	var geoErr *model.GeolocationError
	require.True(t, errors.As(c.errs[0], &geoErr))
	c.mu.Unlock()
	assert.Equal(t, model.GeolocationTimeout, geoErr.Code)
}

type singleRoute struct {
	route *model.OfflineRoute
}

func (r singleRoute) Get(id string) (*model.OfflineRoute, bool) {
	if id != r.route.ID {
		return nil, false
	}
	return r.route, true
}

func TestPushSource_ConcurrentNavigationStartsAreReleasedByStop(t *testing.T) {
	route := &model.OfflineRoute{
		ID: "evac-1",
		Waypoints: []model.Waypoint{
			{Location: model.LatLng{Lat: 35.000, Lng: 135.0}, Instruction: "北へ進む"},
			{Location: model.LatLng{Lat: 35.001, Lng: 135.0}, Instruction: "避難所に到着"},
		},
		TotalDistance: 111,
	}
	source := NewPushSource(zaptest.NewLogger(t))
	tracker := service.NewNavigationTracker(singleRoute{route: route}, source, service.NewEventBus(), zaptest.NewLogger(t))

	for round := 0; round < 50; round++ {
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, tracker.Start("evac-1"))
			}()
		}
		wg.Wait()
		require.Equal(t, 1, source.Watching(), "round %d", round)

		tracker.Stop()
		require.Zero(t, source.Watching(), "round %d", round)
	}
}
