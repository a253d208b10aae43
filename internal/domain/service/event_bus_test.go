package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"EmergencyMap-App/internal/domain/model"
)

func TestEventBus_DeliversToKindAndAllSubscribers(t *testing.T) {
	bus := NewEventBus()

	var byKind, all []model.EventKind
	bus.Subscribe(model.EventRoutesCached, func(e model.Event) { byKind = append(byKind, e.Kind()) })
	bus.SubscribeAll(func(e model.Event) { all = append(all, e.Kind()) })

	bus.Publish(model.RoutesCached{Count: 1})
	bus.Publish(model.LocationsCached{Count: 2})

	assert.Equal(t, []model.EventKind{model.EventRoutesCached}, byKind)
	assert.Equal(t, []model.EventKind{model.EventRoutesCached, model.EventLocationsCached}, all)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	unsubscribe := bus.Subscribe(model.EventCacheCleaned, func(model.Event) { calls++ })
	bus.Publish(model.CacheCleaned{})
	unsubscribe()
	bus.Publish(model.CacheCleaned{})

	assert.Equal(t, 1, calls)
}

func TestEventBus_HandlerMayUnsubscribeDuringDispatch(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	var unsubscribe func()
	unsubscribe = bus.Subscribe(model.EventGPSError, func(model.Event) {
		calls++
		unsubscribe()
	})

	bus.Publish(model.GPSError{})
	bus.Publish(model.GPSError{})

	assert.Equal(t, 1, calls)
}
