package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/domain/service"
)

// CacheCollector bundles Prometheus metrics for downloads, navigation and
// the HTTP surface. Event-driven metrics are fed from the event bus.
type CacheCollector struct {
	gatherer prometheus.Gatherer

	Events          *prometheus.CounterVec
	Downloads       *prometheus.CounterVec
	TilesFetched    *prometheus.CounterVec
	GPSErrors       *prometheus.CounterVec
	BytesFreed      prometheus.Counter
	NavigationState prometheus.Gauge
	Online          prometheus.Gauge

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewCacheCollector registers metrics against the provided registerer,
// defaulting to the global registry when nil.
func NewCacheCollector(reg prometheus.Registerer) (*CacheCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	events, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "emergency_map_events_total",
		Help: "Total number of published events, labeled by kind.",
	}, []string{"kind"}), "emergency_map_events_total")
	if err != nil {
		return nil, err
	}
	downloads, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "emergency_map_region_downloads_total",
		Help: "Region downloads that reached a terminal state, labeled by outcome.",
	}, []string{"outcome"}), "emergency_map_region_downloads_total")
	if err != nil {
		return nil, err
	}
	tiles, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "emergency_map_tiles_fetched_total",
		Help: "Tiles fetched by completed region downloads, labeled by result.",
	}, []string{"result"}), "emergency_map_tiles_fetched_total")
	if err != nil {
		return nil, err
	}
	gpsErrors, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "emergency_map_gps_errors_total",
		Help: "Geolocation errors reported during navigation, labeled by code.",
	}, []string{"code"}), "emergency_map_gps_errors_total")
	if err != nil {
		return nil, err
	}
	freed, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "emergency_map_cleanup_bytes_freed_total",
		Help: "Bytes of tile data removed by cache cleanup.",
	}), "emergency_map_cleanup_bytes_freed_total")
	if err != nil {
		return nil, err
	}
	navigation, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "emergency_map_navigation_active",
		Help: "1 while a navigation session is active.",
	}), "emergency_map_navigation_active")
	if err != nil {
		return nil, err
	}
	online, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "emergency_map_online",
		Help: "1 when the network is considered reachable.",
	}), "emergency_map_online")
	if err != nil {
		return nil, err
	}
	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "emergency_map_http_requests_total",
		Help: "Handled HTTP requests, labeled by method, route and status code.",
	}, []string{"method", "route", "code"}), "emergency_map_http_requests_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "emergency_map_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route"}), "emergency_map_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	online.Set(1)

	return &CacheCollector{
		gatherer:        gatherer,
		Events:          events,
		Downloads:       downloads,
		TilesFetched:    tiles,
		GPSErrors:       gpsErrors,
		BytesFreed:      freed,
		NavigationState: navigation,
		Online:          online,
		HTTPRequests:    requests,
		HTTPDurations:   durations,
	}, nil
}

// RegisterCacheSize exposes the tile count and the tile store's byte counter
// as gauges evaluated at scrape time.
func RegisterCacheSize(reg prometheus.Registerer, size func() (tiles int, bytes int64)) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	bytesGauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "emergency_map_cache_size_bytes",
		Help: "Sum of stored tile sizes.",
	}, func() float64 {
		_, b := size()
		return float64(b)
	})
	tilesGauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "emergency_map_cached_tiles",
		Help: "Number of stored tiles.",
	}, func() float64 {
		n, _ := size()
		return float64(n)
	})

	for _, c := range []prometheus.Collector{bytesGauge, tilesGauge} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register cache size gauge: %w", err)
		}
	}
	return nil
}

// Observe subscribes the collector to every event on the bus. The returned
// function detaches it.
func (c *CacheCollector) Observe(bus *service.EventBus) func() {
	return bus.SubscribeAll(c.Record)
}

// Record updates metrics for a single event.
func (c *CacheCollector) Record(event model.Event) {
	if c == nil {
		return
	}
	c.Events.WithLabelValues(string(event.Kind())).Inc()

	switch e := event.(type) {
	case model.DownloadCompleted:
		c.Downloads.WithLabelValues("completed").Inc()
		c.TilesFetched.WithLabelValues("ok").Add(float64(e.Region.TileCount - e.Region.FailedTiles))
		c.TilesFetched.WithLabelValues("failed").Add(float64(e.Region.FailedTiles))
	case model.DownloadFailed:
		c.Downloads.WithLabelValues("failed").Inc()
	case model.NavigationStarted:
		c.NavigationState.Set(1)
	case model.NavigationStopped:
		c.NavigationState.Set(0)
	case model.GPSError:
		c.GPSErrors.WithLabelValues(strconv.Itoa(e.Code)).Inc()
	case model.CacheCleaned:
		c.BytesFreed.Add(float64(e.BytesFreed))
	case model.ConnectionChanged:
		if e.Online {
			c.Online.Set(1)
		} else {
			c.Online.Set(0)
		}
	}
}

// GinMiddleware records request counts and durations per matched route.
func (c *CacheCollector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		c.HTTPRequests.WithLabelValues(ctx.Request.Method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.HTTPDurations.WithLabelValues(ctx.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *CacheCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
