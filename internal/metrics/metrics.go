package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Overlay lifecycle metrics
var (
	// OverlayRefreshesTotal counts completed overlay refreshes
	OverlayRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "overlay_refreshes_total",
			Help: "Total completed overlay refreshes",
		},
	)

	// OverlayRefreshesSkipped counts refreshes skipped because no map surface was bound
	OverlayRefreshesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "overlay_refreshes_skipped_total",
			Help: "Refreshes skipped because the map surface was not yet available",
		},
	)

	// OverlayReframeFailures counts suppressed viewport reframe failures
	OverlayReframeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "overlay_reframe_failures_total",
			Help: "Viewport reframe attempts suppressed due to an empty extent",
		},
	)

	// LayerEmissionsTotal counts layers emitted on notification channels
	LayerEmissionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "overlay_layer_emissions_total",
			Help: "Rendered layers emitted to notification subscribers",
		},
	)

	// LayersBuiltTotal counts layers built by the factory, by clustering mode
	LayersBuiltTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_layers_built_total",
			Help: "Rendered layers built by the layer factory",
		},
		[]string{"clustered"},
	)
)

// Watcher metrics
var (
	// WatcherPollsTotal counts payload store polls by the revision watcher
	WatcherPollsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watcher_polls_total",
			Help: "Payload store revision polls",
		},
	)

	// WatcherRefreshesTotal counts refreshes triggered by detected revision changes
	WatcherRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watcher_refreshes_total",
			Help: "Overlay refreshes triggered by the revision watcher",
		},
	)
)

// WebSocket hub metrics
var (
	// HubActiveMaps tracks maps with at least one connected widget client
	HubActiveMaps = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_active_maps",
			Help: "Maps with at least one connected widget client",
		},
	)

	// HubConnectedClients tracks currently connected widget clients
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Currently connected widget clients",
		},
	)

	// HubSlowClientsEvicted counts clients dropped for not keeping up
	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Widget clients disconnected because their send buffer was full",
		},
	)
)

// Store metrics
var (
	// PayloadStoreOpDuration tracks payload store operation latency in seconds
	PayloadStoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payload_store_operation_duration_seconds",
			Help:    "Payload store operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)
)
