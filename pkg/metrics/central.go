package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CentralMetrics tracks the Central Directory Server's request and
// lobby-lifecycle counters.
type CentralMetrics struct {
	SessionsActive  prometheus.Gauge
	LoginsTotal     *prometheus.CounterVec
	UploadsTotal    prometheus.Counter
	UploadBytes     prometheus.Counter
	DownloadsTotal  prometheus.Counter
	DownloadBytes   prometheus.Counter
	LobbyLaunches   prometheus.Counter
	LobbyStops      prometheus.Counter
	LobbyCrashes    prometheus.Counter
	PortAllocations *prometheus.CounterVec
}

// NewCentralMetrics registers the central server's metrics.
func NewCentralMetrics() *CentralMetrics {
	return &CentralMetrics{
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "gamehost", Subsystem: "central", Name: "sessions_active",
			Help: "Number of authenticated sessions currently connected",
		}),
		LoginsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gamehost", Subsystem: "central", Name: "logins_total",
			Help: "Total login attempts by result",
		}, []string{"result"}),
		UploadsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "gamehost", Subsystem: "central", Name: "uploads_total",
			Help: "Total completed game package uploads",
		}),
		UploadBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "gamehost", Subsystem: "central", Name: "upload_bytes_total",
			Help: "Total bytes received via upload_game_file",
		}),
		DownloadsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "gamehost", Subsystem: "central", Name: "downloads_total",
			Help: "Total completed game package downloads",
		}),
		DownloadBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "gamehost", Subsystem: "central", Name: "download_bytes_total",
			Help: "Total bytes sent via download_game_file",
		}),
		LobbyLaunches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "gamehost", Subsystem: "central", Name: "lobby_launches_total",
			Help: "Total lobby server processes launched",
		}),
		LobbyStops: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "gamehost", Subsystem: "central", Name: "lobby_stops_total",
			Help: "Total lobby server processes stopped on request",
		}),
		LobbyCrashes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "gamehost", Subsystem: "central", Name: "lobby_crashes_total",
			Help: "Total lobby server processes that exited with a non-zero code",
		}),
		PortAllocations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gamehost", Subsystem: "central", Name: "port_allocations_total",
			Help: "Total ports allocated for lobby processes",
		}, []string{"result"}),
	}
}
