package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LobbyMetrics tracks a Game Lobby Server's room-lifecycle counters.
type LobbyMetrics struct {
	RoomsActive    prometheus.Gauge
	RoomsCreated   prometheus.Counter
	RoomsClosed    prometheus.Counter
	RoomJoins      prometheus.Counter
	RoomJoinDenied *prometheus.CounterVec
	RoomSpawns     *prometheus.CounterVec
}

// NewLobbyMetrics registers a lobby server's metrics.
func NewLobbyMetrics() *LobbyMetrics {
	return &LobbyMetrics{
		RoomsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "gamehost", Subsystem: "lobby", Name: "rooms_active",
			Help: "Number of rooms in waiting status on this lobby",
		}),
		RoomsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "gamehost", Subsystem: "lobby", Name: "rooms_created_total",
			Help: "Total rooms created",
		}),
		RoomsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "gamehost", Subsystem: "lobby", Name: "rooms_closed_total",
			Help: "Total rooms closed because their room server process exited",
		}),
		RoomJoins: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "gamehost", Subsystem: "lobby", Name: "room_joins_total",
			Help: "Total successful room joins",
		}),
		RoomJoinDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gamehost", Subsystem: "lobby", Name: "room_join_denied_total",
			Help: "Total room join attempts denied, by reason",
		}, []string{"reason"}),
		RoomSpawns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gamehost", Subsystem: "lobby", Name: "room_server_spawns_total",
			Help: "Total room server subprocesses spawned, by result",
		}, []string{"result"}),
	}
}
