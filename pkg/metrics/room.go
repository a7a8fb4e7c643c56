package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RoomMetrics tracks a single room server process's match activity.
type RoomMetrics struct {
	PlayersSeated prometheus.Gauge
	MovesTotal    prometheus.Counter
	MatchesTotal  *prometheus.CounterVec
	TicksTotal    prometheus.Counter
}

// NewRoomMetrics registers a room server's metrics.
func NewRoomMetrics() *RoomMetrics {
	return &RoomMetrics{
		PlayersSeated: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "gamehost", Subsystem: "room", Name: "players_seated",
			Help: "Number of players currently seated in this room",
		}),
		MovesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "gamehost", Subsystem: "room", Name: "moves_total",
			Help: "Total moves processed",
		}),
		MatchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gamehost", Subsystem: "room", Name: "matches_total",
			Help: "Total matches concluded, by outcome",
		}, []string{"outcome"}),
		TicksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "gamehost", Subsystem: "room", Name: "ticks_total",
			Help: "Total fixed-rate ticks processed (runner kind only)",
		}),
	}
}
