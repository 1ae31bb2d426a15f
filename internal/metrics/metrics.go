package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsParsed counts recognized log events by type
	EventsParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orangebot_log_events_total",
		Help: "Parsed game server log events by type.",
	}, []string{"type"})

	// DatagramsDropped counts datagrams from unregistered servers
	DatagramsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orangebot_datagrams_dropped_total",
		Help: "UDP datagrams dropped because the sender is not registered.",
	})

	// CommandsSent counts RCON commands drained from the queues
	CommandsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orangebot_rcon_commands_total",
		Help: "RCON commands sent to game servers.",
	})

	// CommandFailures counts RCON commands that could not be delivered
	CommandFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orangebot_rcon_failures_total",
		Help: "RCON commands that failed to send.",
	})

	// LiveMatches tracks how many managed servers are currently live
	LiveMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orangebot_live_matches",
		Help: "Matches currently live across all managed servers.",
	})

	// AttachedServers tracks the number of managed game servers
	AttachedServers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orangebot_attached_servers",
		Help: "Game servers currently managed by the bot.",
	})
)
