package bot

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	UpdatesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Inbound messages processed, by kind of handling",
		},
		[]string{"kind"},
	)
	Redemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_redemptions_total",
			Help: "Redeem attempts, by result",
		},
		[]string{"result"},
	)
	BroadcastMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_broadcast_messages_total",
			Help: "Broadcast deliveries, by status",
		},
		[]string{"status"},
	)
	InstancesStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_instances_started_total",
			Help: "Bot instances constructed by the registry",
		},
	)
)

func init() {
	prometheus.MustRegister(UpdatesProcessed)
	prometheus.MustRegister(Redemptions)
	prometheus.MustRegister(BroadcastMessages)
	prometheus.MustRegister(InstancesStarted)
}
