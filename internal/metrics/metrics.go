package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters for the messaging core and the canvas auto-saver.
var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caredesk_messages_sent_total",
		Help: "Outbound messages confirmed by the gateway.",
	})
	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caredesk_send_failures_total",
		Help: "Outbound messages that failed and were marked failed in place.",
	})
	EventMerges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caredesk_event_merges_total",
		Help: "Authoritative event batches merged into local conversation state.",
	})
	CanvasAutosaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caredesk_canvas_autosaves_total",
		Help: "Canvas snapshots persisted by the auto-saver.",
	})
	CampaignSends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caredesk_campaign_sends_total",
		Help: "Individual campaign messages handed to the gateway.",
	})
)

// Handler exposes the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
