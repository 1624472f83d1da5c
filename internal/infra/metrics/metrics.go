package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "photudio"

type Collector struct {
	reactions            *prometheus.CounterVec
	mutualReactions      prometheus.Counter
	roomsCreated         prometheus.Counter
	provisioningFailures prometheus.Counter
	messagesAccepted     prometheus.Counter
	subscribersActive    prometheus.Gauge
	subscribersDropped   prometheus.Counter
	httpResponses        *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reactions_total",
			Help:      "Reactions recorded, by whether the edge was new.",
		}, []string{"result"}),
		mutualReactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutual_reactions_total",
			Help:      "Reactions that completed a mutual pair.",
		}),
		roomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Rooms provisioned for new matches.",
		}),
		provisioningFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_provisioning_failures_total",
			Help:      "Failed attempts to provision a room for a match.",
		}),
		messagesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_accepted_total",
			Help:      "Messages persisted to a room.",
		}),
		subscribersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "room_subscribers_active",
			Help:      "Live room subscriptions currently attached.",
		}),
		subscribersDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_subscribers_dropped_total",
			Help:      "Subscriptions dropped because their buffer was full.",
		}),
		httpResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_responses_total",
			Help:      "HTTP responses by status code.",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.reactions,
		c.mutualReactions,
		c.roomsCreated,
		c.provisioningFailures,
		c.messagesAccepted,
		c.subscribersActive,
		c.subscribersDropped,
		c.httpResponses,
	)

	return c
}

func (c *Collector) ReactionRecorded(created, mutual bool) {
	result := "refreshed"
	if created {
		result = "created"
	}
	c.reactions.WithLabelValues(result).Inc()
	if mutual {
		c.mutualReactions.Inc()
	}
}

func (c *Collector) RoomCreated() {
	c.roomsCreated.Inc()
}

func (c *Collector) ProvisioningFailed() {
	c.provisioningFailures.Inc()
}

func (c *Collector) MessageAccepted() {
	c.messagesAccepted.Inc()
}

func (c *Collector) SubscriberAttached() {
	c.subscribersActive.Inc()
}

func (c *Collector) SubscriberDetached(dropped bool) {
	c.subscribersActive.Dec()
	if dropped {
		c.subscribersDropped.Inc()
	}
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpResponses.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
