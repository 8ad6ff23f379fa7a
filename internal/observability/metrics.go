package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rescuelink_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rescuelink_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	sosCasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rescuelink_sos_cases_total",
			Help: "SOS cases by lifecycle event.",
		},
		[]string{"event", "mode"},
	)
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rescuelink_notifications_created_total",
			Help: "Notification records created by type.",
		},
		[]string{"type"},
	)
	deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rescuelink_deliveries_total",
			Help: "Out-of-band deliveries by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)
	realtimeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rescuelink_realtime_events_total",
			Help: "Realtime pushes by event and whether the recipient was online.",
		},
		[]string{"event", "delivered"},
	)
	reminderSweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rescuelink_reminder_sweeps_total",
			Help: "Reminder sweeps by outcome.",
		},
		[]string{"outcome"},
	)
	remindersSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rescuelink_reminders_sent_total",
			Help: "Reminder notifications created by the sweeper.",
		},
	)
	eventPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rescuelink_event_publish_errors_total",
			Help: "Total number of domain event publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		sosCasesTotal,
		notificationsTotal,
		deliveriesTotal,
		realtimeEventsTotal,
		reminderSweepsTotal,
		remindersSentTotal,
		eventPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// RegisterConnectionGauges exposes live websocket counts read on scrape.
func RegisterConnectionGauges(connections, online func() int) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "rescuelink_ws_connections",
			Help: "Open websocket connections.",
		}, func() float64 { return float64(connections()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "rescuelink_ws_online_users",
			Help: "Users with a bound websocket connection.",
		}, func() float64 { return float64(online()) }),
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func IncSOSEvent(event, mode string) {
	sosCasesTotal.WithLabelValues(event, mode).Inc()
}

func IncNotification(notificationType string) {
	notificationsTotal.WithLabelValues(notificationType).Inc()
}

func IncDelivery(channel string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	deliveriesTotal.WithLabelValues(channel, outcome).Inc()
}

func IncRealtimeEvent(event string, delivered bool) {
	realtimeEventsTotal.WithLabelValues(event, strconv.FormatBool(delivered)).Inc()
}

func IncReminderSweep(outcome string) {
	reminderSweepsTotal.WithLabelValues(outcome).Inc()
}

func AddRemindersSent(n int) {
	remindersSentTotal.Add(float64(n))
}

func IncEventPublishError() {
	eventPublishErrorsTotal.Inc()
}
