// Package metrics declares the domain collectors exposed next to the HTTP
// metrics on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Autosaves counts debounced builder writes by result.
	Autosaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "luvnest",
		Name:      "autosaves_total",
		Help:      "Debounced builder saves by result.",
	}, []string{"result"})

	// BuilderSessions is the number of open builder sessions.
	BuilderSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "luvnest",
		Name:      "builder_sessions",
		Help:      "Open builder sessions.",
	})

	// PageViews counts view count increments.
	PageViews = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "luvnest",
		Name:      "page_views_total",
		Help:      "Counted love page views.",
	})

	// PasswordAttempts counts unlock attempts by outcome.
	PasswordAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "luvnest",
		Name:      "password_attempts_total",
		Help:      "Password unlock attempts by outcome.",
	}, []string{"outcome"})

	// MediaUploads counts stored uploads by file type.
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "luvnest",
		Name:      "media_uploads_total",
		Help:      "Stored media uploads by file type.",
	}, []string{"type"})
)
