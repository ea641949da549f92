package epg

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_epg_feeds_ingested_total",
		Help: "EPG feed downloads by outcome.",
	}, []string{"status"})

	programmesIngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptv_epg_programmes_ingested_total",
		Help: "Programmes added to the guide index.",
	})

	programmesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptv_epg_programmes_skipped_total",
		Help: "Programme elements dropped for missing or unparsable fields.",
	})

	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_epg_resolutions_total",
		Help: "Channel identity resolutions by matching strategy.",
	}, []string{"strategy"})
)
