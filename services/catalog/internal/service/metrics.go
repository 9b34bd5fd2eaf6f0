package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reviewsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_reviews_created_total",
		Help: "Total number of reviews created",
	})

	reviewsUpdated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reviews_updated_total",
			Help: "Total number of reviews updated, by whether the rating changed",
		},
		[]string{"rating_changed"},
	)

	histogramAdjustments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_histogram_adjustments_total",
			Help: "Per-star rating bucket adjustments by outcome",
		},
		[]string{"outcome"},
	)

	booksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_books_created_total",
		Help: "Total number of books added to the catalog",
	})

	mutationsThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_mutations_rate_limited_total",
		Help: "Review mutations rejected by the per-user rate limit",
	})
)
