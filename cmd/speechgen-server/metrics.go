package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeGenerations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "speechgen_active_generations",
		Help: "Number of in-flight speech generations",
	})

	generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speechgen_generations_total",
		Help: "Total number of speech generations by outcome",
	}, []string{"outcome"})

	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "speechgen_generation_duration_seconds",
		Help:    "Wall-clock duration of speech generations in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})

	audioBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speechgen_audio_bytes_total",
		Help: "Total PCM bytes streamed to clients",
	})
)

// recordGeneration reports a finished generation to the metric set.
func recordGeneration(outcome string, started time.Time, audioBytes int) {
	generationsTotal.WithLabelValues(outcome).Inc()
	generationDuration.Observe(time.Since(started).Seconds())
	if audioBytes > 0 {
		audioBytesTotal.Add(float64(audioBytes))
	}
}
