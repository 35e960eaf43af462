// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"firestige.xyz/stackparse/pkg/dissect"
)

var (
	// PacketsDissectedTotal counts packets handed to the parser by source
	PacketsDissectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackparse_packets_dissected_total",
			Help: "Total number of packets dissected",
		},
		[]string{"source"},
	)

	// PacketsFilteredTotal counts packets rejected by the BPF pre-filter
	PacketsFilteredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackparse_packets_filtered_total",
			Help: "Total number of packets rejected by the filter",
		},
		[]string{"source"},
	)

	// LayersTotal counts valid layers by protocol
	LayersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackparse_layers_total",
			Help: "Total number of valid layers by protocol",
		},
		[]string{"protocol"},
	)

	// StackEndsTotal counts where dissection stopped, by innermost valid layer
	StackEndsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackparse_stack_ends_total",
			Help: "Total number of stacks by innermost valid protocol",
		},
		[]string{"protocol"},
	)

	// PaddingBytesTotal counts trailer bytes excluded from inner layers
	PaddingBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stackparse_padding_bytes_total",
			Help: "Total number of padding bytes declared by outer layers",
		},
	)

	// StackDepth measures the number of valid layers per packet
	StackDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stackparse_stack_depth",
			Help:    "Number of valid layers per packet",
			Buckets: prometheus.LinearBuckets(0, 1, 9), // 0..8
		},
	)

	// CaptureDropsTotal counts packets dropped by the kernel during capture
	CaptureDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackparse_capture_drops_total",
			Help: "Total number of packets dropped during capture",
		},
		[]string{"interface"},
	)
)

// ObserveSummary records one dissected packet.
func ObserveSummary(s dissect.Summary) {
	for _, l := range s.Layers {
		LayersTotal.WithLabelValues(l.Protocol.String()).Inc()
	}
	StackEndsTotal.WithLabelValues(s.Last().String()).Inc()
	if len(s.Layers) > 0 {
		// Padding accumulates inward; the largest value is the packet total.
		PaddingBytesTotal.Add(float64(maxPadding(s.Layers)))
	}
	StackDepth.Observe(float64(s.Depth()))
}

func maxPadding(layers []dissect.LayerInfo) int {
	m := 0
	for _, l := range layers {
		if l.Padding > m {
			m = l.Padding
		}
	}
	return m
}
