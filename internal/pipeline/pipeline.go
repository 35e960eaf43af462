// Package pipeline drives packets from a source through the dissector to a sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/gopacket"

	"firestige.xyz/stackparse/internal/filter"
	"firestige.xyz/stackparse/internal/metrics"
	"firestige.xyz/stackparse/internal/sink"
	"firestige.xyz/stackparse/internal/source"
	"firestige.xyz/stackparse/pkg/dissect"
)

// dropCounter is implemented by live sources that expose kernel drops.
type dropCounter interface {
	Drops() (uint64, error)
}

// rawPacket is one packet handed from the capture loop to the process loop.
type rawPacket struct {
	data []byte
	ci   gopacket.CaptureInfo
}

// Config contains pipeline configuration.
type Config struct {
	// Name labels metrics, e.g. "file" or the interface name.
	Name   string
	Source source.Source
	First  dissect.Protocol
	Mode   dissect.Mode
	Filter *filter.Filter
	Sink   sink.Sink
	// Limit stops the pipeline after this many dissected packets; 0 means no limit.
	Limit uint64
	// Retryable classifies read errors that should not end the capture,
	// such as poll timeouts on live sources.
	Retryable func(error) bool
	// BufferSize is the raw packet channel capacity.
	BufferSize int
	// DropInterval is how often kernel drops are polled.
	DropInterval time.Duration
}

// Pipeline represents a single-threaded dissection chain.
type Pipeline struct {
	cfg     Config
	metrics *Metrics

	rawPacketChan chan rawPacket
	errMu         sync.Mutex
	err           error
}

// New creates a new pipeline.
func New(cfg Config) *Pipeline {
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 1024
	}
	if cfg.Sink == nil {
		cfg.Sink = sink.Discard{}
	}
	if cfg.Retryable == nil {
		cfg.Retryable = func(error) bool { return false }
	}
	if cfg.DropInterval == 0 {
		cfg.DropInterval = 5 * time.Second
	}
	return &Pipeline{
		cfg:           cfg,
		metrics:       NewMetrics(cfg.Name),
		rawPacketChan: make(chan rawPacket, cfg.BufferSize),
	}
}

// Run processes packets until the source is exhausted, the limit is
// reached, ctx is cancelled, or a read or write fails. Context
// cancellation is not an error.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.cfg.Source == nil {
		return errors.New("pipeline: no source")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slog.Info("pipeline starting", "name", p.cfg.Name, "first", p.cfg.First, "mode", p.cfg.Mode, "filter", p.cfg.Filter.String())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.captureLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		p.processLoop(ctx, cancel)
	}()

	if dc, ok := p.cfg.Source.(dropCounter); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.dropLoop(ctx, dc)
		}()
	}

	wg.Wait()

	if err := p.cfg.Sink.Close(); err != nil {
		p.setErr(fmt.Errorf("sink close: %w", err))
	}

	st := p.Stats()
	slog.Info("pipeline stopped", "name", p.cfg.Name,
		"received", st.Received, "filtered", st.Filtered, "dissected", st.Dissected,
		"read_errors", st.ReadErrors, "write_errors", st.WriteErrors, "drops", st.Drops)

	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.err
}

func (p *Pipeline) setErr(err error) {
	p.errMu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.errMu.Unlock()
}

// captureLoop reads packets from the source and sends them to the processing channel.
func (p *Pipeline) captureLoop(ctx context.Context) {
	defer close(p.rawPacketChan)

	for ctx.Err() == nil {
		data, ci, err := p.cfg.Source.ReadPacketData()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			if p.cfg.Retryable(err) {
				continue
			}
			if ctx.Err() == nil {
				p.metrics.ReadErrors.Add(1)
				slog.Error("capture failed", "error", err, "name", p.cfg.Name)
				p.setErr(fmt.Errorf("read packet: %w", err))
			}
			return
		}

		select {
		case p.rawPacketChan <- rawPacket{data: data, ci: ci}:
		case <-ctx.Done():
			return
		}
	}
}

// processLoop is the main processing loop.
func (p *Pipeline) processLoop(ctx context.Context, stop context.CancelFunc) {
	parser := dissect.NewParser(dissect.NewView(nil), dissect.WithMode(p.cfg.Mode))
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-p.rawPacketChan:
			if !ok {
				return
			}
			if err := p.processPacket(&parser, raw); err != nil {
				p.setErr(err)
				return
			}
			if p.cfg.Limit > 0 && p.metrics.Dissected.Load() >= p.cfg.Limit {
				stop()
				return
			}
		}
	}
}

// processPacket filters, dissects and records a single packet.
func (p *Pipeline) processPacket(parser *dissect.Parser, raw rawPacket) error {
	seq := p.metrics.Received.Add(1)

	if !p.cfg.Filter.Match(raw.data) {
		p.metrics.Filtered.Add(1)
		metrics.PacketsFilteredTotal.WithLabelValues(p.cfg.Name).Inc()
		return nil
	}

	parser.Reset(dissect.NewView(raw.data))
	summary := parser.Summarize(p.cfg.First)
	p.metrics.Dissected.Add(1)
	metrics.PacketsDissectedTotal.WithLabelValues(p.cfg.Name).Inc()
	metrics.ObserveSummary(summary)

	rec := sink.Record{
		Seq:        seq,
		Timestamp:  raw.ci.Timestamp,
		CaptureLen: raw.ci.CaptureLength,
		OrigLen:    raw.ci.Length,
		Summary:    summary,
	}
	if err := p.cfg.Sink.Write(&rec); err != nil {
		p.metrics.WriteErrors.Add(1)
		return fmt.Errorf("write record %d: %w", seq, err)
	}
	p.metrics.Written.Add(1)
	return nil
}

// dropLoop mirrors the kernel drop counter into metrics.
func (p *Pipeline) dropLoop(ctx context.Context, dc dropCounter) {
	ticker := time.NewTicker(p.cfg.DropInterval)
	defer ticker.Stop()

	poll := func() {
		total, err := dc.Drops()
		if err != nil {
			slog.Debug("drop stats unavailable", "error", err)
			return
		}
		if prev := p.metrics.Drops.Swap(total); total > prev {
			metrics.CaptureDropsTotal.WithLabelValues(p.cfg.Name).Add(float64(total - prev))
		}
	}

	for {
		select {
		case <-ctx.Done():
			poll()
			return
		case <-ticker.C:
			poll()
		}
	}
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Stats {
	return p.metrics.snapshot()
}
