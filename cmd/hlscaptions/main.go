/*
DESCRIPTION
  hlscaptions is a command-line tool that walks an HLS playlist,
  follows the lowest-bitrate rendition, fetches its segments, and
  prints every closed caption it finds to standard output as
  tab-separated "segment-url<TAB>caption" lines.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package hlscaptions is the command-line entry point for the HLS
// closed-caption finder.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ausocean/utils/logging"

	"github.com/benburkhart1/hlscaptionfinder/config"
	"github.com/benburkhart1/hlscaptionfinder/fetch"
	"github.com/benburkhart1/hlscaptionfinder/inspect"
)

// Current software version.
const version = "v1.0.0"

// progress reporting cadence: log a summary line every N segments.
const progressEvery = 10

func main() {
	cfg := config.Default()

	showVersion := flag.Bool("version", false, "show version")
	flag.StringVar(&cfg.PlaylistURL, "playlist", "", "HLS playlist URL (master or media)")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent segment fetches per poll tick")
	flag.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "HTTP retry attempts before a fetch is fatal")
	flag.Float64Var(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "sustained requests per second to the origin")
	flag.DurationVar(&cfg.PollInterval, "poll-interval", 0, "override live-playlist poll interval (0 uses #EXT-X-TARGETDURATION)")
	flag.StringVar(&cfg.LogPath, "log-path", cfg.LogPath, "rolling log file path")
	flag.BoolVar(&cfg.Verbose, "v", false, "enable debug logging")
	flag.BoolVar(&cfg.MetricsEnabled, "metrics", false, "serve Prometheus metrics")
	flag.StringVar(&cfg.MetricsAddress, "metrics-address", cfg.MetricsAddress, "Prometheus metrics listen address")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "hlscaptions:", err)
		os.Exit(2)
	}

	fileLog := &lumberjack.Logger{
		Filename:   cfg.LogPath,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
	}

	logLevel := logging.Info
	if cfg.Verbose {
		logLevel = logging.Debug
	}
	log := logging.New(logLevel, io.MultiWriter(fileLog, os.Stderr), false)
	log.Info("starting hlscaptions", "version", version, "playlist", cfg.PlaylistURL)

	metrics := newMetrics(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		go serveMetrics(cfg.MetricsAddress, log)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	client := fetch.New(log,
		fetch.WithMaxAttempts(cfg.MaxAttempts),
		fetch.WithRateLimit(cfg.RateLimit),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
	)

	sink := &stdoutSink{metrics: metrics, log: log}
	runner := inspect.NewRunner(client, sink, log, cfg.Workers).WithPollInterval(cfg.PollInterval)

	if err := runner.Run(ctx, cfg.PlaylistURL); err != nil {
		log.Error("run failed", "error", err.Error())
		sink.summarize()
		os.Exit(1)
	}

	sink.summarize()
	log.Info("hlscaptions finished")
}

// stdoutSink writes "url\tcaption" lines to standard output and logs
// progress every progressEvery segments.
type stdoutSink struct {
	mu       sync.Mutex
	log      logging.Logger
	metrics  *metrics
	segments int
	captions int
}

func (s *stdoutSink) Segment(url string, captions []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.segments++
	s.captions += len(captions)
	s.metrics.observeSegment(len(captions))

	for _, c := range captions {
		fmt.Printf("%s\t%s\n", url, c)
	}

	if s.segments%progressEvery == 0 {
		s.log.Info("progress", "segments", s.segments, "captions", s.captions)
	}
}

func (s *stdoutSink) FetchError(url string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.observeFetchError()
	s.log.Warning("segment skipped after fetch failure", "url", url, "error", err.Error())
}

func (s *stdoutSink) summarize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Info("summary", "segments", s.segments, "captions", s.captions)
}

// metrics holds the optional Prometheus counters described by the
// design notes. When disabled, its methods are no-ops: metrics itself
// is never nil, but its counters are.
type metrics struct {
	enabled          bool
	segmentsTotal    prometheus.Counter
	captionsTotal    prometheus.Counter
	fetchErrorsTotal prometheus.Counter
}

func newMetrics(enabled bool) *metrics {
	m := &metrics{enabled: enabled}
	if !enabled {
		return m
	}
	m.segmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hlscaptions_segments_processed_total",
		Help: "Number of segments fetched and decoded.",
	})
	m.captionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hlscaptions_captions_emitted_total",
		Help: "Number of caption strings emitted.",
	})
	m.fetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hlscaptions_segment_fetch_errors_total",
		Help: "Number of segment fetches that failed after all retries.",
	})
	return m
}

func (m *metrics) observeSegment(captions int) {
	if !m.enabled {
		return
	}
	m.segmentsTotal.Inc()
	m.captionsTotal.Add(float64(captions))
}

func (m *metrics) observeFetchError() {
	if !m.enabled {
		return
	}
	m.fetchErrorsTotal.Inc()
}

func serveMetrics(addr string, log logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Info("serving metrics", "address", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("metrics server failed", "error", err.Error())
	}
}
