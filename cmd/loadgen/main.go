// Synthetic telemetry generator for sitepulse.
// Drives device and user events through the embedded SDK with a worker
// pool, at a configurable event rate, with Prometheus metrics for the run.
//
// Usage:
//
//	loadgen -sites 5 -devices 50 -users 20 -workers 8 -rate 200 -duration 60s
//
// Env vars:
//
//	REDIS_ADDR     — store address (default: localhost:6379)
//	REDIS_PASSWORD — store password
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	sitepulse "github.com/opsgrid/sitepulse"
	"github.com/opsgrid/sitepulse/internal/version"
)

func main() {
	cfg := parseFlags()
	log.Printf("sitepulse loadgen %s", version.String())

	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT,
	)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		cancel()
		log.Fatal(err)
	}
}

type config struct {
	sites       int
	devices     int
	users       int
	workers     int
	rate        int
	duration    time.Duration
	metricsPort string
	keyPrefix   string
}

func parseFlags() config {
	cfg := config{}
	flag.IntVar(&cfg.sites, "sites", 5, "number of synthetic sites")
	flag.IntVar(&cfg.devices, "devices", 50, "devices per site")
	flag.IntVar(&cfg.users, "users", 20, "user sessions per site")
	flag.IntVar(&cfg.workers, "workers", 8, "number of parallel ingest workers")
	flag.IntVar(&cfg.rate, "rate", 200, "events per second (0=unthrottled)")
	flag.DurationVar(&cfg.duration, "duration", 60*time.Second, "how long to run (0=until interrupted)")
	flag.StringVar(&cfg.metricsPort, "metrics-port", "9091", "Prometheus metrics port")
	flag.StringVar(&cfg.keyPrefix, "key-prefix", "", "store key prefix")
	flag.Parse()
	return cfg
}

var deviceTypes = []string{"turbine", "compressor", "pump", "chiller", "sensor"}

type genMetrics struct {
	eventsSent   *prometheus.CounterVec
	eventsFailed *prometheus.CounterVec
	sendDuration *prometheus.HistogramVec
}

func newGenMetrics(reg prometheus.Registerer) *genMetrics {
	m := &genMetrics{
		eventsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitepulse_loadgen",
			Name:      "events_sent_total",
			Help:      "Total events successfully ingested",
		}, []string{"domain"}),

		eventsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitepulse_loadgen",
			Name:      "events_failed_total",
			Help:      "Total events that failed to ingest",
		}, []string{"domain"}),

		sendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sitepulse_loadgen",
			Name:      "send_duration_seconds",
			Help:      "Ingest call duration",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"domain"}),
	}

	reg.MustRegister(m.eventsSent, m.eventsFailed, m.sendDuration)
	return m
}

func serveMetrics(port string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("metrics server on :%s/metrics", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	return srv
}

func run(ctx context.Context, cfg config) error {
	start := time.Now()

	reg := prometheus.NewRegistry()
	metrics := newGenMetrics(reg)
	metricsSrv := serveMetrics(cfg.metricsPort, reg)
	defer func() {
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		_ = metricsSrv.Shutdown(shutCtx)
	}()

	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if cfg.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.duration)
		defer cancel()
	}

	gen := &generator{
		devices:  client.Devices(),
		users:    client.Users(),
		cfg:      cfg,
		metrics:  metrics,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		workers:  cfg.workers,
		interval: rateInterval(cfg.rate),
	}
	sent, failed := gen.Run(ctx)

	elapsed := time.Since(start)
	log.Printf("DONE in %s", elapsed.Round(time.Second))
	log.Printf("  events: %d sent, %d failed", sent, failed)
	log.Printf("  rate: %.0f events/sec", float64(sent)/elapsed.Seconds())
	return nil
}

func connect(ctx context.Context, cfg config) (*sitepulse.Client, error) {
	addr := env("REDIS_ADDR", "localhost:6379")
	password := os.Getenv("REDIS_PASSWORD")

	opts := []sitepulse.Option{sitepulse.WithRedis(addr, password)}
	if cfg.keyPrefix != "" {
		opts = append(opts, sitepulse.WithKeyPrefix(cfg.keyPrefix))
	}

	client, err := sitepulse.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sitepulse connect: %w", err)
	}
	return client, nil
}

func rateInterval(rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Second / time.Duration(rate)
}

// generator drives the worker pool: producer → channel(event) → N workers.
type generator struct {
	devices  *sitepulse.TelemetryService
	users    *sitepulse.TelemetryService
	cfg      config
	metrics  *genMetrics
	rng      *rand.Rand
	workers  int
	interval time.Duration
}

type genEvent struct {
	domain string // "devices" or "users"
	event  sitepulse.Event
}

// Run produces events until ctx is done and returns (sent, failed) totals.
func (g *generator) Run(ctx context.Context) (int64, int64) {
	events := make(chan genEvent, g.workers*2)
	var wg sync.WaitGroup
	var sent, failed atomic.Int64

	for i := 0; i < g.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.worker(ctx, events, &sent, &failed)
		}()
	}

	g.produce(ctx, events)
	close(events)
	wg.Wait()

	return sent.Load(), failed.Load()
}

func (g *generator) produce(ctx context.Context, out chan<- genEvent) {
	var ticker *time.Ticker
	if g.interval > 0 {
		ticker = time.NewTicker(g.interval)
		defer ticker.Stop()
	}

	var produced int64
	lastReport := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}

		select {
		case <-ctx.Done():
			return
		case out <- g.next():
		}

		produced++
		if time.Since(lastReport) >= 10*time.Second {
			log.Printf("produced %d events", produced)
			lastReport = time.Now()
		}
	}
}

// next builds one synthetic event. Roughly 70% device telemetry, 30% user
// activity, matching a typical site traffic mix.
func (g *generator) next() genEvent {
	site := fmt.Sprintf("site-%02d", g.rng.Intn(g.cfg.sites))

	if g.rng.Intn(10) < 7 {
		dt := deviceTypes[g.rng.Intn(len(deviceTypes))]
		return genEvent{
			domain: "devices",
			event: sitepulse.Event{
				Site:     site,
				Category: dt,
				ID:       fmt.Sprintf("%s-%03d", dt, g.rng.Intn(g.cfg.devices)),
				Metrics: map[string]float64{
					"rpm":      float64(1000 + g.rng.Intn(4000)),
					"temp_c":   20 + g.rng.Float64()*60,
					"load_pct": g.rng.Float64() * 100,
				},
			},
		}
	}

	userN := g.rng.Intn(g.cfg.users)
	return genEvent{
		domain: "users",
		event: sitepulse.Event{
			Site:   site,
			ID:     fmt.Sprintf("sess-%04d", userN),
			UserID: fmt.Sprintf("user-%03d", userN),
			Metrics: map[string]float64{
				"latency_ms": 5 + g.rng.Float64()*95,
				"cpu_pct":    g.rng.Float64() * 40,
			},
		},
	}
}

func (g *generator) worker(ctx context.Context, events <-chan genEvent, sent, failed *atomic.Int64) {
	for ge := range events {
		svc := g.devices
		if ge.domain == "users" {
			svc = g.users
		}

		start := time.Now()
		err := svc.Ingest(ctx, ge.event)
		g.metrics.sendDuration.WithLabelValues(ge.domain).Observe(time.Since(start).Seconds())

		if err != nil {
			failed.Add(1)
			g.metrics.eventsFailed.WithLabelValues(ge.domain).Inc()
			if failed.Load()%100 == 1 {
				log.Printf("ingest error (%s): %v", ge.domain, err)
			}
			continue
		}
		sent.Add(1)
		g.metrics.eventsSent.WithLabelValues(ge.domain).Inc()
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
