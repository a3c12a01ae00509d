// Package bootstrap holds the startup sequence every cmd/*/main.go
// shares: config load, logger construction, automaxprocs, the metrics
// HTTP endpoint, and a resource.Guard sampling thread. Grounded on
// ws/main.go's startup ordering (automaxprocs -> LoadConfig -> Print ->
// server construction -> signal wait), factored into one package since
// that repo itself shares config.go/cgroup.go across cmd/single and
// cmd/multi rather than duplicating them per binary.
package bootstrap

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"

	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/config"
	"github.com/adred-codev/netcore/internal/logging"
	"github.com/adred-codev/netcore/internal/metrics"
	"github.com/adred-codev/netcore/internal/resource"
	"github.com/adred-codev/netcore/internal/subsystem"
	"github.com/adred-codev/netcore/internal/tcpsocket"
	"github.com/adred-codev/netcore/internal/threads"
)

// Init loads configuration and builds the structured logger a
// cmd/*/main.go uses for the rest of its life. serviceName tags every
// log line (logging.Config.Service).
func Init(serviceName string) (*config.Config, logging.Logger, error) {
	preLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	maxProcs := runtime.GOMAXPROCS(0)
	preLogger.Info().Int("gomaxprocs", maxProcs).Msg("automaxprocs applied")

	cfg, err := config.Load(&preLogger)
	if err != nil {
		return nil, logging.Logger{}, fmt.Errorf("bootstrap: %w", err)
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		Format:  logging.ParseFormat(cfg.LogFormat),
		Service: serviceName,
	})
	cfg.LogConfig(logger.Zerolog())
	return cfg, logger, nil
}

// StartMetricsServer mounts metrics.Handler() at /metrics and serves it
// in the background. The caller shuts it down with the returned
// *http.Server.
func StartMetricsServer(addr string, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		defer logger.RecoverPanic("metrics-server", nil)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("bootstrap: metrics server stopped", map[string]any{"error": err.Error()})
		}
	}()
	return srv
}

// StartResourceGuard builds a resource.Guard and registers a
// threads.Oscillator with parent that samples it once per
// cfg.ResourceSampleRate tick until the subsystem stops (spec.md §4.G:
// the oscillator's natural driver). It runs with a nil requester — the
// sampler has no control traffic of its own, so Oscillator simply
// sleeps out the remainder of each tick between samples.
func StartResourceGuard(parent *subsystem.Subsystem, cfg *config.Config, logger logging.Logger) *resource.Guard {
	guard := resource.NewGuard(cfg.CPURejectThreshold, cfg.CPUPauseThreshold, cfg.ResourceSampleRate, logger)
	doLoad := func(prev, next clock.Timestamp, ticksExpired int) bool {
		_ = guard.Sample()
		return true
	}
	onOverload := func(ticksExpired int) {
		logger.Warn("bootstrap: resource guard sampling fell behind", map[string]any{"ticks_expired": ticksExpired})
	}
	sampler := threads.NewOscillator("resource-guard", logger, nil, clock.FromDuration(cfg.ResourceSampleRate), doLoad, onOverload)
	parent.AddThread(sampler)
	return guard
}

// ParseEndpoint resolves a local bind address ("host:port" or ":port")
// into a tcpsocket.Endpoint.
func ParseEndpoint(addr string) (tcpsocket.Endpoint, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return tcpsocket.Endpoint{}, fmt.Errorf("bootstrap: parse endpoint %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return tcpsocket.Endpoint{}, fmt.Errorf("bootstrap: parse endpoint %q: %w", addr, err)
	}
	if host == "" {
		host = "0.0.0.0"
	}
	return tcpsocket.Endpoint{Host: host, Port: port}, nil
}

// ParseRemote resolves a dial address ("host:port") into a
// tcpsocket.AddrInfo via DNS/literal lookup.
func ParseRemote(addr string) (tcpsocket.AddrInfo, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return tcpsocket.AddrInfo{}, fmt.Errorf("bootstrap: parse remote %q: %w", addr, err)
	}
	return tcpsocket.Resolve(host, port)
}

// WaitForShutdownSignal blocks until SIGINT or SIGTERM, logs it, and
// returns a context canceled the moment a second signal arrives (for a
// forced-exit escape hatch during a stuck shutdown).
func WaitForShutdownSignal(logger logging.Logger) context.Context {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	logger.Access("shutdown signal received", nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-sigCh
		logger.Warn("second shutdown signal received, forcing exit", nil)
		cancel()
	}()
	return ctx
}

// StopMetricsServer shuts srv down, bounded by timeout.
func StopMetricsServer(srv *http.Server, timeout time.Duration, logger logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("bootstrap: metrics server shutdown error", map[string]any{"error": err.Error()})
	}
}
