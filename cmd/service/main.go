// Command service runs a standalone broker.Service (spec.md §4.M): it
// accepts up to NETCORE_BROKER_MAX_CLIENTS connections on
// NETCORE_BROKER_SERVICE_ADDR and broadcasts every received line to
// every connected client, the sender included. Grounded on ws/main.go's startup
// sequence and ws/internal/multi's many-connection fanout shape.
package main

import (
	"fmt"
	"os"

	"github.com/adred-codev/netcore/internal/bootstrap"
	"github.com/adred-codev/netcore/internal/broker"
	"github.com/adred-codev/netcore/internal/fabric"
	"github.com/adred-codev/netcore/internal/subsystem"
)

// consumerFunc adapts a plain function to fabric.Consumer[T]; the
// fabric package defines only the Push interface, not a func adapter.
type consumerFunc[T any] func(T) bool

func (f consumerFunc[T]) Push(msg T) bool { return f(msg) }

func main() {
	cfg, logger, err := bootstrap.Init("netcore-service")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	metricsSrv := bootstrap.StartMetricsServer(cfg.MetricsAddr, logger)

	local, err := bootstrap.ParseEndpoint(cfg.BrokerServiceAddr)
	if err != nil {
		logger.Error("service: parse service address failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	root := subsystem.New("service", subsystem.WithLogger(logger))
	guard := bootstrap.StartResourceGuard(root, cfg, logger)

	var svc *broker.Service[string]
	relay := consumerFunc[string](func(msg string) bool {
		svc.Broadcast(msg)
		return true
	})

	svc = broker.NewService[string](
		root, "broker-service", local, cfg.BrokerMaxClients, fabric.CopyCloner[string]{}, broker.NewLineCodec(),
		broker.WithServiceLogger[string](logger),
		broker.WithAcceptRateLimit[string](cfg.BrokerAcceptRatePerSec, cfg.BrokerAcceptBurst),
		broker.WithServiceHooks[string](broker.Hooks[string]{
			OnReceiveMessage: func(msg string) bool {
				if guard.ShouldRejectConnections() {
					logger.Warn("service: dropping message, host overloaded", nil)
					return false
				}
				return true
			},
		}),
		broker.WithServiceConsumers[string](relay),
	)

	if err := root.Start(); err != nil {
		logger.Error("service: start failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	logger.Access("service: started", map[string]any{
		"service_addr": cfg.BrokerServiceAddr,
		"max_clients":  cfg.BrokerMaxClients,
	})

	bootstrap.WaitForShutdownSignal(logger)

	root.Stop()
	bootstrap.StopMetricsServer(metricsSrv, cfg.ClockTimeout, logger)
	logger.Access("service: stopped", nil)
}
