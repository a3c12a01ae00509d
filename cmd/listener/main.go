// Command listener runs a standalone ListeningConnection (spec.md
// §4.L): it accepts one peer at a time on NETCORE_BROKER_LISTEN_ADDR,
// logs every line received, and echoes it back. Grounded on ws/main.go's
// startup sequence, generalized to the single-peer broker connector.
package main

import (
	"fmt"
	"os"

	"github.com/adred-codev/netcore/internal/bootstrap"
	"github.com/adred-codev/netcore/internal/broker"
	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/fabric"
	"github.com/adred-codev/netcore/internal/subsystem"
	"github.com/adred-codev/netcore/internal/threads"
)

func main() {
	cfg, logger, err := bootstrap.Init("netcore-listener")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	metricsSrv := bootstrap.StartMetricsServer(cfg.MetricsAddr, logger)

	local, err := bootstrap.ParseEndpoint(cfg.BrokerListenAddr)
	if err != nil {
		logger.Error("listener: parse listen address failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	root := subsystem.New("listener", subsystem.WithLogger(logger))
	bootstrap.StartResourceGuard(root, cfg, logger)

	conn := broker.NewListeningConnection[string](
		root, "broker-listener", local, fabric.CopyCloner[string]{}, broker.NewLineCodec(),
		broker.WithListeningLogger[string](logger),
		broker.WithListeningHooks[string](broker.Hooks[string]{
			OnSenderConnected: func() {
				logger.Access("listener: peer connected", nil)
			},
			OnReceiverDisconnect: func(aborted bool) {
				logger.Warn("listener: peer disconnected", map[string]any{"aborted": aborted})
			},
		}),
	)

	inbox := fabric.NewQueue[string](cfg.QueueCapacity)
	var echoer *threads.Worker
	echoer = threads.NewWorker("listener-echo", logger, func() {
		sub := fabric.Subscribe[string](conn.Output(), inbox)
		defer sub.Close()
		for !echoer.ShouldTerminate() {
			msg, ok := inbox.Pop(clock.FromDuration(cfg.ClockTimeout).Limit())
			if !ok {
				continue
			}
			logger.Access("listener: received message", map[string]any{"message": msg})
			conn.Send(msg)
		}
	})
	root.AddThread(echoer)

	if err := root.Start(); err != nil {
		logger.Error("listener: start failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	logger.Access("listener: started", map[string]any{"listen_addr": cfg.BrokerListenAddr})

	bootstrap.WaitForShutdownSignal(logger)

	root.Stop()
	bootstrap.StopMetricsServer(metricsSrv, cfg.ClockTimeout, logger)
	logger.Access("listener: stopped", nil)
}
