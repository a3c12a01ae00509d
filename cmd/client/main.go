// Command client runs a standalone ClientConnection (spec.md §4.K):
// it dials NETCORE_BROKER_CLIENT_ADDR, echoes every line it reads from
// stdin to the remote, and logs every line it receives back. Grounded
// on ws/main.go's startup sequence (automaxprocs -> config -> server ->
// signal wait), generalized from that single hard-wired WebSocket
// fanout server to the toolkit's generic broker connector.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/adred-codev/netcore/internal/bootstrap"
	"github.com/adred-codev/netcore/internal/broker"
	"github.com/adred-codev/netcore/internal/fabric"
	"github.com/adred-codev/netcore/internal/subsystem"
)

func main() {
	cfg, logger, err := bootstrap.Init("netcore-client")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	metricsSrv := bootstrap.StartMetricsServer(cfg.MetricsAddr, logger)

	remote, err := bootstrap.ParseRemote(cfg.BrokerClientAddr)
	if err != nil {
		logger.Error("client: resolve remote failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	root := subsystem.New("client", subsystem.WithLogger(logger))
	bootstrap.StartResourceGuard(root, cfg, logger)

	conn := broker.NewClientConnection[string](
		root, "broker-client", remote, fabric.CopyCloner[string]{}, broker.NewLineCodec(),
		broker.WithLogger[string](logger),
		broker.WithHooks[string](broker.Hooks[string]{
			OnReceiveMessage: func(msg string) bool {
				logger.Access("client: received message", map[string]any{"message": msg})
				return true
			},
			OnConnectException: func(err error) {
				logger.Warn("client: connect attempt failed", map[string]any{"error": err.Error()})
			},
			OnDisconnected: func(aborted bool) {
				logger.Warn("client: disconnected", map[string]any{"aborted": aborted})
			},
		}),
	)

	if err := root.Start(); err != nil {
		logger.Error("client: start failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	logger.Access("client: started", map[string]any{"remote": cfg.BrokerClientAddr})

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			conn.Send(scanner.Text())
		}
	}()

	bootstrap.WaitForShutdownSignal(logger)

	root.Stop()
	bootstrap.StopMetricsServer(metricsSrv, cfg.ClockTimeout, logger)
	logger.Access("client: stopped", nil)
}
