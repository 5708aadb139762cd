// Package main - Entry point for the micro-credit eligibility server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	adapter "microcredit/adapters/cli"
	"microcredit/adapters/storage"
	"microcredit/api"
	"microcredit/core/rules"
	"microcredit/internal/config"
	"microcredit/internal/logging"
	"microcredit/internal/metrics"
)

const version = "1.0.0"

func main() {
	cfgPath := flag.String("config", "", "config file")
	addr := flag.String("addr", "", "server address (overrides config)")
	flag.Parse()

	if err := run(*cfgPath, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath, addr string) error {
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		return err
	}
	defer logging.Sync()

	r, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return err
	}
	history, err := storage.StoreFactory(storage.BackendFile, map[string]string{"path": cfg.History.Directory})
	if err != nil {
		return err
	}
	defer history.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	runner := adapter.NewRunAdapter(cfg, history)
	runner.SetMetrics(metrics.New(reg))

	server, err := api.NewServer(api.Options{
		Version:   version,
		Rules:     r,
		Runner:    runner,
		History:   history,
		InputRoot: cfg.Server.InputRoot,
		Gatherer:  reg,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info("micro-credit eligibility server starting",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr),
		zap.String("input_root", cfg.Server.InputRoot),
		zap.String("output_dir", cfg.Output.Directory))
	return server.ListenAndServe(ctx, cfg.Server.Addr)
}
