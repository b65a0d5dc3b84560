package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"umservice/internal/config"
	"umservice/internal/daemonrun"
	"umservice/internal/logging"
)

func main() {
	configFlag := flag.String("config", "", "configuration file path")
	endpointFlag := flag.String("endpoint", "", "IPC endpoint override")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromOptions(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir, "umserviced.log")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if err := daemonrun.Run(ctx, cfg, *endpointFlag, logger); err != nil {
		logger.Error("service exited", logging.Error(err))
		log.Fatalf("umserviced: %v", err)
	}
}
