// orangebot - competitive match management for CS:GO servers
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/orangebot/orangebot/internal/api"
	"github.com/orangebot/orangebot/internal/collector"
	"github.com/orangebot/orangebot/internal/config"
	"github.com/orangebot/orangebot/internal/match"
	"github.com/orangebot/orangebot/internal/storage"
)

var version = "dev"

const defaultConfigPath = "/etc/orangebot/config.yml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "version":
		fmt.Printf("orangebot %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: orangebot <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve      Start the bot")
	fmt.Println("  version    Show version")
	fmt.Println("  help       Show this help")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <path>    Path to configuration file (default /etc/orangebot/config.yml)")
	fmt.Println("  --debug            Enable debug logging")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  orangebot serve --config ./config.yml")
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Parse(args)

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfgPath := *configPath
	if cfgPath == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			cfgPath = defaultConfigPath
		} else {
			logrus.Fatalf("No config file found at %s. Use --config to specify one.", defaultConfigPath)
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logrus.WithField("error", err.Error()).Fatal("could not load config")
	}

	logrus.WithFields(logrus.Fields{
		"version": version,
		"servers": len(cfg.Servers),
	}).Info("orangebot starting")

	// Result history is optional; without a database the bot still runs
	// matches, it just forgets them.
	var store *storage.Store
	var results match.ResultSink
	if cfg.Database.Path != "" {
		store, err = storage.New(cfg.Database.Path)
		if err != nil {
			logrus.WithField("error", err.Error()).Fatal("could not open database")
		}
		defer store.Close()
		results = store
		logrus.WithField("path", cfg.Database.Path).Info("result history enabled")
	}

	manager := collector.NewServerManager(cfg, results)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.Start(ctx); err != nil {
		logrus.WithField("error", err.Error()).Fatal("could not start server manager")
	}

	router := api.NewRouter(manager, store)
	go router.Hub().Run()
	go func() {
		for ev := range manager.Events() {
			router.Hub().Broadcast(ev)
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.ListenAddr, cfg.HTTP.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logrus.WithField("addr", addr).Info("http server listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		logrus.WithField("signal", sig.String()).Info("shutting down")
	case err := <-serverErr:
		logrus.WithField("error", err.Error()).Fatal("http server failed")
	}

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := server.Shutdown(httpCtx); err != nil {
		logrus.WithField("error", err.Error()).Warn("http shutdown error")
	}

	manager.Stop()
	logrus.Info("shutdown complete")
}
