// Package main is the command-line entry point for the plantd job process:
// a worker-spawned, single-task server that announces itself to its worker
// and master, then serves remote calls for one client at a time.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/geoffjay/plantd-job/internal/config"
	"github.com/geoffjay/plantd-job/internal/health"
	"github.com/geoffjay/plantd-job/internal/job"
	"github.com/geoffjay/plantd-job/internal/logging"
	"github.com/geoffjay/plantd-job/internal/metrics"

	_ "github.com/geoffjay/plantd-job/internal/registry/echotask"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cfgFile       string
	workerAddress string
	masterAddress string

	rootCmd = &cobra.Command{
		Use:   "job",
		Short: "Run a plantd remote job worker",
		Long: `job hosts a single registered task instance and serves remote method
calls for a client, announcing itself to the worker and master that spawned it.`,
		RunE: run,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.Flags().StringVar(&workerAddress, "worker-address", "", "worker endpoint to announce to, host:port (required unless set in config)")
	rootCmd.Flags().StringVar(&masterAddress, "master-address", "", "master endpoint to announce resets to, host:port (required unless set in config)")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if workerAddress != "" {
		cfg.WorkerAddress = workerAddress
	}
	if masterAddress != "" {
		cfg.MasterAddress = masterAddress
	}
	if cfg.WorkerAddress == "" || cfg.MasterAddress == "" {
		_ = rootCmd.Help()
		return fmt.Errorf("worker-address and master-address are required, via flag or config file")
	}

	logging.Initialize(cfg.Log)

	os.Setenv("CUDA_VISIBLE_DEVICES", "")
	os.Setenv("PLANTD_JOB", "true")

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	j, err := job.New(job.Config{
		BindHost:               cfg.BindHost,
		WorkerAddress:          cfg.WorkerAddress,
		MasterAddress:          cfg.MasterAddress,
		ClientHeartbeatTimeout: cfg.ClientHeartbeatTimeout,
		WorkerHeartbeatTimeout: cfg.WorkerHeartbeatTimeout,
	}, collector)
	if err != nil {
		return err
	}

	jobAlive, clientAlive := j.Status()

	go serve(cfg.MetricsAddress, "/metrics", metrics.Handler(registry))
	go serveHealth(cfg.HealthAddress, health.Status{JobAlive: jobAlive, ClientAlive: clientAlive})

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-termChan
		log.Info("shutdown signal received")
		j.Stop()
	}()

	return j.Run()
}

func serve(addr, pattern string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(pattern, handler)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.WithFields(log.Fields{"addr": addr, "pattern": pattern, "error": err}).Error("ambient HTTP server exited")
	}
}

// serveHealth registers both the generic nelkinda/health-go liveness
// handler at "/healthz" and the custom job/client status handler at
// "/health" on the same address, mirroring state/service.go's runHealth.
func serveHealth(addr string, status health.Status) {
	mux := http.NewServeMux()
	mux.Handle("/healthz", health.Handler())
	mux.Handle("/health", health.StatusHandler(status))
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.WithFields(log.Fields{"addr": addr, "error": err}).Error("health HTTP server exited")
	}
}
