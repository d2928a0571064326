package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/psantana5/crashtrace/internal/buildinfo"
	"github.com/psantana5/crashtrace/internal/logging"
	"github.com/psantana5/crashtrace/internal/monitor"
	"github.com/psantana5/crashtrace/pkg/crash"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	listen := flag.String("listen", "", "Listen address override, e.g. :8080")
	printConfig := flag.Bool("print-config", false, "Print an example configuration and exit")
	flag.Parse()

	if *printConfig {
		fmt.Print(ExampleConfig)
		return
	}

	config := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			crash.HandleRootError(crash.RootFileNotFound, nil)
		}
		config = loaded
	}
	if *listen != "" {
		config.Listen = *listen
	}

	log := logging.New("crashhostd", logging.ParseLevel(config.LogLevel), config.LogJSON)
	exporter := monitor.NewExporter()

	// Install the fatal-error handler before anything else can fault. The
	// exporter summary rides along in every crash banner.
	handler := crash.Install(crash.Config{
		BaseURL:  config.ReportBaseURL,
		Verbose:  config.Verbose,
		Debug:    config.Debug || buildinfo.IsDevBuild(),
		Metadata: exporter.Summary,
		Reload: func() bool {
			log.Warn("crash handler asked for reload, none configured")
			return false
		},
	})

	hostHandler := NewHostHandler(handler, exporter, log)
	router := mux.NewRouter()
	hostHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         config.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("crashhostd listening", map[string]interface{}{"addr": config.Listen})
	log.Info("endpoints: GET /healthz, GET /metrics, POST /debug/crash/{kind}, POST /debug/root/{code}, POST /debug/report, POST /debug/recover")

	if err := srv.ListenAndServe(); err != nil {
		log.Error("server failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}
