package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/the-lightning-land/wifid/api"
	"github.com/the-lightning-land/wifid/daemon"
	"github.com/the-lightning-land/wifid/network"
	"github.com/the-lightning-land/wifid/wifidb"

	// Blank import to set up profiling HTTP handlers.
	_ "net/http/pprof"
)

var (
	// Commit stores the current commit hash of this build. This should be set using -ldflags during compilation.
	Commit string
	// Version stores the version string of this build. This should be set using -ldflags during compilation.
	Version string
	// Date stores the date of this build. This should be set using -ldflags during compilation.
	Date string
)

// wifidMain is the true entry point for wifid. This is required since defers
// created in the top-level scope of a main method aren't executed if os.Exit() is called.
func wifidMain() error {
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)

	// Load CLI configuration and defaults
	cfg, err := loadConfig()
	if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		return nil
	} else if err != nil {
		return errors.Errorf("Failed parsing arguments: %v", err)
	}

	// Set logger into debug mode if called with --debug
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		log.Info("Setting debug mode.")
	}

	log.Debug("Loaded config.")

	// Print version of the daemon
	log.Infof("Version %s (commit %s)", Version, Commit)
	log.Infof("Built on %s", Date)

	// Stop here if only version was requested
	if cfg.ShowVersion {
		return nil
	}

	if cfg.Profiling.Listen != "" {
		go func() {
			log.Infof("Starting profiling server on %v", cfg.Profiling.Listen)
			// Redirect the root path
			http.Handle("/", http.RedirectHandler("/debug/pprof", http.StatusSeeOther))
			// All other handlers are registered on DefaultServeMux through the import of pprof
			err := http.ListenAndServe(cfg.Profiling.Listen, nil)
			if err != nil {
				log.Errorf("Could not run profiler: %v", err)
			}
		}()
	}

	// wifi.db journals every connection outcome
	wifiDB, err := wifidb.Open(cfg.DataDir)
	if err != nil {
		return errors.Errorf("Could not open wifi.db: %v", err)
	}

	log.Infof("Opened wifi.db")

	defer func() {
		err := wifiDB.Close()
		if err != nil {
			log.Errorf("Could not close wifi.db: %v", err)
		} else {
			log.Info("Closed wifi.db.")
		}
	}()

	// The station side of the networking stack
	var n network.Network

	switch cfg.Net {
	case "wpa":
		n = network.NewWpaNetwork(&network.WpaConfig{
			Interface: cfg.Wpa.Interface,
			Logger:    log.WithField("system", "network"),
		})

		log.Infof("Created wpa_supplicant network on %v.", cfg.Wpa.Interface)
	case "mock":
		n = network.NewMockNetwork(&network.MockConfig{
			Aps:    cfg.mockAps,
			Delay:  cfg.Mock.Delay,
			Logger: log.WithField("system", "network"),
		})

		log.Infof("Created a mock network with %d access points.", len(cfg.mockAps))
	default:
		return errors.Errorf("Unknown networking type %v", cfg.Net)
	}

	// create subsystem responsible for the http api
	a := api.New(&api.Config{
		Gatherer: prometheus.DefaultGatherer,
		Logger:   log.WithField("system", "api"),
	})

	log.Infof("Created API")

	// central controller keeping the station connected
	d := daemon.New(&daemon.Config{
		Network:          n,
		DB:               wifiDB,
		Credentials:      cfg.credentials,
		Reconnect:        cfg.Reconnect,
		ReconnectInitial: cfg.ReconnectPolicy.Initial,
		ReconnectMax:     cfg.ReconnectPolicy.Max,
		Api:              a,
		ApiListen:        cfg.Api.Listen,
		Registerer:       prometheus.DefaultRegisterer,
		Logger:           log.WithField("system", "daemon"),
		ConnectorLogger:  log.WithField("system", "connector"),
	})

	log.Infof("Created daemon with %d configured access points.", len(cfg.credentials))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Log when the station goes online or offline
	go func() {
		reporter := d.Connectivity()
		state := reporter.CurrentState()

		for reporter.WaitForStateChange(ctx, state) {
			state = reporter.CurrentState()
			log.Infof("Station is %v", state)
		}
	}()

	// Handle interrupt signals correctly
	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		sig := <-signals
		log.Info(sig)
		log.Info("Received an interrupt, stopping daemon...")
		d.Shutdown()
	}()

	// blocks until the daemon is shut down
	err = d.Run()
	if err != nil {
		return errors.Errorf("Failed running daemon: %v", err)
	}

	// finish with no error
	return nil
}

func main() {
	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	if err := wifidMain(); err != nil {
		log.WithError(err).Println("Failed running wifid.")
		os.Exit(1)
	}
}
