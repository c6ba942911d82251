package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/call"
	"bitbucket.org/yellowmessenger/voice-orchestrator/configmanager"
	"bitbucket.org/yellowmessenger/voice-orchestrator/connections"
	"bitbucket.org/yellowmessenger/voice-orchestrator/conversation"
	"bitbucket.org/yellowmessenger/voice-orchestrator/eventhandler"
	"bitbucket.org/yellowmessenger/voice-orchestrator/eventstream"
	"bitbucket.org/yellowmessenger/voice-orchestrator/globals"
	"bitbucket.org/yellowmessenger/voice-orchestrator/metrics"
	"bitbucket.org/yellowmessenger/voice-orchestrator/newrelic"
	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/asterisk"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"

	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/newrelic/go-agent/v3/integrations/nrecho-v3"
	echopprof "github.com/sevenNt/echo-pprof"
)

func main() {
	configFile := flag.String("config", "config.json", "path of the JSON config file")
	flag.Parse()

	// Initilize the config
	if err := configmanager.InitConfig(*configFile); err != nil {
		log.Fatalf("Error while initializing the config. Error: [%#v]", err)
	}
	conf := configmanager.ConfStore

	// Initialize new relic app
	if err := newrelic.InitNewRelicApp(conf.NewRelicAppName, conf.NewRelicLicense); err != nil {
		log.Fatalf("Error while initializing new relic app. Error: [%#v]", err)
	}
	e := echo.New()
	// Set the middlewares
	if newrelic.App != nil {
		e.Use(nrecho.Middleware(newrelic.App))
	}
	e.Use(middleware.Secure())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1024KB"))
	e.Use(middleware.RemoveTrailingSlash())
	e.Use(middleware.LoggerWithConfig(middleware.DefaultLoggerConfig))
	e.HideBanner = true

	// Initiliaze YM logger
	if err := ymlogger.InitYMLogger(conf.LoggerConf); err != nil {
		log.Fatalf("Failed to initialize the logger. Err: [%#v]", err)
	}
	// Initialize Metrics client
	if err := metrics.InitClient(conf.MetricsConf); err != nil {
		log.Fatalf("Failed to initialize metrics client. Error: [%#v]", err)
	}
	globals.InitCounter()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink, closeSinks := initSinks(ctx, conf)
	defer closeSinks()

	// Build the ARI control client
	ariClient, err := connections.NewARIClient()
	if err != nil {
		log.Fatalf("Error while building the ARI client. Error: [%#v]", err)
	}
	control := asterisk.NewClient(ariClient, asterisk.Options{
		URL:            conf.ARIURL,
		Username:       conf.ARIUsername,
		Password:       conf.ARIPassword,
		Application:    conf.ARIApplication,
		CommandTimeout: configmanager.Seconds(conf.CommandTimeoutSec),
	})
	waiters := asterisk.NewWaiters()

	collab, closeCollab, err := initCollaborators(ctx, conf, control, waiters)
	if err != nil {
		log.Fatalf("Error while initializing the speech and language backends. Error: [%#v]", err)
	}
	defer closeCollab()

	registry := call.NewRegistry()
	supervisor := conversation.NewSupervisor(conversation.Config{
		SilenceTimeout:     configmanager.Seconds(conf.SilenceTimeoutSec),
		MaxDuration:        configmanager.Seconds(conf.MaxCallDurationSec),
		PollInterval:       configmanager.Seconds(conf.ActivityPollSec),
		HistoryTurns:       conf.HistoryTurns,
		TerminationPhrases: conf.TerminationPhrases,
		Greeting:           conversation.Prompt(conf.Greeting),
		RepeatPrompt:       conversation.Prompt(conf.RepeatPrompt),
		Apology:            conversation.Prompt(conf.Apology),
		Farewell:           conversation.Prompt(conf.Farewell),
	}, collab, registry)

	handlers := eventhandler.NewCallHandlers(eventhandler.Config{
		ReconnectDelay:      configmanager.Seconds(conf.ReconnectDelaySec),
		CleanupTimeout:      configmanager.Seconds(conf.CleanupTimeoutSec),
		HealthPing:          configmanager.Seconds(conf.HealthPingSec),
		BridgeMode:          conf.BridgeMode,
		ExternalMediaHost:   conf.ExternalMediaHost,
		ExternalMediaFormat: conf.ExternalMediaFormat,
		DefaultRegion:       conf.DefaultRegion,
	}, registry, control, supervisor, waiters, sink)

	stream := eventstream.New(eventstream.Options{
		URL:         conf.ARIWebsocketURL,
		Application: conf.ARIApplication,
		Username:    conf.ARIUsername,
		Password:    conf.ARIPassword,
	})
	// Initialize the handler
	ymlogger.LogInfo("InitHandler", "Going to start the event loop")
	loopDone := make(chan error, 1)
	go func() { loopDone <- handlers.InitHandler(ctx, stream) }()

	// Add the routes
	AddRoutes(e, handlers)
	// Add the profiler
	echopprof.Wrap(e)

	go func() {
		address := net.JoinHostPort(conf.HTTPHost, conf.HTTPPort)
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ymlogger.LogCriticalf("HTTPServer", "Error while starting the server. Error: [%#v]", err)
			cancel()
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	exitCode := 0
	select {
	case sig := <-signals:
		ymlogger.LogInfof("Shutdown", "Received [%s], shutting down", sig)
	case err := <-loopDone:
		// only bad credentials end the loop
		ymlogger.LogCriticalf("Shutdown", "Event loop stopped. Error: [%v]", err)
		exitCode = 1
	case <-ctx.Done():
		exitCode = 1
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 2*configmanager.Seconds(conf.CleanupTimeoutSec))
	defer stop()
	if err := handlers.Shutdown(shutdownCtx); err != nil {
		ymlogger.LogErrorf("Shutdown", "Error while ending the calls. Error: [%v]", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		ymlogger.LogErrorf("Shutdown", "Error while stopping the server. Error: [%v]", err)
	}
	if newrelic.App != nil {
		newrelic.App.Shutdown(5 * time.Second)
	}
	if exitCode != 0 {
		closeCollab()
		closeSinks()
		os.Exit(exitCode)
	}
}
