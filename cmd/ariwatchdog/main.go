package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bitbucket.org/yellowmessenger/voice-orchestrator/configmanager"
	"bitbucket.org/yellowmessenger/voice-orchestrator/connections"
	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/asterisk"
	"bitbucket.org/yellowmessenger/voice-orchestrator/watchdog"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

func main() {
	configFile := flag.String("config", "config.json", "path of the JSON config file")
	flag.Parse()

	if err := configmanager.InitConfig(*configFile); err != nil {
		log.Fatalf("Error while initializing the config. Error: [%#v]", err)
	}
	conf := configmanager.ConfStore
	logConf := conf.LoggerConf
	logConf.ProcessName = "ariwatchdog"
	if err := ymlogger.InitYMLogger(logConf); err != nil {
		log.Fatalf("Failed to initialize the logger. Err: [%#v]", err)
	}

	wConf := conf.WatchdogConf
	if len(wConf.ClientCommand) == 0 {
		ymlogger.LogCritical("Watchdog", "watchdog.client_command is empty, nothing to supervise")
		os.Exit(1)
	}

	// REST only, the watchdog must not subscribe to the application itself
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
	proc := watchdog.NewExecProcess(wConf.ClientCommand, wConf.ProcessPattern, wConf.ClientLogFileName)
	w := watchdog.New(watchdog.Config{
		Application:   conf.ARIApplication,
		CheckInterval: configmanager.Seconds(wConf.CheckIntervalSec),
		SettleDelay:   configmanager.Seconds(wConf.SettleDelaySec),
		StartupGrace:  configmanager.Seconds(wConf.StartupGraceSec),
		RecheckDelay:  configmanager.Seconds(wConf.RecheckDelaySec),
		MaxRestarts:   wConf.MaxRestarts,
		RestartWindow: configmanager.Seconds(wConf.RestartWindowSec),
	}, control, proc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ymlogger.LogInfof("Watchdog", "Supervising [%v] for application [%s]", wConf.ClientCommand, conf.ARIApplication)
	w.Run(ctx)
	ymlogger.LogInfo("Watchdog", "Stopped")
}
