package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	echoweb "github.com/siesnerul/resultdesk/apps/web/echo"
	"github.com/siesnerul/resultdesk/core"
	"github.com/siesnerul/resultdesk/core/session"
	logsvc "github.com/siesnerul/resultdesk/services/logger"
	"github.com/siesnerul/resultdesk/services/schoolapi"
	"github.com/siesnerul/resultdesk/storage/state"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	std := log.New(os.Stdout, "WEB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	var logger core.Logger
	if conf.Debug || conf.TestMode {
		logger = core.NewStdLogger(std)
	} else {
		rollbarLogger := logsvc.NewRollbarLogger(std, conf)
		rollbarLogger.Enable(true)
		logger = rollbarLogger
	}

	api := schoolapi.NewClient(conf, logger)
	codes := session.NewExchangeCodes([]byte(conf.SecretKey), conf.Session.ExchangeCodeTTL, conf.Session.MaxTabs)
	tabs := state.NewTabs(conf.Session.MaxTabs, conf.Session.TabTTL)
	sessionSvc := session.NewService(api, codes, logger, conf)
	cookies := echoweb.NewCookieSessions(conf)

	// =========================================================================
	// Start Web Gateway

	logger.Info(fmt.Sprintf("%s initializing : env %q", conf.AppName, conf.Env))
	defer logger.Info("Application stopped")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoweb.NewServer(
		&echoweb.Options{
			Address:        conf.Server.Addr,
			AppConf:        conf,
			Logger:         logger,
			SessionSvc:     sessionSvc,
			API:            api,
			Cookies:        cookies,
			Tabs:           tabs,
			SignalShutdown: func() { shutdown <- syscall.SIGTERM },
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}
