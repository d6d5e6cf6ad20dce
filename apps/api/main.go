// Command api runs the development backend: the REST surface of the school administration API,
// backed by in-memory tables. Point the admin client's apiBaseURLLocal at it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trezcool/masomo-admin/apps/api/echo"
	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/services/logger"
	"github.com/trezcool/masomo-admin/storage/database/inmem"
)

const shutdownTimeout = 5 * time.Second

func main() {
	conf := core.NewConfig()
	logger := logsvc.New("API", os.Stdout, conf)

	db, err := inmemdb.Open()
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = db.Seed(conf.MockAPI.SeedUsername, conf.MockAPI.SeedPassword); err != nil {
		logger.Fatal(fmt.Sprintf("seeding database: %v", err), err)
	}
	if conf.MockAPI.SeedPassword == "" {
		logger.Warn("no seedPassword set: nobody can log in")
	}

	server := echoapi.NewServer(&echoapi.Options{
		Address:            conf.MockAPI.Host,
		Debug:              conf.Debug,
		TestMode:           conf.TestMode,
		AppName:            conf.AppName,
		SecretKey:          conf.MockAPI.SecretKey,
		JWTExpirationDelta: conf.MockAPI.JWTExpirationDelta,
		AuthScheme:         conf.API.AuthScheme,
		DB:                 db,
		Logger:             logger,
	})

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	go server.Start()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = server.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}
