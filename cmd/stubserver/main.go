package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hansamarket/go-session/internal/config"
	"github.com/hansamarket/go-session/stubserver"
)

const demoPassword = "Sw3d!shPass"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("stub server exited")
	}
	log.Info().Msg("stub server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname("Stub Auth")

	secret := []byte(config.GetEnv("STUB_SECRET", "stub-dev-secret-not-for-production"))
	stub := stubserver.New(secret, stubserver.WithLogger(log.Logger))
	seedDemoAccounts(stub)

	server := &http.Server{Addr: c.GetPort(), Handler: stub}
	go listenAndServe(server)
	waitForStopSignal()
	return shutdown(server)
}

func seedDemoAccounts(stub *stubserver.Server) {
	demo := []struct {
		email, firstName, lastName string
	}{
		{"anna@example.com", "Anna", "Andersson"},
		{"lars@example.com", "Lars", "Larsen"},
	}
	for _, account := range demo {
		id, err := stub.Seed(account.email, demoPassword, account.firstName, account.lastName)
		if err != nil {
			log.Warn().Err(err).Str("email", account.email).Msg("failed to seed demo account")
			continue
		}
		log.Info().Str("email", account.email).Str("id", id).Msg("seeded demo account")
	}
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("stub server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
