package main

import (
	"context"
	"log"
	"time"

	"github.com/kargopost/orderwizard/internal/audit"
	"github.com/kargopost/orderwizard/internal/auth"
	"github.com/kargopost/orderwizard/internal/config"
	"github.com/kargopost/orderwizard/internal/contacts"
	"github.com/kargopost/orderwizard/internal/handler"
	"github.com/kargopost/orderwizard/internal/logger"
	"github.com/kargopost/orderwizard/internal/metrics"
	"github.com/kargopost/orderwizard/internal/refdata"
	"github.com/kargopost/orderwizard/internal/store"
	"github.com/kargopost/orderwizard/internal/submit"
	"github.com/kargopost/orderwizard/internal/token"
	"github.com/kargopost/orderwizard/internal/wizard"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.GetConfig()

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}

	journal, err := store.NewJournal(cfg.Store)
	if err != nil {
		return err
	}

	auditpub, err := audit.NewPublisher(cfg.Audit)
	if err != nil {
		return err
	}
	defer auditpub.Close()

	wiz := wizard.New(cfg.Wizard,
		metrics.NewClient(cfg.Metrics),
		contacts.NewClient(cfg.ContactsAddr),
		submit.NewClient(cfg.Submit),
		journal,
		auditpub,
		zaplog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wiz.StartJanitor(ctx)

	tokens := token.NewService(cfg.TokenSecret, 24*time.Hour)
	staffAuth := auth.NewAuth(tokens, auth.Credentials{
		Login:    cfg.StaffLogin,
		Password: cfg.StaffPass,
	})

	return handler.Serve(cfg.Handler, staffAuth, wiz, refdata.NewClient(cfg.Refdata), journal, zaplog)
}
