package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/payup/internal/auth"
	"github.com/mmynk/payup/internal/config"
	"github.com/mmynk/payup/internal/mail"
	"github.com/mmynk/payup/internal/notify"
	"github.com/mmynk/payup/internal/paylink"
	"github.com/mmynk/payup/internal/payment"
	"github.com/mmynk/payup/internal/reminders"
	"github.com/mmynk/payup/internal/settlement"
	"github.com/mmynk/payup/internal/statement"
	"github.com/mmynk/payup/internal/storage/sqlstore"
)

// app holds the wired components shared by the subcommands.
type app struct {
	store      *sqlstore.Store
	settler    *settlement.Settler
	machine    *reminders.Machine
	links      *auth.LinkSigner
	jwt        *auth.JWTManager
	payLinks   *paylink.Service
	dispatcher *notify.Dispatcher
	importer   *statement.Importer
}

func openStore(ctx context.Context, db config.DatabaseConfig) (*sqlstore.Store, error) {
	switch db.Driver {
	case "postgres":
		return sqlstore.NewPostgres(ctx, db.URL)
	case "sqlite":
		return sqlstore.NewSQLite(db.Path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", db.Driver)
	}
}

func newProvider(p config.PaymentConfig) payment.Provider {
	if p.ProviderURL == "" {
		slog.Warn("No payment provider configured, hosted checkouts are simulated")
		return payment.NewFakeProvider()
	}
	return payment.NewHTTPProvider(p.ProviderURL, p.Currency, p.Timeout)
}

func newMailer(m config.MailConfig) mail.Sender {
	if m.Host == "" {
		slog.Warn("No SMTP relay configured, mails are logged only")
		return mail.LogSender{}
	}
	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:     m.Host,
		Port:     m.Port,
		Username: m.Username,
		Password: m.Password,
		From:     m.From,
	})
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	slog.Info("Storage initialized", "driver", cfg.Database.Driver)

	settler := settlement.NewSettler(store)
	machine := reminders.NewMachine(store, settler)
	links := auth.NewLinkSigner(cfg.Auth.Secret, cfg.Auth.LinkTTL)

	return &app{
		store:    store,
		settler:  settler,
		machine:  machine,
		links:    links,
		jwt:      auth.NewJWTManager(cfg.Auth.Secret, cfg.Auth.SessionTTL),
		payLinks: paylink.NewService(store, settler, machine, newProvider(cfg.Payment), links, cfg.Server.BaseURL),
		dispatcher: notify.NewDispatcher(store, settler, newMailer(cfg.Mail), links, notify.Config{
			BaseURL:       cfg.Server.BaseURL,
			Cooldown:      cfg.Notify.Cooldown,
			Workers:       cfg.Notify.Workers,
			RatePerSecond: cfg.Notify.RatePerSecond,
		}),
		importer: statement.NewImporter(store, settler),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Error("Failed to close storage", "error", err)
	}
}
