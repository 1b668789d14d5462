package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/nhle/support-desk/internal/credential"
	"github.com/nhle/support-desk/internal/logger"
	"github.com/nhle/support-desk/internal/model"
	"github.com/nhle/support-desk/internal/notify"
	"github.com/nhle/support-desk/internal/source/email"
	"github.com/nhle/support-desk/internal/store"
	"github.com/nhle/support-desk/internal/sync"
	"github.com/nhle/support-desk/internal/ticketid"
)

// app holds the wired components for one process.
type app struct {
	cfg    *model.AppConfig
	logger *slog.Logger
	store  *store.SQLiteStore
	poller *sync.Poller

	closers []io.Closer
}

// loadConfig reads configuration and fills the password from the keyring
// when APP_PASS is unset.
func loadConfig(path string) (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.ResolveSecrets(credential.New().AppPassword)
	return cfg, nil
}

// newApp wires the poller from cfg. maxCycles bounds Poller.Run.
func newApp(cfg *model.AppConfig, maxCycles int) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, logCloser := logger.Init(cfg.Log)

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("opening ticket store: %w", err)
	}

	clock := sync.SystemClock{}

	mailbox := email.NewIMAPClient(email.IMAPConfig{
		Host:     cfg.Mail.IMAPHost,
		Port:     cfg.Mail.IMAPPort,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		TLS:      cfg.Mail.IMAPTLS,
	}, log.With("component", "imap"))

	sender := email.NewSMTPSender(email.SMTPConfig{
		Host:       cfg.Mail.SMTPHost,
		Port:       cfg.Mail.SMTPPort,
		Username:   cfg.Mail.Username,
		Password:   cfg.Mail.Password,
		SenderName: cfg.Mail.SenderName,
		Subject:    cfg.Notify.Subject,
	}, notify.NewFileRenderer(cfg.Notify.TemplatePath), log.With("component", "smtp"))

	poller := sync.New(mailbox, st, ticketid.New(st, clock.Now), sender, sync.Options{
		Interval:  cfg.Poll.Interval,
		MaxCycles: maxCycles,
		Clock:     clock,
		Logger:    log.With("component", "poller"),
	})

	return &app{
		cfg:     cfg,
		logger:  log,
		store:   st,
		poller:  poller,
		closers: []io.Closer{st, logCloser},
	}, nil
}

// Close releases the store and log file.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("shutdown", "error", err)
		}
	}
}
