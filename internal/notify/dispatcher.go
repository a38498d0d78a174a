// Package notify runs the periodic sweep that mails pay-up reminders to
// everyone who still owes money and "did you pay?" prompts for open reminders.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mmynk/payup/internal/auth"
	"github.com/mmynk/payup/internal/calculator"
	"github.com/mmynk/payup/internal/mail"
	"github.com/mmynk/payup/internal/metrics"
	"github.com/mmynk/payup/internal/models"
	"github.com/mmynk/payup/internal/settlement"
	"github.com/mmynk/payup/internal/storage"
)

// Config tunes a Dispatcher.
type Config struct {
	// BaseURL prefixes the links placed in mails.
	BaseURL string

	// Cooldown skips pairs reminded more recently than this.
	Cooldown time.Duration

	// Workers bounds concurrent sends.
	Workers int

	// RatePerSecond paces sends; zero disables pacing.
	RatePerSecond float64
}

// Report summarizes one sweep.
type Report struct {
	Pairs   int
	Sent    int64
	Skipped int64
	Failed  int64
	Prompts int64
}

// Dispatcher sends the mails of a sweep.
type Dispatcher struct {
	store   storage.Store
	settler *settlement.Settler
	mailer  mail.Sender
	links   *auth.LinkSigner
	cfg     Config
	limiter *rate.Limiter
	now     func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(store storage.Store, settler *settlement.Settler, mailer mail.Sender, links *auth.LinkSigner, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Dispatcher{
		store:   store,
		settler: settler,
		mailer:  mailer,
		links:   links,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Workers),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Sweep settles open shares and mails every holder of a nonzero pair. A
// failed send is logged and counted; it never stops the other sends and is
// not retried until the next sweep.
func (d *Dispatcher) Sweep(ctx context.Context) (*Report, error) {
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	result, err := d.settler.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("settlement run failed: %w", err)
	}

	prompts, err := d.store.ListUnnotifiedReminders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}

	users, err := d.store.GetUsersByIDs(ctx, involvedUsers(result.Balances, prompts))
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	var sent, skipped, failed, prompted atomic.Int64
	now := d.now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Workers)

	for _, net := range result.Balances {
		if net.LastNotifiedAt != nil && now.Sub(*net.LastNotifiedAt) < d.cfg.Cooldown {
			skipped.Add(1)
			continue
		}
		holder, receiver := users[net.Holder], users[net.Receiver]
		if holder == nil || receiver == nil {
			slog.Warn("Sweep: user missing for open pair", "holder_id", net.Holder, "receiver_id", net.Receiver)
			skipped.Add(1)
			continue
		}

		g.Go(func() error {
			if err := d.limiter.Wait(gctx); err != nil {
				return err
			}
			if !d.sendPayUp(gctx, net, holder, receiver) {
				failed.Add(1)
				return nil
			}
			sent.Add(1)
			if err := d.store.MarkSharesNotified(gctx, net.ShareIDs, now); err != nil {
				slog.Error("Sweep: failed to stamp shares", "holder_id", net.Holder, "error", err)
			}
			return nil
		})
	}

	for _, r := range prompts {
		holder, receiver := users[r.HolderID], users[r.ReceiverID]
		if holder == nil || receiver == nil {
			skipped.Add(1)
			continue
		}

		g.Go(func() error {
			if err := d.limiter.Wait(gctx); err != nil {
				return err
			}
			if !d.sendPrompt(gctx, r, holder, receiver) {
				failed.Add(1)
				return nil
			}
			prompted.Add(1)
			if err := d.store.MarkReminderNotified(gctx, r.ID, now); err != nil {
				slog.Error("Sweep: failed to stamp reminder", "reminder_id", r.ID, "error", err)
			}
			return nil
		})
	}

	err = g.Wait()
	report := &Report{
		Pairs:   len(result.Balances),
		Sent:    sent.Load(),
		Skipped: skipped.Load(),
		Failed:  failed.Load(),
		Prompts: prompted.Load(),
	}
	if err != nil {
		return report, fmt.Errorf("sweep interrupted: %w", err)
	}

	slog.Info("Sweep finished",
		"pairs", report.Pairs,
		"sent", report.Sent,
		"prompts", report.Prompts,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

func (d *Dispatcher) sendPayUp(ctx context.Context, net calculator.NetBalance, holder, receiver *models.User) bool {
	token, err := d.links.SignPayLink(holder.ID, receiver.ID, net.Amount)
	if err != nil {
		slog.Error("Sweep: failed to sign pay link", "holder_id", holder.ID, "error", err)
		metrics.MailSends.WithLabelValues("pay_up", "error").Inc()
		return false
	}

	subject, body := payUpMessage(holder, receiver, net.Amount.StringFixed(2), d.link("/pay", url.Values{"token": {token}}))
	return d.send(ctx, "pay_up", holder, subject, body)
}

func (d *Dispatcher) sendPrompt(ctx context.Context, r *models.Reminder, holder, receiver *models.User) bool {
	token, err := d.links.SignReminderLink(r.ID)
	if err != nil {
		slog.Error("Sweep: failed to sign reminder link", "reminder_id", r.ID, "error", err)
		metrics.MailSends.WithLabelValues("prompt", "error").Inc()
		return false
	}

	yes := d.link("/reminders/confirm", url.Values{"token": {token}, "paid": {"true"}})
	no := d.link("/reminders/confirm", url.Values{"token": {token}, "paid": {"false"}})
	subject, body := promptMessage(holder, receiver, r.PaidAmount.StringFixed(2), yes, no)
	return d.send(ctx, "prompt", holder, subject, body)
}

func (d *Dispatcher) send(ctx context.Context, kind string, to *models.User, subject, body string) bool {
	if err := d.mailer.Send(ctx, to.Email, subject, body); err != nil {
		slog.Error("Sweep: send failed", "kind", kind, "user_id", to.ID, "error", err)
		metrics.MailSends.WithLabelValues(kind, "error").Inc()
		return false
	}
	metrics.MailSends.WithLabelValues(kind, "ok").Inc()
	return true
}

func (d *Dispatcher) link(path string, query url.Values) string {
	return d.cfg.BaseURL + path + "?" + query.Encode()
}

func involvedUsers(nets []calculator.NetBalance, prompts []*models.Reminder) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	add := func(id int64) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, n := range nets {
		add(n.Holder)
		add(n.Receiver)
	}
	for _, r := range prompts {
		add(r.HolderID)
		add(r.ReceiverID)
	}
	return ids
}
