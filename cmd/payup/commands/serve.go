package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/payup/internal/auth"
	"github.com/mmynk/payup/internal/middleware"
	"github.com/mmynk/payup/internal/notify"
	"github.com/mmynk/payup/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PayUp API server",
	Long: `Start the Connect API server. When a sweep interval is configured the
server also mails reminders on that schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := slog.Default()
	services := service.Services{
		Auth:      service.NewAuthService(auth.NewPasswordAuthenticator(a.store, cfg.Auth.BcryptCost), a.jwt, logger),
		Users:     service.NewUserService(a.store),
		Requests:  service.NewRequestService(a.store, a.settler),
		Balances:  service.NewBalanceService(a.store, a.payLinks),
		Reminders: service.NewReminderService(a.machine, a.links),
	}

	mux := http.NewServeMux()
	service.Register(mux, services, a.jwt)
	mux.Handle("/metrics", promhttp.Handler())

	// h2c serves HTTP/2 without TLS, which Connect clients expect
	handler := h2c.NewHandler(middleware.LogRequests(middleware.CORS(mux)), &http2.Server{})
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Notify.SweepInterval > 0 {
		go sweepEvery(ctx, a.dispatcher, cfg.Notify.SweepInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		figure.NewColorFigure("PayUp", "puffy", "green", true).Print()
		slog.Info("Server starting", "address", cfg.Server.Addr, "base_url", cfg.Server.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("Server exited gracefully")
	return nil
}

func sweepEvery(ctx context.Context, d *notify.Dispatcher, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := d.Sweep(ctx)
			if err != nil {
				slog.Error("Sweep failed", "error", err)
				continue
			}
			slog.Info("Sweep finished", "pairs", report.Pairs, "sent", report.Sent, "skipped", report.Skipped, "failed", report.Failed, "prompts", report.Prompts)
		}
	}
}
