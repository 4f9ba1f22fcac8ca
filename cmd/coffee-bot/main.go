// README: Entry point; loads config, wires stores and services, runs the webhook server and cron jobs.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yen1506/linebot-coffee/internal/config"
	httptransport "github.com/yen1506/linebot-coffee/internal/http"
	"github.com/yen1506/linebot-coffee/internal/http/handlers"
	"github.com/yen1506/linebot-coffee/internal/infra"
	"github.com/yen1506/linebot-coffee/internal/jobs"
	"github.com/yen1506/linebot-coffee/internal/modules/conversation"
	"github.com/yen1506/linebot-coffee/internal/modules/idempotency"
	"github.com/yen1506/linebot-coffee/internal/modules/journal"
	"github.com/yen1506/linebot-coffee/internal/modules/order"
	"github.com/yen1506/linebot-coffee/internal/modules/reminder"
	"github.com/yen1506/linebot-coffee/internal/modules/report"
	"github.com/yen1506/linebot-coffee/internal/modules/workflow"
	"github.com/yen1506/linebot-coffee/internal/sheet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := infra.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("coffee-bot stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	sheetsSvc, err := infra.NewSheets(ctx, cfg.Sheets.CredentialsFile)
	if err != nil {
		return err
	}
	wb := sheet.NewGoogleWorkbook(sheetsSvc, cfg.Sheets.SpreadsheetID)

	orderStore, err := order.OpenStore(ctx, wb, cfg.Sheets.Orders, cfg.Sheets.Archive)
	if err != nil {
		return err
	}
	live := orderStore.Live()
	tables, err := report.OpenTables(ctx, wb, live, cfg.Sheets.Prices, cfg.Sheets.Monthly, cfg.Sheets.Customers)
	if err != nil {
		return err
	}

	var events workflow.Journal = journal.Nop{}
	if cfg.DB.DSN != "" {
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		js := journal.NewStore(pool)
		if err := js.EnsureSchema(ctx); err != nil {
			return err
		}
		events = js
	}

	var claimer handlers.EventClaimer = idempotency.NewMemoryStore(idempotency.DefaultTTL)
	if cfg.Redis.Addr != "" {
		rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		claimer = idempotency.NewRedisStore(rdb, idempotency.DefaultTTL)
	}

	gateway, err := infra.NewLineGateway(cfg.Line.ChannelAccessToken)
	if err != nil {
		return err
	}

	workflowSvc := workflow.NewService(orderStore, conversation.NewStore(), events, workflow.Config{
		Location: loc,
		Bank: workflow.BankAccount{
			Name:    cfg.Bank.Name,
			Code:    cfg.Bank.Code,
			Account: cfg.Bank.Account,
		},
	}, logger.Named("workflow"))
	reportSvc := report.NewService(tables, logger.Named("report"))
	reminderSvc := reminder.NewService(live, gateway, loc, logger.Named("reminder"))

	scheduler := jobs.NewScheduler(ctx, loc, logger.Named("jobs"))
	if err := scheduler.Add(cfg.Jobs.AggregateCron, "report", reportSvc.RunAll); err != nil {
		return err
	}
	if err := scheduler.Add(cfg.Jobs.ReminderCron, "reminder", func(ctx context.Context) { reminderSvc.Run(ctx) }); err != nil {
		return err
	}

	handler := httptransport.NewServer(httptransport.ServerDeps{
		ChannelSecret: cfg.Line.ChannelSecret,
		Workflow:      workflowSvc,
		Replier:       gateway,
		Events:        claimer,
		Log:           logger.Named("http"),
	})
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes(), ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
