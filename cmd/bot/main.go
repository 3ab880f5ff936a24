package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"

	"github.com/Alex-Volkov-ru/yandex-rab/internal/config"
	"github.com/Alex-Volkov-ru/yandex-rab/internal/notify"
	"github.com/Alex-Volkov-ru/yandex-rab/internal/poller"
	"github.com/Alex-Volkov-ru/yandex-rab/internal/practicum"
	"github.com/Alex-Volkov-ru/yandex-rab/internal/storage"
	"github.com/Alex-Volkov-ru/yandex-rab/internal/telegram"
	"github.com/Alex-Volkov-ru/yandex-rab/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to optional tuning file (yaml or json)")
	flag.Parse()

	// Secrets may come from a local .env during development.
	_ = godotenv.Load()

	boot := logx.NewConsole("info")

	secrets, err := config.ReadSecrets()
	if err != nil {
		boot.Error("reading environment failed", logx.Err(err))
		os.Exit(1)
	}
	// Startup precondition: without all three values the loop must not start.
	if missing := secrets.Missing(); len(missing) > 0 {
		boot.Error("missing required environment variables",
			logx.String("missing", strings.Join(missing, ", ")))
		os.Exit(1)
	}

	cfgm := config.NewManager(cfgPath, boot)
	cfg, err := cfgm.Load()
	if err != nil {
		boot.Error("loading config failed", logx.String("path", cfgPath), logx.Err(err))
		os.Exit(1)
	}

	logSvc, log := logx.New(logCfg(cfg))
	defer logSvc.Close()
	log = log.With(logx.String("comp", "app"))

	requestTimeout, err := config.Duration("practicum.request_timeout", cfg.Practicum.RequestTimeout, 10*time.Second)
	if err != nil {
		log.Error("invalid config", logx.Err(err))
		os.Exit(1)
	}
	tgPollTimeout, err := config.Duration("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		log.Error("invalid config", logx.Err(err))
		os.Exit(1)
	}

	client := practicum.New(practicum.Config{
		Token:    secrets.PracticumToken,
		Endpoint: cfg.Practicum.Endpoint,
		Timeout:  requestTimeout,
	}, logSvc.Logger().With(logx.String("comp", "practicum")))

	ad, err := telegram.New(telegram.Config{
		Token:       secrets.TelegramToken,
		ChatID:      secrets.TelegramChatID,
		PollTimeout: tgPollTimeout,
	}, logSvc.Logger().With(logx.String("comp", "telegram")))
	if err != nil {
		log.Error("telegram init failed", logx.Err(err))
		os.Exit(1)
	}

	notifyOpts := []notify.Option{}
	var store storage.Store
	if cfg.Storage != nil {
		busy, err := config.Duration("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
		if err != nil {
			log.Error("invalid config", logx.Err(err))
			os.Exit(1)
		}
		store, err = storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, logSvc.Logger().With(logx.String("comp", "storage")))
		if err != nil {
			log.Error("opening history store failed", logx.Err(err))
			os.Exit(1)
		}
		if store != nil {
			notifyOpts = append(notifyOpts, notify.WithHistory(store))
		}
	}

	notif := notify.New(ad, logSvc.Logger().With(logx.String("comp", "notifier")), notifyOpts...)

	p, err := poller.New(pollerCfg(cfg, requestTimeout), client, notif, logSvc.Logger().With(logx.String("comp", "poller")))
	if err != nil {
		log.Error("invalid poll schedule", logx.Err(err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Dual-activity shape: the interactive listener runs alongside the loop,
	// sharing only the notifier's mutex-guarded state.
	if cfg.Telegram.Commands {
		ad.HandleCommands(p.Report)
		ad.Start(ctx)
	}

	// Live reload of tuning: logging level and poll schedule.
	go func() {
		if err := cfgm.Watch(ctx); err != nil {
			log.Warn("config watch stopped", logx.Err(err))
		}
	}()
	sub := cfgm.Subscribe(1)
	go func() {
		for next := range sub {
			logSvc.Apply(logCfg(next))
			rt, err := config.Duration("practicum.request_timeout", next.Practicum.RequestTimeout, 10*time.Second)
			if err == nil {
				err = p.Apply(pollerCfg(next, rt))
			}
			if err != nil {
				log.Warn("config update not applied", logx.Err(err))
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Run(ctx)
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	log.Info("bot started", logx.String("schedule", cfg.Poll.Schedule), logx.Bool("commands", cfg.Telegram.Commands))

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = ad.Stop(stopCtx)
	stopCancel()

	wg.Wait()
	if store != nil {
		_ = store.Close()
	}
	log.Info("bot stopped")
}

func logCfg(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func pollerCfg(cfg *config.Config, requestTimeout time.Duration) poller.Config {
	reportWindow, err := config.Duration("poll.report_window", cfg.Poll.ReportWindow, time.Hour)
	if err != nil {
		reportWindow = time.Hour
	}
	return poller.Config{
		Schedule: cfg.Poll.Schedule,
		// Leave room for notification delivery after the request itself.
		CycleTimeout: requestTimeout + 20*time.Second,
		ReportWindow: reportWindow,
	}
}
