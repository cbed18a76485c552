package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"log/slog"

	"github.com/m3rciful/schedbot/bots/admin"
	"github.com/m3rciful/schedbot/bots/student"
	"github.com/m3rciful/schedbot/bots/teacher"
	"github.com/m3rciful/schedbot/core/bootstrap"
	coreconfig "github.com/m3rciful/schedbot/core/config"
	"github.com/m3rciful/schedbot/core/logger"
	coretg "github.com/m3rciful/schedbot/core/telegram"
	tghelpers "github.com/m3rciful/schedbot/core/telegram/helpers"
	"github.com/m3rciful/schedbot/core/telegram/middleware"
	tgsender "github.com/m3rciful/schedbot/core/telegram/sender"
	"github.com/m3rciful/schedbot/gateway"
	"github.com/m3rciful/schedbot/profile"
	"github.com/m3rciful/schedbot/schedule"
	"github.com/m3rciful/schedbot/schedule/ingest"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration")
	flag.Parse()

	cfg, err := coreconfig.Load(*configPath)
	if err != nil {
		logger.L.Error("configuration load failed",
			slog.String("event", "startup.config_error"),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(rootCtx)
	defer cancel()

	boot, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		logger.L.Error("bootstrap failed",
			slog.String("event", "startup.bootstrap_error"),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer boot.DB.Close()

	profiles := profile.NewStore(boot.DB)
	classes, teachers, err := buildStores(cfg, boot)
	if err != nil {
		logger.L.Error("store init failed",
			slog.String("event", "startup.store_error"),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	dispatcher := tgsender.NewDispatcher(tgsender.Options{})
	defer dispatcher.Close()
	tghelpers.SetDispatcher(dispatcher)

	httpClient := coretg.BuildHTTPClient()
	fetchTimeout := time.Duration(cfg.Ingest.FetchTimeoutSeconds) * time.Second

	var wg sync.WaitGroup
	errCh := make(chan error, 4)
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				errCh <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}

	run("admin-bot", func() error {
		reg := coretg.NewRegistry()
		mws := append(coretg.DefaultMiddlewares(cfg, nil), coretg.Middleware{
			Name: "admin_only",
			Use:  middleware.AdminOnlyMiddleware(middleware.AdminOptions{AdminID: cfg.Telegram.AdminID}),
		})
		return coretg.RunBot(ctx, coretg.RunOptions{
			Persona:     "admin",
			Bot:         cfg.Telegram.Admin,
			Registry:    reg,
			Dispatcher:  dispatcher,
			Middlewares: mws,
			RoutesFunc: func(rt coretg.Runtime) []coretg.Route {
				deps := admin.Deps{
					Classes:  classes,
					Teachers: teachers,
					Profiles: profiles,
					Sender:   gateway.NewTeleSender(rt.Bot, dispatcher),
					Ingest:   ingest.New(httpClient, gateway.NewFileResolver(rt.Bot), fetchTimeout),
				}
				m := admin.New(deps)
				if err := admin.Register(reg, m, deps); err != nil {
					logger.TG.Error("admin registration failed",
						slog.String("event", "startup.register_error"),
						slog.String("error", err.Error()),
					)
				}
				return append(gateway.Routes(m, reg), gateway.CommandRoutes(reg, cfg.Telegram.AdminID)...)
			},
		})
	})

	run("student-bot", func() error {
		reg := coretg.NewRegistry()
		return coretg.RunBot(ctx, coretg.RunOptions{
			Persona:     "student",
			Bot:         cfg.Telegram.Student,
			Registry:    reg,
			Dispatcher:  dispatcher,
			Middlewares: coretg.DefaultMiddlewares(cfg, nil),
			RoutesFunc: func(rt coretg.Runtime) []coretg.Route {
				deps := student.Deps{
					Classes:  classes,
					Profiles: profiles,
					Sender:   gateway.NewTeleSender(rt.Bot, dispatcher),
				}
				m := student.New(deps)
				if err := student.Register(reg, m, deps); err != nil {
					logger.TG.Error("student registration failed",
						slog.String("event", "startup.register_error"),
						slog.String("error", err.Error()),
					)
				}
				return append(student.Routes(m, reg, deps), gateway.CommandRoutes(reg, cfg.Telegram.AdminID)...)
			},
		})
	})

	run("teacher-bot", func() error {
		reg := coretg.NewRegistry()
		return coretg.RunBot(ctx, coretg.RunOptions{
			Persona:     "teacher",
			Bot:         cfg.Telegram.Teacher,
			Registry:    reg,
			Dispatcher:  dispatcher,
			Middlewares: coretg.DefaultMiddlewares(cfg, nil),
			RoutesFunc: func(rt coretg.Runtime) []coretg.Route {
				deps := teacher.Deps{
					Teachers: teachers,
					Profiles: profiles,
					Sender:   gateway.NewTeleSender(rt.Bot, dispatcher),
				}
				m := teacher.New(deps)
				if err := teacher.Register(reg, m, deps); err != nil {
					logger.TG.Error("teacher registration failed",
						slog.String("event", "startup.register_error"),
						slog.String("error", err.Error()),
					)
				}
				return append(gateway.Routes(m, reg), gateway.CommandRoutes(reg, cfg.Telegram.AdminID)...)
			},
		})
	})

	run("api", func() error {
		return profile.NewAPI(profiles, "student", cfg.API.Listen).Run(ctx)
	})

	go func() {
		wg.Wait()
		close(errCh)
	}()

	var exitErr error
	for err := range errCh {
		if exitErr == nil {
			exitErr = err
			cancel()
		}
	}

	logger.Shutdown()
	if exitErr != nil {
		logger.L.Error("exited with error",
			slog.String("event", "shutdown.error"),
			slog.String("error", exitErr.Error()),
		)
		os.Exit(1)
	}
	logger.L.Info("shutdown complete", slog.String("event", "shutdown.done"))
}

func buildStores(cfg *coreconfig.Config, boot *bootstrap.Result) (schedule.Store, schedule.Store, error) {
	if cfg.Storage.Backend == coreconfig.BackendPostgres {
		return schedule.NewPGStore(boot.DB, schedule.KindClass),
			schedule.NewPGStore(boot.DB, schedule.KindTeacher), nil
	}
	classes, err := schedule.NewDirStore(cfg.Storage.ClassDir)
	if err != nil {
		return nil, nil, err
	}
	teachers, err := schedule.NewDirStore(cfg.Storage.TeacherDir)
	if err != nil {
		return nil, nil, err
	}
	return classes, teachers, nil
}
