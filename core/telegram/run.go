package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	coreconfig "github.com/m3rciful/schedbot/core/config"
	"github.com/m3rciful/schedbot/core/logger"
	tgsender "github.com/m3rciful/schedbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware names one entry of the bot.Use chain.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route binds one handler to a telebot endpoint.
// Endpoint goes to tele.Bot.Handle unchanged.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunBot.
type RunOptions struct {
	// Persona names the bot in logs (admin, student, teacher).
	Persona string
	Bot     coreconfig.BotConfig

	Registry   *Registry
	Dispatcher *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route
	// RoutesFunc builds routes that need the live bot (file resolvers,
	// senders). Called once after the bot is constructed; the returned
	// routes are registered after Routes.
	RoutesFunc func(rt Runtime) []Route

	DisableWebhookCleanup bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime hands live components to RoutesFunc and OnStart hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunBot composes and runs one persona bot until the provided context is done.
func RunBot(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	settings := tele.Settings{
		Token:  opts.Bot.Token,
		Poller: BuildPoller(opts.Bot),
		Client: BuildHTTPClient(),
	}

	buildStart := time.Now()
	bot, err := tele.NewBot(settings)
	if err != nil {
		return fmt.Errorf("telegram: %s bot initialization failed: %w", opts.Persona, err)
	}
	buildTook := time.Since(buildStart)

	dispatcher := opts.Dispatcher
	ownDispatcher := dispatcher == nil
	if ownDispatcher {
		dispatcher = tgsender.NewDispatcher(tgsender.Options{})
	}

	rt := Runtime{
		Bot:        bot,
		Dispatcher: dispatcher,
		Registry:   reg,
	}

	if opts.Bot.RunMode == coreconfig.RunModeWebhook {
		logger.TG.Info("webhook mode",
			slog.String("event", "mode"),
			slog.String("persona", opts.Persona),
			slog.String("listen", fmt.Sprintf("%s:%d", opts.Bot.Webhook.Listen, opts.Bot.Webhook.Port)),
			slog.String("public_url", opts.Bot.Webhook.URL),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
	} else {
		logger.TG.Info("polling mode",
			slog.String("event", "mode"),
			slog.String("persona", opts.Persona),
			slog.Duration("duration", logger.RoundMS(buildTook)),
		)
		if !opts.DisableWebhookCleanup {
			if err := deleteWebhook(opts.Bot.Token); err != nil {
				logger.TG.Warn("failed to delete webhook",
					slog.String("event", "delete_webhook"),
					slog.String("persona", opts.Persona),
					slog.String("err", err.Error()),
				)
			}
		}
	}

	for _, mw := range opts.Middlewares {
		if mw.Use == nil {
			continue
		}
		bot.Use(mw.Use)
	}

	routes := opts.Routes
	if opts.RoutesFunc != nil {
		routes = append(routes, opts.RoutesFunc(rt)...)
	}
	for _, route := range routes {
		if route.Endpoint == nil || route.Handler == nil {
			continue
		}
		bot.Handle(route.Endpoint, route.Handler)
	}

	InitBotCommands(bot, reg)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			if ownDispatcher {
				dispatcher.Close()
			}
			return err
		}
	}

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		runErr = ctx.Err()
	case <-runDone:
	}

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.Background(), rt)
	}

	if ownDispatcher {
		dispatcher.Close()
	}

	if stopErr != nil {
		return stopErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func deleteWebhook(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("empty token")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/deleteWebhook", token)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url,
		strings.NewReader("drop_pending_updates=false"))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}
