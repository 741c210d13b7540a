package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linkstride-client/internal/apiclient"
	"linkstride-client/internal/bootstrap"
	"linkstride-client/internal/config"
	"linkstride-client/internal/entity"
	"linkstride-client/internal/pkg/logger"
	"linkstride-client/internal/repository/implementation"
	"linkstride-client/internal/service"
	"linkstride-client/pkg/events"
	pktNats "linkstride-client/pkg/nats"

	"github.com/fatih/color"
)

func main() {
	refresh := flag.Bool("refresh", false, "force a fetch from the API before printing")
	watch := flag.Bool("watch", false, "stream session events from NATS after printing")
	flag.Parse()

	cfg := config.Load()
	log := logger.NewNopLogger()

	store, _, err := bootstrap.NewStorage(cfg.Storage, log)
	if err != nil {
		color.Red("❌ Storage unavailable: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	sessions := implementation.NewSessionRepository(store)
	api := apiclient.NewClient(apiclient.Config{
		BaseURL:        cfg.API.BaseURL,
		RequestTimeout: cfg.API.RequestTimeout,
		RateLimitRPS:   cfg.API.RateLimitRPS,
		RateLimitBurst: cfg.API.RateLimitBurst,
	}, apiclient.NewStoreTokenSource(store), log)
	subscriptions := service.NewSubscriptionService(store, sessions, api, nil, log, service.SubscriptionOptions{
		CacheTTL:          cfg.Subscription.CacheTTL,
		PendingPaymentTTL: cfg.Subscription.PendingPaymentTTL,
		FreeLinksPerDay:   cfg.Subscription.FreeLinksPerDay,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	color.Cyan("🔎 Subscription probe (%s storage)\n", cfg.Storage.Driver)

	session, err := sessions.Load(ctx)
	switch {
	case err != nil:
		color.Red("Session: %v", err)
	case session == nil:
		color.Yellow("Session: signed out")
	default:
		color.Green("Session: %s <%s>", session.User.Name, session.User.Email)
	}

	if *refresh {
		color.Yellow("\nForcing refresh...")
		if _, err := subscriptions.GetStatus(ctx, true); err != nil {
			color.Red("Refresh failed: %v", err)
		}
	}

	printState(subscriptions.State(ctx))

	record, _, err := subscriptions.Peek(ctx)
	if err != nil {
		color.Red("Record: %v", err)
	} else {
		printJSON("Record", record)
	}

	marker, err := subscriptions.GetPendingPayment(ctx)
	switch {
	case err != nil:
		color.Red("Pending payment: %v", err)
	case marker == nil:
		color.Green("Pending payment: none")
	default:
		color.Yellow("Pending payment: order %s since %s", marker.OrderID, marker.CreatedAt().Format(time.RFC3339))
	}

	if *watch {
		if err := watchEvents(ctx, cfg.Events.NatsURL); err != nil {
			color.Red("❌ Watch failed: %v", err)
			os.Exit(1)
		}
	}
}

func printState(state entity.CacheState) {
	switch state {
	case entity.CacheStateFresh:
		color.Green("\nCache: %s", state)
	case entity.CacheStateStale, entity.CacheStatePending:
		color.Yellow("\nCache: %s", state)
	default:
		color.Red("\nCache: %s", state)
	}
}

func printJSON(label string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		color.Red("%s: %v", label, err)
		return
	}
	fmt.Printf("%s:\n%s\n", label, data)
}

func watchEvents(ctx context.Context, url string) error {
	sub, err := pktNats.NewSubscriber(url)
	if err != nil {
		return err
	}
	defer sub.Close()

	err = sub.Subscribe(ctx, pktNats.SubjectAll, func(ctx context.Context, event events.Event) error {
		color.Magenta("%s  %s", time.Now().Format(time.TimeOnly), event.EventType())
		printJSON("  data", event.Payload())
		return nil
	})
	if err != nil {
		return err
	}

	color.Cyan("\n👂 Watching %s (Ctrl+C to stop)", pktNats.SubjectAll)
	<-ctx.Done()
	return nil
}
