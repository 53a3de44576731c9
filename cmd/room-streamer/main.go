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

	"github.com/alecthomas/kong"

	"github.com/sterilysense/roomview/pkg/analytics"
	"github.com/sterilysense/roomview/pkg/config"
	"github.com/sterilysense/roomview/pkg/layout"
	"github.com/sterilysense/roomview/pkg/roomview"
	"github.com/sterilysense/roomview/pkg/stream"
)

var cli struct {
	config.Simulation `embed:""`
	config.Room       `embed:""`
	config.View       `embed:""`

	Config  kong.ConfigFlag `help:"YAML config file."`
	Addr    string          `help:"HTTP and websocket listen address." default:":8080"`
	Brokers []string        `help:"Kafka brokers for tier summaries. Empty disables publishing." env:"KAFKA_BROKERS"`
	Topic   string          `help:"Kafka topic for tier summaries." default:"room.tiers"`
	Samples int             `help:"Samples in the UV efficiency study." default:"75"`
}

func main() {
	kong.Parse(&cli, config.Options("room-streamer", "Serves a simulated room over HTTP, websockets and Kafka.")...)
	config.SetupLogging()

	room, err := cli.Room.Load()
	if err != nil {
		log.Fatalf("Failed to load layout: %v", err)
	}
	controller, err := roomview.NewController(room.Zones)
	if err != nil {
		log.Fatalf("Failed to initialize room: %v", err)
	}
	if err := cli.View.Apply(controller); err != nil {
		log.Fatalf("Invalid view settings: %v", err)
	}
	log.Printf("Loaded room %q with %d zones", room.Name, len(room.Zones))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rng := cli.Simulation.Source()
	hub := stream.NewHub(controller)
	server := stream.NewServer(controller, hub, analytics.GenerateSamples(cli.Samples, rng))

	var publisher *stream.Publisher
	if len(cli.Brokers) > 0 {
		publisher = stream.NewPublisher(cli.Brokers, cli.Topic, room.Name)
		log.Printf("[KAFKA] Publishing tier summaries to %s on %v", cli.Topic, cli.Brokers)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Printf("[KAFKA] Error closing writer: %v", err)
			}
		}()
	}

	clock := roomview.NewClock(cli.Tick, func(now time.Time) {
		entered := controller.Tick(rng, now)
		if len(entered) > 0 {
			log.Printf("[ALERT] Entered high risk: %v", entered)
		}
		if err := hub.BroadcastScene(); err != nil {
			log.Printf("[WS] Broadcast error: %v", err)
		}
		if publisher != nil {
			pctx, cancel := context.WithTimeout(ctx, cli.Tick)
			defer cancel()
			if err := publisher.PublishScene(pctx, controller, entered); err != nil {
				log.Printf("[KAFKA] %v", err)
			}
		}
	})
	clock.Start(ctx)
	defer clock.Stop()

	if cli.Room.Watchable() {
		watcher, err := layout.NewWatcher(cli.Room.Layout, func(l *layout.Layout) {
			if err := controller.ReplaceZones(l.Zones); err != nil {
				log.Printf("[LAYOUT] Rejected reload: %v", err)
				return
			}
			if err := hub.BroadcastScene(); err != nil {
				log.Printf("[WS] Broadcast error: %v", err)
			}
		})
		if err != nil {
			log.Fatalf("Failed to watch layout: %v", err)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				log.Printf("[LAYOUT] Watcher stopped: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cli.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("Room API listening on %s", cli.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
