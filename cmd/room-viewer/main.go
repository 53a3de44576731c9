package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/sterilysense/roomview/pkg/config"
	"github.com/sterilysense/roomview/pkg/layout"
	"github.com/sterilysense/roomview/pkg/roomengine"
	"github.com/sterilysense/roomview/pkg/roomview"
)

var cli struct {
	config.Simulation `embed:""`
	config.Room       `embed:""`
	config.View       `embed:""`

	Config       kong.ConfigFlag `help:"YAML config file."`
	Headless     bool            `help:"Run without a local window (Xvfb rendering active)."`
	Width        int             `help:"Internal rendering width." default:"1920"`
	Height       int             `help:"Internal rendering height." default:"1080"`
	WindowWidth  int             `help:"Initial window width (non-headless only)." default:"1280"`
	WindowHeight int             `help:"Initial window height (non-headless only)." default:"720"`
	TPS          int             `name:"tps" help:"Ticks per second (engine updates)." default:"30"`
	Alert        string          `help:"MP3 chime played when a zone enters high risk." type:"path"`
	AudioFd      int             `help:"File descriptor to write raw PCM alert audio to (streaming only)." default:"-1"`
	CaptureDir   string          `help:"Directory for F12 frame captures." default:"captures" type:"path"`
}

func main() {
	kong.Parse(&cli, config.Options("room-viewer", "Interactive 3D room contamination map.")...)
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

	engine := roomengine.NewEngine(cli.Width, cli.Height, controller)
	engine.FPS = cli.TPS
	engine.FrameCaptureDir = cli.CaptureDir
	engine.SetOutline(room.Outline)
	engine.InitShadowTexture()

	if cli.Alert != "" {
		alerts := roomengine.NewAlertPlayer(cli.Alert, nil)
		if cli.AudioFd != -1 {
			log.Printf("Attaching audio to file descriptor: %d", cli.AudioFd)
			alerts.AudioWriter = os.NewFile(uintptr(cli.AudioFd), "audio-pipe")
		}
		if err := alerts.Load(); err != nil {
			log.Printf("[ALERT] Disabled: %v", err)
		} else {
			engine.Alerts = alerts
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rng := cli.Simulation.Source()
	clock := roomview.NewClock(cli.Tick, func(now time.Time) {
		engine.Advance(rng, now)
	})
	clock.Start(ctx)
	defer clock.Stop()

	if cli.Room.Watchable() {
		watcher, err := layout.NewWatcher(cli.Room.Layout, func(l *layout.Layout) {
			if err := controller.ReplaceZones(l.Zones); err != nil {
				log.Printf("[LAYOUT] Rejected reload: %v", err)
				return
			}
			engine.SetOutline(l.Outline)
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

	ebiten.SetTPS(cli.TPS)
	if cli.Headless {
		log.Println("Running in HEADLESS mode (Rendering active).")
	} else {
		ebiten.SetWindowSize(cli.WindowWidth, cli.WindowHeight)
		ebiten.SetWindowTitle("3D Room Contamination Map")
	}
	if err := ebiten.RunGame(engine); err != nil {
		log.Fatal(err)
	}
}
