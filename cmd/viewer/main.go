// cmd/viewer/main.go
package main

import (
	"context"
	"flag"
	"os"

	"github.com/arda-guler/SloshTVC/pkg/audio"
	"github.com/arda-guler/SloshTVC/pkg/config"
	"github.com/arda-guler/SloshTVC/pkg/engine"
	"github.com/arda-guler/SloshTVC/pkg/logging"
	engorender "github.com/arda-guler/SloshTVC/pkg/render/engo"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file")
	width := flag.Int("width", 1024, "Window width")
	height := flag.Int("height", 768, "Window height")
	mute := flag.Bool("mute", false, "Disable the touchdown sound")
	flag.Parse()

	logger := logging.NewLogger()
	ctx := context.Background()

	var cfg *config.SimConfig
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", *configPath,
		)
		cfg = config.DefaultConfig()
	} else {
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			logger.Error(ctx, "Failed to load configuration", err, "config_path", *configPath)
			os.Exit(1)
		}
	}
	if err := config.ApplyEnvironmentOverrides(cfg); err != nil {
		logger.Error(ctx, "Failed to apply environment configuration", err)
		os.Exit(1)
	}

	world, err := engine.NewWorld(cfg,
		engine.WithLogger(logger.WithComponent("engine")),
		engine.WithScenario(engine.NewRocketScenario(cfg.Rocket)),
	)
	if err != nil {
		logger.Error(ctx, "Failed to build world", err)
		os.Exit(1)
	}

	if !*mute {
		cue := audio.NewCue(audio.WithLogger(logger))
		cue.Attach(world.EventBus)
		defer cue.Close()
	}

	scene := engorender.NewScene(world, cfg.Runner.StepsPerFrame, logger)
	engorender.Run(engorender.Options{
		Title:    "SloshTVC",
		Width:    *width,
		Height:   *height,
		FPSLimit: cfg.Runner.FrameRate,
	}, scene)
}
