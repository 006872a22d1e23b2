// cmd/sloshsim/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/arda-guler/SloshTVC/pkg/audio"
	"github.com/arda-guler/SloshTVC/pkg/config"
	"github.com/arda-guler/SloshTVC/pkg/engine"
	"github.com/arda-guler/SloshTVC/pkg/health"
	"github.com/arda-guler/SloshTVC/pkg/logging"
	"github.com/arda-guler/SloshTVC/pkg/network"
	"github.com/arda-guler/SloshTVC/pkg/render"
	"github.com/arda-guler/SloshTVC/pkg/resource"
	"github.com/arda-guler/SloshTVC/pkg/telemetry"
)

// stallAfter is how long a running world may keep the same tick before the
// health endpoint reports it
const stallAfter = 5 * time.Second

type options struct {
	configPath string
	ticks      int
	csvPath    string
	plotPath   string
	serve      bool
	view       string
	scale      float64
	logPath    string
	mute       bool
}

func main() {
	var opts options
	createDefault := flag.Bool("default", false, "Write the default configuration to -config and exit")
	flag.StringVar(&opts.configPath, "config", "config.json", "Path to configuration file")
	flag.IntVar(&opts.ticks, "ticks", 10000, "Ticks to run in headless mode")
	flag.StringVar(&opts.csvPath, "csv", "", "Write the flight log as CSV to this path")
	flag.StringVar(&opts.plotPath, "plot", "", "Write flight plots to this path (.png, .svg or .pdf)")
	flag.BoolVar(&opts.serve, "serve", false, "Serve telemetry and health endpoints until interrupted")
	flag.StringVar(&opts.view, "view", "", "Interactive viewer: 'terminal'")
	flag.Float64Var(&opts.scale, "scale", 1, "Terminal viewer metres per cell")
	flag.StringVar(&opts.logPath, "log", "", "Log file for the terminal viewer (default: discard)")
	flag.BoolVar(&opts.mute, "mute", false, "Disable the touchdown sound")
	flag.Parse()

	logger := logging.NewLogger()
	ctx := context.Background()

	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), opts.configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", opts.configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file", "config_path", opts.configPath)
		return
	}

	// The terminal viewer owns stdout, so logs go to a file or nowhere
	if opts.view == "terminal" {
		var w io.Writer = io.Discard
		if opts.logPath != "" {
			f, err := os.OpenFile(opts.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				logger.Error(ctx, "Failed to open log file", err, "path", opts.logPath)
				os.Exit(1)
			}
			defer f.Close()
			w = f
		}
		logger = logging.NewLoggerWithWriter(w)
	}

	cfg, err := loadConfig(ctx, opts.configPath, logger)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err, "config_path", opts.configPath)
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
	recorder := telemetry.NewRecorder(cfg.Telemetry.SampleEvery, "")

	switch {
	case opts.view == "terminal":
		err = runTerminal(world, cfg, opts, logger)
	case opts.view != "":
		err = fmt.Errorf("unknown viewer %q", opts.view)
	case opts.serve:
		err = runServer(world, cfg, recorder, logger)
	default:
		err = runHeadless(world, opts.ticks, recorder)
	}
	if err != nil {
		logger.Error(ctx, "Simulation failed", err)
		os.Exit(1)
	}

	if err := writeOutputs(ctx, recorder, opts, logger); err != nil {
		logger.Error(ctx, "Failed to write telemetry", err)
		os.Exit(1)
	}
}

// loadConfig reads path, falling back to the defaults when it does not exist,
// and applies environment overrides
func loadConfig(ctx context.Context, path string, logger *logging.Logger) (*config.SimConfig, error) {
	var cfg *config.SimConfig
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", path,
		)
		cfg = config.DefaultConfig()
	} else {
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnvironmentOverrides(cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	return cfg, nil
}

// runHeadless steps the world as fast as possible and prints a summary
func runHeadless(world *engine.World, ticks int, recorder *telemetry.Recorder) error {
	if ticks < 0 {
		return fmt.Errorf("ticks must not be negative, got %d", ticks)
	}
	world.SetRunning(true)

	start := time.Now()
	recorder.Observe(world)
	for i := 0; i < ticks; i++ {
		world.Step()
		recorder.Observe(world)
	}
	elapsed := time.Since(start)

	state := world.Snapshot()
	fmt.Printf("ticks:       %d\n", state.Tick)
	fmt.Printf("sim time:    %.3f s\n", state.SimTime)
	fmt.Printf("wall time:   %v\n", elapsed.Round(time.Millisecond))
	if len(state.Thrusters) > 0 {
		th := state.Thrusters[0]
		fmt.Printf("altitude:    %.2f m\n", th.OriginPos.Y)
		fmt.Printf("gimbal:      %.2f deg\n", th.Offset)
		if cmd := th.Command; cmd != nil {
			fmt.Printf("flight:      %.2f deg (desired %.2f)\n", cmd.FlightAngle, cmd.DesiredAngle)
		}
	}
	fmt.Printf("samples:     %d\n", recorder.Len())
	fmt.Printf("degenerate:  %d\n", state.Degenerate)

	if !world.Healthy() {
		return errors.New("simulation state became non-finite")
	}
	return nil
}

// runServer serves telemetry frames and health endpoints until SIGINT or SIGTERM
func runServer(world *engine.World, cfg *config.SimConfig, recorder *telemetry.Recorder, logger *logging.Logger) error {
	ctx := context.Background()

	env, err := config.LoadConfigFromEnv()
	if err != nil {
		return err
	}

	supervisor := resource.NewSupervisor(env, logger)
	if err := supervisor.Start(); err != nil {
		return err
	}

	server := network.NewTelemetryServer(world, cfg, env, supervisor, logger)

	checker := health.NewHealthChecker()
	checker.AddCheck(health.NewSimulationHealthCheck(world, stallAfter))
	checker.AddCheck(health.NewNetworkHealthCheck(server.Address))
	checker.AddCheck(resource.NewHealthCheck(supervisor))
	checker.AddCheck(health.NewMemoryHealthCheck(env.MaxMemoryMB, func() int64 {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return int64(m.Alloc / 1024 / 1024)
	}))

	healthServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Telemetry.HealthPort),
		Handler:      checker.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info(ctx, "Starting health check server", "port", cfg.Telemetry.HealthPort)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Health check server failed", err)
		}
	}()

	addr := net.JoinHostPort(cfg.Telemetry.ServerAddress, strconv.Itoa(cfg.Telemetry.ServerPort))
	if err := server.Start(addr); err != nil {
		supervisor.Shutdown(ctx)
		return err
	}

	err = supervisor.StartGoroutine("telemetry-recorder", func(ctx context.Context) {
		ticker := time.NewTicker(time.Second / time.Duration(max(cfg.Runner.FrameRate, 1)))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				recorder.Observe(world)
			}
		}
	})
	if err != nil {
		logger.Warn(ctx, "Flight log disabled", "error", err.Error())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), env.ShutdownTimeout)
	defer cancel()

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Health check server shutdown failed", err)
	}
	server.Stop()
	return supervisor.Shutdown(shutdownCtx)
}

// runTerminal runs the interactive tcell viewer with the touchdown cue
func runTerminal(world *engine.World, cfg *config.SimConfig, opts options, logger *logging.Logger) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("terminal init: %w", err)
	}
	defer screen.Fini()

	if !opts.mute {
		cue := audio.NewCue(audio.WithLogger(logger))
		cue.Attach(world.EventBus)
		defer cue.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	presenter := render.NewTcellPresenter(screen, world,
		cfg.Runner.StepsPerFrame, cfg.Runner.FrameRate, opts.scale, logger)
	if err := presenter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// writeOutputs saves the flight log and plots requested on the command line
func writeOutputs(ctx context.Context, recorder *telemetry.Recorder, opts options, logger *logging.Logger) error {
	if (opts.csvPath != "" || opts.plotPath != "") && recorder.Len() == 0 {
		logger.Warn(ctx, "No telemetry samples recorded, skipping outputs")
		return nil
	}
	if opts.csvPath != "" {
		if err := recorder.SaveCSV(opts.csvPath); err != nil {
			return err
		}
		logger.Info(ctx, "Wrote flight log", "path", opts.csvPath, "samples", recorder.Len())
	}
	if opts.plotPath != "" {
		if err := recorder.SavePlot(opts.plotPath); err != nil {
			return err
		}
		logger.Info(ctx, "Wrote flight plots", "path", opts.plotPath)
	}
	return nil
}
