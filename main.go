package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/uvcnode/cmd"
	"github.com/smazurov/uvcnode/internal/api"
	"github.com/smazurov/uvcnode/internal/config"
	"github.com/smazurov/uvcnode/internal/encoder"
	"github.com/smazurov/uvcnode/internal/events"
	"github.com/smazurov/uvcnode/internal/input"
	"github.com/smazurov/uvcnode/internal/led"
	"github.com/smazurov/uvcnode/internal/logging"
	"github.com/smazurov/uvcnode/internal/metrics/exporters"
	"github.com/smazurov/uvcnode/internal/systemd"
	"github.com/smazurov/uvcnode/internal/uvc"
	"github.com/smazurov/uvcnode/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"uvcnode.toml"`

	// Input settings
	Device      string `help:"V4L2 device node or stable ID from the devices command" short:"d" default:"/dev/video0" toml:"input.device" env:"INPUT_DEVICE"`
	Resolution  string `help:"Capture size, a name like VGA or WxH" short:"r" default:"VGA" toml:"input.resolution" env:"INPUT_RESOLUTION"`
	FPS         int    `help:"Frames per second" short:"f" default:"25" toml:"input.fps" env:"INPUT_FPS"`
	YUV         bool   `help:"Capture YUYV and compress in software" short:"y" default:"false" toml:"input.yuv" env:"INPUT_YUV"`
	Quality     int    `help:"JPEG quality 0-100, implies --yuv; -1 keeps the default" short:"q" default:"-1" toml:"input.quality" env:"INPUT_QUALITY"`
	MinimumSize int    `help:"Drop frames smaller than this many bytes" short:"m" default:"0" toml:"input.minimum_size" env:"INPUT_MINIMUM_SIZE"`
	NoDynctrl   bool   `help:"Do not enumerate device controls" default:"false" toml:"input.no_dynctrl" env:"INPUT_NO_DYNCTRL"`
	StopOnIdle  bool   `help:"Release the device while nobody consumes frames" default:"false" toml:"input.stop_on_idle" env:"INPUT_STOP_ON_IDLE"`

	// LED settings
	LED     string `help:"Status LED mode (on, off, blink, auto)" default:"auto" toml:"led.mode" env:"LED_MODE"`
	LEDType string `help:"Board LED to drive, first available when empty" default:"" toml:"led.type" env:"LED_TYPE"`

	// Server settings
	Port       string `help:"Address to listen on" short:"p" default:":8080" toml:"server.port" env:"SERVER_PORT"`
	NoCommands bool   `help:"Disable the command endpoint" default:"false" toml:"server.no_commands" env:"SERVER_NO_COMMANDS"`

	// Auth settings, disabled unless both are set
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCapture string `help:"Capture logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingUVC     string `help:"Device logging level" default:"info" toml:"logging.uvc" env:"LOGGING_UVC"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

// app holds what OnStop needs to tear down.
type app struct {
	cancel   context.CancelFunc
	server   *api.Server
	inputs   *input.Manager
	leds     *led.Manager
	exporter *exporters.SSEExporter
	watcher  *config.Watcher[config.Tunables]
	notifier *systemd.Notifier
	bus      *events.Bus
}

func main() {
	var running atomic.Pointer[app]

	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"capture": opts.LoggingCapture,
				"uvc":     opts.LoggingUVC,
				"api":     opts.LoggingAPI,
			},
		})

		hooks.OnStart(func() {
			a := start(opts)
			running.Store(a)

			logger := logging.GetLogger("main")
			if err := a.server.Start(opts.Port); err != nil {
				fatal(logger, "Failed to start HTTP server", err)
			}
		})

		hooks.OnStop(func() {
			if a := running.Load(); a != nil {
				a.stop()
			}
		})
	})

	cli.Root().Use = "uvcnode"
	cli.Root().Version = version.String()
	cli.Root().AddCommand(cmd.CreateDevicesCmd())
	cli.Root().AddCommand(cmd.CreateControlsCmd())

	cli.Run()
}

// start opens the device, starts the capture loop and wires every
// supporting service. Startup failures are fatal.
func start(opts *Options) *app {
	logger := logging.GetLogger("main")
	ctx, cancel := context.WithCancel(context.Background())

	cfg, err := inputConfig(opts)
	if err != nil {
		fatal(logger, "Invalid input configuration", err)
	}
	ledMode, err := led.ParseMode(opts.LED)
	if err != nil {
		fatal(logger, "Invalid LED mode", err)
	}

	eventBus := events.New()
	logging.SetLogCallback(func(entry logging.LogEntry) {
		eventBus.Publish(api.LogEvent(entry))
	})

	notifier := systemd.NewNotifier(logging.GetLogger("systemd"))

	device, err := uvc.Open(ctx, uvc.OptionsFromConfig(cfg, logging.GetLogger("uvc").With("device", cfg.Device)))
	if err != nil {
		fatal(logger, "Failed to open capture device", &input.StartupError{Op: "open " + cfg.Device, Err: err})
	}

	var enc input.FrameEncoder
	if cfg.PixelFormat == input.PixelFormatYUYV {
		enc = encoder.NewJPEG()
	}

	captureLogger := logging.GetLogger("capture")
	src, err := input.New(input.Options{
		Config:   cfg,
		Device:   device,
		Encoder:  enc,
		Registry: device,
		Bus:      eventBus,
		Logger:   captureLogger,
		FatalHandler: func(err error) {
			notifier.Stopping()
			fatal(captureLogger, "Capture failed", err)
		},
	})
	if err != nil {
		_ = device.Close()
		fatal(logger, "Failed to create input", err)
	}

	inputs := input.NewManager()
	if err := inputs.Add(src); err != nil {
		fatal(logger, "Failed to register input", err)
	}

	var ledController led.Controller
	var ledManager *led.Manager
	if ledMode != led.ModeOff || opts.LEDType != "" {
		ledManager = led.NewManager(led.New(logging.GetLogger("led")), eventBus, logging.GetLogger("led"), ledMode, opts.LEDType)
		ledManager.Start()
		ledController = ledManager.Controller()
	}

	if err := src.Start(); err != nil {
		fatal(logger, "Failed to start input", err)
	}
	logBanner(logger, src, cfg)

	exporter := exporters.NewSSEExporter(eventBus)
	exporter.Start(ctx)

	watcher := watchTunables(ctx, opts.Config, src)
	go watchDevice(ctx, uvc.NodePath(cfg.Device), eventBus)

	server := api.NewServer(&api.Options{
		AuthUsername:      opts.AuthUsername,
		AuthPassword:      opts.AuthPassword,
		Inputs:            inputs,
		EventBus:          eventBus,
		LEDController:     ledController,
		PrometheusHandler: exporters.HTTPHandler(),
		CommandsDisabled:  opts.NoCommands,
	})

	notifier.Ready()
	notifier.Status("capturing " + cfg.Device)
	go notifier.RunWatchdog(ctx, systemd.ProgressCheck(src.Generation, func() bool {
		return src.State() == input.StateActive
	}))

	return &app{
		cancel:   cancel,
		server:   server,
		inputs:   inputs,
		leds:     ledManager,
		exporter: exporter,
		watcher:  watcher,
		notifier: notifier,
		bus:      eventBus,
	}
}

func (a *app) stop() {
	logger := logging.GetLogger("main")
	logger.Info("Shutting down")
	a.notifier.Stopping()

	if err := a.server.Stop(); err != nil {
		logger.Error("Error stopping HTTP server", "error", err)
	}
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			logger.Warn("Error stopping config watcher", "error", err)
		}
	}

	a.inputs.StopAll()

	a.exporter.Stop()
	if a.leds != nil {
		a.leds.Stop()
	}
	a.cancel()
	logging.SetLogCallback(nil)
	_ = a.bus.Close()
}

// inputConfig maps CLI options onto an input configuration.
func inputConfig(opts *Options) (input.Config, error) {
	cfg := input.DefaultConfig()
	device, err := uvc.ResolveDevicePath(opts.Device)
	if err != nil {
		return cfg, err
	}
	cfg.Device = device
	cfg.FPS = opts.FPS
	cfg.MinimumSize = opts.MinimumSize
	cfg.StopOnIdle = opts.StopOnIdle
	cfg.DynamicControls = !opts.NoDynctrl

	res, err := input.ParseResolution(opts.Resolution)
	if err != nil {
		return cfg, fmt.Errorf("%w (known names: %s)", err, strings.Join(input.ResolutionNames(), ", "))
	}
	cfg.Width, cfg.Height = res.Width, res.Height

	if opts.YUV || opts.Quality >= 0 {
		cfg.PixelFormat = input.PixelFormatYUYV
	}
	if opts.Quality >= 0 {
		cfg.Quality = opts.Quality
	}

	return cfg, cfg.Validate()
}

func logBanner(logger *slog.Logger, src *input.Source, cfg input.Config) {
	status := src.Status()
	attrs := []any{
		"device", cfg.Device,
		"resolution", status.Resolution.String(),
		"fps", cfg.FPS,
		"format", strings.ToUpper(cfg.PixelFormat),
		"stop_on_idle", cfg.StopOnIdle,
		"dynamic_controls", cfg.DynamicControls,
		"version", version.String(),
	}
	if cfg.PixelFormat == input.PixelFormatYUYV {
		attrs = append(attrs, "quality", cfg.Quality)
	}
	if cfg.MinimumSize > 0 {
		attrs = append(attrs, "minimum_size", cfg.MinimumSize)
	}
	logger.Info("Input started", attrs...)
}

// watchTunables hot-reloads the [input] and [logging] tables of the
// config file. It returns nil when there is no file to watch.
func watchTunables(ctx context.Context, path string, src *input.Source) *config.Watcher[config.Tunables] {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	logger := logging.GetLogger("config")
	watcher := config.NewConfigWatcher(path, config.LoadTunables, logger,
		config.WithDebounce[config.Tunables](250*time.Millisecond),
		config.WithErrorHandler[config.Tunables](func(err error) {
			logger.Warn("Failed to reload config", "path", path, "error", err)
		}),
	)

	watcher.OnReload(func(t config.Tunables) {
		logging.ApplyLevels(t.Logging)

		tunables := input.Tunables{
			Quality:     t.Quality,
			MinimumSize: t.MinimumSize,
			StopOnIdle:  t.StopOnIdle,
		}
		if t.Resolution != nil {
			res, err := input.ParseResolution(*t.Resolution)
			if err != nil {
				logger.Warn("Ignoring resolution from config", "value", *t.Resolution, "error", err)
			} else {
				tunables.Resolution = &res
			}
		}

		if err := src.ApplyTunables(ctx, tunables); err != nil {
			logger.Warn("Some settings were not applied", "error", err)
			return
		}
		logger.Info("Applied settings from config", "path", path)
	})

	if err := watcher.Start(); err != nil {
		logger.Warn("Config hot reload unavailable", "path", path, "error", err)
		return nil
	}
	return watcher
}

// watchDevice publishes V4L2 hotplug events and warns when the capture
// node goes away. Capture failure handling still decides the exit.
func watchDevice(ctx context.Context, node string, bus *events.Bus) {
	logger := logging.GetLogger("uvc")
	err := uvc.Watch(ctx, func(ev uvc.DeviceEvent) {
		configured := ev.Path == node
		bus.Publish(events.DeviceChangedEvent{
			Action:     ev.Action,
			Path:       ev.Path,
			Configured: configured,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		})
		switch {
		case configured && ev.Action == "remove":
			logger.Warn("Capture device removed", "device", ev.Path)
		case configured && ev.Action == "add":
			logger.Info("Capture device reappeared", "device", ev.Path)
		default:
			logger.Debug("Device changed", "action", ev.Action, "device", ev.Path)
		}
	})
	if err != nil {
		logger.Warn("Device hotplug monitoring unavailable", "error", err)
	}
}

// fatal logs err and exits. Startup and capture failures end the process
// so the service manager can restart it.
func fatal(logger *slog.Logger, msg string, err error) {
	var startup *input.StartupError
	if errors.As(err, &startup) {
		logger.Error(msg, "op", startup.Op, "error", startup.Err)
	} else {
		logger.Error(msg, "error", err)
	}
	os.Exit(1)
}
