// Command vgplay plays an animated vector document headlessly and streams
// the frames to a sink: numbered PNG files, an MQTT topic, or nowhere at
// all for benchmarking.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	yaml "gopkg.in/yaml.v2"

	"github.com/gogpu/vgplay"
	"github.com/gogpu/vgplay/present/mqttsink"
	"github.com/gogpu/vgplay/present/nullsink"
	"github.com/gogpu/vgplay/present/pngsink"
	"github.com/gogpu/vgplay/scene"
)

type mqttConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
}

type appConfig struct {
	Mqtt mqttConfig `yaml:"mqtt"`
}

func readConfig(path string) (appConfig, error) {
	var cfg appConfig
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func main() {
	docPath := flag.String("doc", "", "vector document to play")
	configPath := flag.String("config", "", "YAML config file (MQTT settings)")
	width := flag.Int("width", 800, "render width in pixels")
	height := flag.Int("height", 600, "render height in pixels")
	workers := flag.Int("workers", 0, "pre-buffer workers (0 = cores-1)")
	direct := flag.Bool("direct", false, "disable pre-buffering, render every frame directly")
	fps := flag.Float64("fps", 60, "display tick rate")
	duration := flag.Duration("duration", 0, "stop after this long (0 = until interrupted)")
	outDir := flag.String("out", "", "write frames as PNGs into this directory")
	watch := flag.Bool("watch", false, "reload the document when it changes on disk")
	stats := flag.Bool("stats", false, "print playback stats as JSON on exit")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if *docPath == "" {
		fmt.Fprintln(os.Stderr, "usage: vgplay -doc file.vec [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	vgplay.SetLogger(logger)

	if err := run(logger, *docPath, *configPath, *width, *height, *workers,
		*direct, *fps, *duration, *outDir, *watch, *stats); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, docPath, configPath string, width, height, workers int,
	direct bool, fps float64, duration time.Duration, outDir string, watch, printStats bool) error {

	presenter, cleanup, err := buildPresenter(logger, configPath, outDir)
	if err != nil {
		return err
	}
	defer cleanup()

	mode := vgplay.ModePreBuffer
	if direct {
		mode = vgplay.ModeOff
	}

	player, err := vgplay.NewPlayer(scene.Parser{},
		vgplay.WithSize(width, height),
		vgplay.WithWorkers(workers),
		vgplay.WithMode(mode),
		vgplay.WithPresenter(presenter),
	)
	if err != nil {
		return err
	}
	defer player.Close()

	doc, err := os.ReadFile(docPath)
	if err != nil {
		return err
	}
	if err := player.Load(doc); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	if watch {
		go watchDocument(ctx, logger, player, docPath)
	}

	interval := time.Duration(float64(time.Second) / fps)
	err = player.Run(ctx, interval)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if printStats {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(statsReport(player.Stats())); err != nil {
			return err
		}
	}
	return nil
}

// buildPresenter selects the frame sink: PNG directory, MQTT broker from
// config, or the counting null sink.
func buildPresenter(logger *slog.Logger, configPath, outDir string) (vgplay.Presenter, func(), error) {
	nop := func() {}
	if outDir != "" {
		sink, err := pngsink.New(outDir)
		if err != nil {
			return nil, nop, err
		}
		return sink, nop, nil
	}
	if configPath != "" {
		cfg, err := readConfig(configPath)
		if err != nil {
			return nil, nop, err
		}
		if cfg.Mqtt.URL == "" || cfg.Mqtt.Topic == "" {
			return nil, nop, errors.New("config: mqtt url and topic are required")
		}
		opts := mqtt.NewClientOptions().
			AddBroker(cfg.Mqtt.URL).
			SetClientID("vgplay").
			SetUsername(cfg.Mqtt.Username).
			SetPassword(cfg.Mqtt.Password).
			SetKeepAlive(30 * time.Second)
		client := mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return nil, nop, fmt.Errorf("mqtt connect: %w", token.Error())
		}
		logger.Info("connected to broker", "url", cfg.Mqtt.URL, "topic", cfg.Mqtt.Topic)

		var sinkOpts []mqttsink.Option
		if cfg.Mqtt.Width > 0 && cfg.Mqtt.Height > 0 {
			sinkOpts = append(sinkOpts, mqttsink.WithScale(cfg.Mqtt.Width, cfg.Mqtt.Height))
		}
		sink := mqttsink.New(client, cfg.Mqtt.Topic, sinkOpts...)
		return sink, func() { client.Disconnect(250) }, nil
	}
	return &nullsink.Sink{}, nop, nil
}

// watchDocument polls the document file and reloads it when its
// modification time changes. A document that fails to parse is logged and
// skipped; playback continues with the previous one.
func watchDocument(ctx context.Context, logger *slog.Logger, player *vgplay.Player, path string) {
	var lastMod time.Time
	if info, err := os.Stat(path); err == nil {
		lastMod = info.ModTime()
	}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		info, err := os.Stat(path)
		if err != nil || !info.ModTime().After(lastMod) {
			continue
		}
		lastMod = info.ModTime()
		doc, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("reload read failed", "error", err)
			continue
		}
		if err := player.Load(doc); err != nil {
			logger.Warn("reload failed, keeping current document", "error", err)
			continue
		}
		logger.Info("document reloaded", "path", path)
	}
}

// report is the JSON shape of -stats output.
type report struct {
	FPS             float64 `json:"fps"`
	AvgRenderMillis float64 `json:"avg_render_ms"`
	DisplayCycles   uint64  `json:"display_cycles"`
	FramesDelivered uint64  `json:"frames_delivered"`
	FramesSkipped   uint64  `json:"frames_skipped"`
	DroppedFrames   uint64  `json:"dropped_frames"`
	Timeouts        uint64  `json:"timeouts"`
	HitRatePercent  float64 `json:"hit_rate_percent"`
	BufferedFrames  int     `json:"buffered_frames"`
	Mode            string  `json:"mode"`
	Workers         int     `json:"workers"`
}

func statsReport(s vgplay.Stats) report {
	return report{
		FPS:             s.FPS,
		AvgRenderMillis: s.AvgRenderTimeMillis,
		DisplayCycles:   s.DisplayCycles,
		FramesDelivered: s.FramesDelivered,
		FramesSkipped:   s.FramesSkipped,
		DroppedFrames:   s.DroppedFrames,
		Timeouts:        s.TimeoutCount,
		HitRatePercent:  s.HitRatePercent,
		BufferedFrames:  s.BufferedFrames,
		Mode:            s.Mode.String(),
		Workers:         s.Workers,
	}
}
