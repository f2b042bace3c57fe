package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/ivlev/timeline2video/internal/config"
	"github.com/ivlev/timeline2video/internal/effects"
	"github.com/ivlev/timeline2video/internal/engine"
	"github.com/ivlev/timeline2video/internal/scenario"
	"github.com/ivlev/timeline2video/internal/source"
	"github.com/ivlev/timeline2video/internal/system"
	"github.com/ivlev/timeline2video/internal/timeline"
	"github.com/ivlev/timeline2video/internal/video"
)

var buildVersion = "dev"

const (
	timelinesDir = "timelines"
	outputDir    = "output"
)

const usage = `usage: timeline2video <command> [flags]

commands:
  render    render a timeline to mp4 with ffmpeg
  frames    render a timeline to a png/webp image sequence
  preview   play a timeline in an ffplay window
  validate  load and check a timeline
  scaffold  generate a slideshow timeline from a PDF or image folder
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "[-] Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string) error {
	switch command {
	case "render":
		return renderCmd(ctx, args)
	case "frames":
		return framesCmd(ctx, args)
	case "preview":
		return previewCmd(ctx, args)
	case "validate":
		return validateCmd(args)
	case "scaffold":
		return scaffoldCmd(args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	}
	return fmt.Errorf("unknown command %q\n%s", command, usage)
}

// timelineFlags registers the flags shared by every command that loads a
// timeline.
func timelineFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.TimelinePath, "timeline", "", "Путь к таймлайну .yaml/.hcl (по умолчанию: самый свежий файл в timelines/)")
	fs.Float64Var(&cfg.Start, "start", 0, "Начало диапазона (сек)")
	fs.Float64Var(&cfg.End, "end", 0, "Конец диапазона (сек, 0 - до конца таймлайна)")
	fs.IntVar(&cfg.Width, "width", 0, "Ширина (0 - из таймлайна)")
	fs.IntVar(&cfg.Height, "height", 0, "Высота (0 - из таймлайна)")
	fs.IntVar(&cfg.FPS, "fps", 0, "FPS (0 - из таймлайна)")
	fs.StringVar(&cfg.Preset, "preset", "", "Пресет формата: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)")
	fs.IntVar(&cfg.DPI, "dpi", source.DefaultDPI, "DPI для страниц PDF")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Уровень логов: trace, debug, info, warn, error")
}

func renderFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.IntVar(&cfg.Workers, "workers", 0, "Потоки рендеринга (0 - по числу ядер)")
	fs.IntVar(&cfg.ProgressEvery, "progress", 30, "Писать прогресс каждые N кадров (0 - не писать)")
}

func newLogger(cfg *config.Config) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  "timeline2video",
		Level: hclog.LevelFromString(cfg.LogLevel),
		Color: hclog.AutoColor,
	})
}

// load reads, overrides and builds the timeline named by cfg.
func load(cfg *config.Config, logger hclog.Logger) (*timeline.Timeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.TimelinePath == "" {
		latest, err := scenario.FindLatest(timelinesDir)
		if err != nil {
			return nil, fmt.Errorf("%w. Положите таймлайн в %s/", err, timelinesDir)
		}
		cfg.TimelinePath = latest
		logger.Info("timeline selected", "path", latest)
	}
	doc, err := scenario.Read(cfg.TimelinePath)
	if err != nil {
		return nil, err
	}
	cfg.Apply(doc)
	return scenario.Build(doc, source.NewFileDecoder(cfg.DPI, logger), logger)
}

func renderCmd(ctx context.Context, args []string) error {
	cfg := &config.Config{BuildVersion: buildVersion}
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	timelineFlags(fs, cfg)
	renderFlags(fs, cfg)
	fs.StringVar(&cfg.OutputVideo, "output", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	fs.StringVar(&cfg.VideoEncoder, "encoder", "", "Энкодер H.264 (пусто - автовыбор: videotoolbox, nvenc, libx264)")
	fs.IntVar(&cfg.Quality, "quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	noAudio := fs.Bool("no-audio", false, "Не микшировать звук")
	fs.Parse(args)

	logger := newLogger(cfg)
	// Каждый процесс ffmpeg держит несколько пайпов
	system.InitResourceLimits(logger)
	if err := system.LookPath("ffmpeg"); err != nil {
		return err
	}

	tl, err := load(cfg, logger)
	if err != nil {
		return err
	}
	start, end, err := cfg.Range(tl.Duration)
	if err != nil {
		return err
	}

	if cfg.OutputVideo == "" {
		cfg.OutputVideo = config.OutputName(outputDir, cfg.TimelinePath, ".mp4", time.Now())
	}
	if cfg.VideoEncoder == "" {
		cfg.VideoEncoder = system.GetBestH264Encoder(ctx)
		if cfg.VideoEncoder != "libx264" {
			logger.Info("hardware encoder detected", "encoder", cfg.VideoEncoder)
		}
	}
	if cfg.Quality == 0 {
		cfg.Quality = system.DefaultQuality(cfg.VideoEncoder)
	}

	enc := video.NewFFmpegEncoder(video.EncodeOptions{
		Output:  cfg.OutputVideo,
		Width:   tl.Width,
		Height:  tl.Height,
		FPS:     tl.FPS,
		Encoder: cfg.VideoEncoder,
		Quality: cfg.Quality,
	}, logger)
	var mix engine.AudioMixSink = enc
	if *noAudio {
		mix = nil
	}

	stats, err := engine.Render(ctx, tl, enc, mix, engine.RenderOptions{
		Start:         start,
		End:           end,
		Workers:       cfg.Workers,
		ProgressEvery: cfg.ProgressEvery,
		Logger:        logger,
	})
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	logger.Info("done", "output", cfg.OutputVideo, "frames", stats.Delivered,
		"elapsed", stats.Elapsed.Round(time.Millisecond).String(),
		"fps", fmt.Sprintf("%.2f", stats.FPS()), "build", cfg.BuildVersion)
	fmt.Printf("[+++] Успех! Видео: %s\n", cfg.OutputVideo)
	return nil
}

func framesCmd(ctx context.Context, args []string) error {
	cfg := &config.Config{BuildVersion: buildVersion}
	fs := flag.NewFlagSet("frames", flag.ExitOnError)
	timelineFlags(fs, cfg)
	renderFlags(fs, cfg)
	fs.StringVar(&cfg.FramesDir, "dir", "", "Папка для кадров (если пусто, генерируется автоматически в output/)")
	fs.StringVar(&cfg.FramesFormat, "format", "png", "Формат кадров: png, webp")
	limit := fs.Int("limit", 0, "Максимум кадров (0 - все)")
	withAudio := fs.Bool("audio", false, "Записать звук диапазона в audio.m4a рядом с кадрами")
	fs.Parse(args)

	logger := newLogger(cfg)
	tl, err := load(cfg, logger)
	if err != nil {
		return err
	}
	start, end, err := cfg.Range(tl.Duration)
	if err != nil {
		return err
	}
	format, err := video.ParseFormat(cfg.FramesFormat)
	if err != nil {
		return err
	}
	if cfg.FramesDir == "" {
		cfg.FramesDir = config.OutputName(outputDir, cfg.TimelinePath, "_frames", time.Now())
	}

	seq := &video.ImageSequence{Dir: cfg.FramesDir, Format: format, Limit: *limit}
	var mix engine.AudioMixSink
	if *withAudio {
		if err := system.LookPath("ffmpeg"); err != nil {
			return err
		}
		mix = &video.Mixer{Output: filepath.Join(cfg.FramesDir, "audio.m4a"), Logger: logger}
	}

	stats, err := engine.Render(ctx, tl, seq, mix, engine.RenderOptions{
		Start:         start,
		End:           end,
		Workers:       cfg.Workers,
		ProgressEvery: cfg.ProgressEvery,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	logger.Info("done", "dir", cfg.FramesDir, "frames", stats.Delivered, "stopped", stats.Stopped)
	return nil
}

func previewCmd(ctx context.Context, args []string) error {
	cfg := &config.Config{BuildVersion: buildVersion}
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	timelineFlags(fs, cfg)
	fs.Parse(args)

	logger := newLogger(cfg)
	system.InitResourceLimits(logger)
	if err := system.LookPath("ffplay"); err != nil {
		return err
	}
	tl, err := load(cfg, logger)
	if err != nil {
		return err
	}
	start, end, err := cfg.Range(tl.Duration)
	if err != nil {
		return err
	}

	display := &video.FFplayDisplay{
		Width:  tl.Width,
		Height: tl.Height,
		FPS:    tl.FPS,
		Title:  filepath.Base(cfg.TimelinePath),
		Logger: logger,
	}
	defer display.Close()

	_, err = engine.Preview(ctx, tl, display, engine.PreviewOptions{Start: start, End: end, Logger: logger})
	return err
}

func validateCmd(args []string) error {
	cfg := &config.Config{BuildVersion: buildVersion}
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	timelineFlags(fs, cfg)
	dump := fs.String("dump", "", "Записать нормализованный YAML в файл")
	fs.Parse(args)

	logger := newLogger(cfg)
	tl, err := load(cfg, logger)
	if err != nil {
		var merr *multierror.Error
		if errors.As(err, &merr) {
			for _, e := range merr.Errors {
				logger.Error("invalid timeline", "error", e)
			}
			return fmt.Errorf("%d problem(s) in %s", len(merr.Errors), cfg.TimelinePath)
		}
		return err
	}
	start, end, err := cfg.Range(tl.Duration)
	if err != nil {
		return err
	}

	clips := 0
	for _, l := range tl.Layers {
		clips += len(l.Clips)
	}
	logger.Info("timeline ok",
		"path", cfg.TimelinePath,
		"size", fmt.Sprintf("%dx%d", tl.Width, tl.Height),
		"fps", tl.FPS,
		"duration", tl.Duration,
		"layers", len(tl.Layers),
		"clips", clips,
		"music", len(tl.Audio.Music),
		"sfx", len(tl.Audio.Sfx),
		"frames", tl.Frames(start, end))

	if *dump != "" {
		doc, err := scenario.Read(cfg.TimelinePath)
		if err != nil {
			return err
		}
		cfg.Apply(doc)
		if err := scenario.Write(doc, *dump); err != nil {
			return err
		}
		logger.Info("normalized timeline written", "path", *dump)
	}
	return nil
}

func scaffoldCmd(args []string) error {
	fs := flag.NewFlagSet("scaffold", flag.ExitOnError)
	input := fs.String("input", "", "Путь к PDF или папке с изображениями (по умолчанию: самый свежий файл в input/pdf/)")
	output := fs.String("output", "", "Путь к таймлайну (если пусто, генерируется автоматически в timelines/)")
	width := fs.Int("width", 1280, "Ширина")
	height := fs.Int("height", 720, "Высота")
	preset := fs.String("preset", "", "Пресет формата: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)")
	fps := fs.Int("fps", 30, "FPS")
	pageDuration := fs.Float64("page-duration", 3, "Длительность показа одной страницы/изображения в секундах")
	fade := fs.Float64("fade", 0.5, "Длительность перехода (сек)")
	zoom := fs.String("zoom-mode", "center", "Зум: "+strings.Join(effects.ZoomModes, ", ")+", none")
	zoomSpeed := fs.Float64("zoom-speed", 0, "Скорость зума (0 - по умолчанию)")
	background := fs.String("background", "#000000", "Цвет фона")
	music := fs.String("audio", "", "Путь к аудио (по умолчанию: самый свежий файл в input/audio/)")
	audioSync := fs.Bool("audio-sync", true, "Подогнать длительность под аудио")
	logLevel := fs.String("log-level", "info", "Уровень логов")
	fs.Parse(args)

	logger := hclog.New(&hclog.LoggerOptions{Name: "timeline2video", Level: hclog.LevelFromString(*logLevel)})
	if *zoom != "none" && !slices.Contains(effects.ZoomModes, *zoom) {
		return fmt.Errorf("неизвестный режим зума %q", *zoom)
	}

	// Создаем нужные директории, если их нет
	for _, d := range []string{"input/audio", "input/pdf", timelinesDir, outputDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}

	if *input == "" {
		latest, err := system.FindLatestPDF("input/pdf")
		if err != nil {
			return fmt.Errorf("%w. Положите PDF в input/pdf/", err)
		}
		*input = latest
		logger.Info("input selected", "path", latest)
	}
	pages, err := source.Pages(*input)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return fmt.Errorf("в источнике нет страниц или изображений: %s", *input)
	}

	if *music == "" {
		if latest, err := system.FindLatestAudio("input/audio"); err == nil {
			*music = latest
			logger.Info("audio selected", "path", latest)
		}
	}

	// Длительность страниц подгоняется так, чтобы ролик закончился вместе
	// с аудио: total = n*page - (n-1)*fade
	if *music != "" && *audioSync {
		dur, err := system.GetAudioDuration(*music)
		if err != nil {
			logger.Warn("audio duration unavailable", "path", *music, "error", err)
		} else {
			n := float64(len(pages))
			*pageDuration = (dur + (n-1)*(*fade)) / n
			logger.Info("page duration synced to audio", "audio", dur, "page", *pageDuration)
		}
	}

	w, h := *width, *height
	if size, ok := config.Presets[*preset]; ok {
		w, h = size[0], size[1]
	}

	for i, p := range pages {
		if abs, err := filepath.Abs(p); err == nil {
			pages[i] = abs
		}
	}
	if *music != "" {
		if abs, err := filepath.Abs(*music); err == nil {
			*music = abs
		}
	}

	doc, err := scenario.Slideshow(pages, scenario.SlideshowOptions{
		Width:        w,
		Height:       h,
		FPS:          *fps,
		PageDuration: *pageDuration,
		Fade:         *fade,
		Zoom:         *zoom,
		ZoomSpeed:    *zoomSpeed,
		Background:   *background,
		Music:        *music,
	})
	if err != nil {
		return err
	}

	path := *output
	if path == "" {
		path = scenario.GeneratePath(timelinesDir)
	}
	if err := scenario.Write(doc, path); err != nil {
		return err
	}
	logger.Info("timeline written", "path", path, "pages", len(pages), "duration", doc.Settings.Duration)
	fmt.Printf("[+++] Успех! Таймлайн: %s\n", path)
	return nil
}
