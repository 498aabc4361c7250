package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/df07/go-weekend-raytracer/pkg/config"
	"github.com/df07/go-weekend-raytracer/pkg/core"
	"github.com/df07/go-weekend-raytracer/pkg/output"
	"github.com/df07/go-weekend-raytracer/pkg/renderer"
	"github.com/df07/go-weekend-raytracer/pkg/scene"
)

// errHelp signals that usage was printed and nothing should be rendered
var errHelp = errors.New("help requested")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// run renders one image as described by args. Progress and timing go to
// stderr; stdout only carries the image when the output path is "-".
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(args, stdout, stderr)
	if errors.Is(err, errHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logger := core.NewDefaultLogger(stderr)
	logger.Printf("Starting Weekend Raytracer...\n")

	selectedScene, err := createScene(cfg)
	if err != nil {
		return err
	}
	camera, err := selectedScene.NewCamera()
	if err != nil {
		return fmt.Errorf("scene %q: %w", selectedScene.Name, err)
	}
	logger.Printf("Using %s scene: %d shapes, %dx%d, %d samples, depth %d\n",
		selectedScene.Name, selectedScene.GetPrimitiveCount(),
		camera.Width(), camera.Height(), camera.SamplesPerPixel(), camera.MaxDepth())

	path := outputPath(cfg, time.Now())
	dst, closeDst, err := openOutput(path, stdout)
	if err != nil {
		return err
	}

	writer, err := output.NewWriter(cfg.Format, dst)
	if err != nil {
		closeDst()
		return err
	}

	raytracer := renderer.NewRaytracer(camera, selectedScene.World, renderer.RenderOptions{
		Seed:           cfg.Seed,
		NumWorkers:     cfg.Workers,
		ReportProgress: true,
	}, logger)

	stats, renderErr := raytracer.Render(ctx, writer)
	if err := closeDst(); err != nil && renderErr == nil {
		renderErr = fmt.Errorf("closing output: %w", err)
	}
	if renderErr != nil {
		return fmt.Errorf("render failed: %w", renderErr)
	}

	logger.Printf("Render completed in %v (%s, %.0f samples/s)\n",
		stats.Elapsed.Round(time.Millisecond), stats, stats.SamplesPerSecond())
	if path != "-" {
		logger.Printf("Render saved as %s\n", path)
	}
	return nil
}

// loadConfig builds the render config from an optional JSON file and the
// command line. Flags that were given explicitly win over the file.
func loadConfig(args []string, stdout, stderr io.Writer) (*config.Config, error) {
	defaults := config.Default()

	fs := flag.NewFlagSet("raytracer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sceneName := fs.String("scene", defaults.Scene, "Scene to render: "+strings.Join(scene.Names(), ", "))
	configPath := fs.String("config", "", "JSON config file; flags override its values")
	outPath := fs.String("output", "", "Output file, '-' for stdout (default output/<scene>/render_<timestamp>.<format>)")
	format := fs.String("format", defaults.Format, "Output format: "+strings.Join(output.Formats(), ", "))
	width := fs.Int("width", 0, "Image width in pixels (default from scene)")
	samples := fs.Int("samples", 0, "Samples per pixel (default from scene)")
	depth := fs.Int("depth", 0, "Maximum ray bounce depth (default from scene)")
	seed := fs.Int64("seed", defaults.Seed, "Random seed")
	workers := fs.Int("workers", defaults.Workers, "Rendering goroutines; 1 renders on a single goroutine")
	help := fs.Bool("help", false, "Show help information")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, errHelp
		}
		return nil, err
	}

	if *help {
		printUsage(stdout, fs)
		return nil, errHelp
	}

	cfg := defaults
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	formatSet := false
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scene":
			cfg.Scene = *sceneName
		case "output":
			cfg.Output = *outPath
		case "format":
			cfg.Format = *format
			formatSet = true
		case "width":
			cfg.Camera.Width = width
		case "samples":
			cfg.Camera.SamplesPerPixel = samples
		case "depth":
			cfg.Camera.MaxDepth = depth
		case "seed":
			cfg.Seed = *seed
		case "workers":
			cfg.Workers = *workers
		}
	})

	// "-output image.png" implies the png format unless one was asked for
	if !formatSet && cfg.Output != "" && cfg.Output != "-" {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(cfg.Output), "."))
		for _, f := range output.Formats() {
			if ext == f {
				cfg.Format = f
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Weekend Raytracer")
	fmt.Fprintln(w, "Usage: raytracer [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Available scenes:")
	for _, info := range scene.List() {
		fmt.Fprintf(w, "  %-10s %s\n", info.Name, info.Description)
	}
}

// createScene builds the configured scene with the config's camera
// overrides applied
func createScene(cfg *config.Config) (*scene.Scene, error) {
	s, err := scene.New(cfg.Scene, cfg.Seed)
	if err != nil {
		return nil, err
	}
	s.CameraConfig = cfg.Apply(s.CameraConfig)
	return s, nil
}

// outputPath returns the configured path or a timestamped one under
// output/<scene>/
func outputPath(cfg *config.Config, now time.Time) string {
	if cfg.Output != "" {
		return cfg.Output
	}
	timestamp := now.Format("20060102_150405")
	return filepath.Join("output", strings.ToLower(cfg.Scene), "render_"+timestamp+output.Extension(cfg.Format))
}

// openOutput opens path for writing, creating parent directories. "-" is
// stdout, which is never closed.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "-" {
		return stdout, func() error { return nil }, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return file, file.Close, nil
}
