package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/urfave/cli"

	imagecompressor "github.com/Skryldev/image-compressor"
	"github.com/Skryldev/image-compressor/adapters/storage"
	"github.com/Skryldev/image-compressor/config"
	"github.com/Skryldev/image-compressor/core"
	"github.com/Skryldev/image-compressor/hooks"
	"github.com/Skryldev/image-compressor/server"
	"github.com/Skryldev/image-compressor/stats"
)

func main() {
	app := cli.NewApp()
	app.Name = "explorer"
	app.Usage = "compare image compression strategies"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			Usage:  "path to a TOML configuration file",
			EnvVar: "EXPLORER_CONFIG",
			Value:  "explorer.toml",
		},
		cli.StringFlag{
			Name:   "log-level",
			Usage:  "debug, info, warn or error (overrides the config file)",
			EnvVar: "EXPLORER_LOG_LEVEL",
		},
	}

	typeFlag := cli.StringFlag{Name: "type, t", Usage: "compression type: jpeg, webp, quantization or dct", Value: "jpeg"}
	qualityFlag := cli.IntFlag{Name: "quality, q", Usage: "quality between 1 and 100", Value: 80}

	app.Commands = []cli.Command{
		{
			Name:      "compress",
			Usage:     "compress one image and save it",
			ArgsUsage: "<input>",
			Flags: []cli.Flag{
				typeFlag,
				qualityFlag,
				cli.StringFlag{Name: "out, o", Usage: "output directory (defaults to storage.dir)"},
				cli.StringFlag{Name: "name", Usage: "output file stem", Value: storage.DefaultBaseName},
			},
			Action: compressCmd,
		},
		{
			Name:      "compare",
			Usage:     "run every compression type on one image",
			ArgsUsage: "<input>",
			Flags:     []cli.Flag{qualityFlag},
			Action:    compareCmd,
		},
		{
			Name:      "tune",
			Usage:     "read qualities from stdin and recompress on every line; only the latest run is printed",
			ArgsUsage: "<input>",
			Flags:     []cli.Flag{typeFlag},
			Action:    tuneCmd,
		},
		{
			Name:   "strategies",
			Usage:  "list the compression types",
			Action: strategiesCmd,
		},
		{
			Name:  "serve",
			Usage: "serve the compression API over HTTP",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "addr", Usage: "listen address (overrides server.addr)", EnvVar: "ADDR"},
			},
			Action: serveCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// ── Wiring ────────────────────────────────────────────────────────────────────

type env struct {
	cfg     config.Config
	comp    *imagecompressor.Compressor
	logger  *hooks.SlogLogger
	metrics *hooks.InMemoryMetrics
	close   func()
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	if lvl := c.GlobalString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	comp, err := imagecompressor.New(cfg)
	if err != nil {
		return nil, err
	}

	logger := hooks.NewLevelLogger(os.Stderr, cfg.LogLevel)
	metrics := hooks.NewInMemoryMetrics()
	comp.SetLogger(logger)
	comp.SetMetrics(metrics)
	comp.AddHook(hooks.NewLoggingHook(logger))
	comp.AddHook(hooks.NewMetricsHook(metrics))

	closers := []func(){}
	if cfg.Backend == config.BackendVips {
		shutdown, err := enableVips(comp, cfg, logger)
		if err != nil {
			return nil, err
		}
		closers = append(closers, shutdown)
	}

	comp.Start()
	closers = append(closers, comp.Stop)

	return &env{
		cfg:     cfg,
		comp:    comp,
		logger:  logger,
		metrics: metrics,
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

func decodeArg(ctx context.Context, e *env, c *cli.Context) (*core.Decoded, error) {
	path := c.Args().First()
	if path == "" {
		return nil, errors.New("missing input file")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return e.comp.Decode(ctx, imagecompressor.FromReaderWithMeta(f, "", filepath.Base(path)))
}

func presetFlag(c *cli.Context) (core.Preset, error) {
	id := c.String("type")
	preset, ok := core.LookupPreset(id)
	if !ok {
		return core.Preset{}, fmt.Errorf("unknown compression type %q", id)
	}
	return preset, nil
}

// ── Commands ──────────────────────────────────────────────────────────────────

func compressCmd(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	preset, err := presetFlag(c)
	if err != nil {
		return err
	}
	ctx := context.Background()
	dec, err := decodeArg(ctx, e, c)
	if err != nil {
		return err
	}

	res, err := e.comp.Compress(ctx, dec.Buffer, preset.Config(c.Int("quality")), 0)
	if err != nil {
		return err
	}

	dir := c.String("out")
	if dir == "" {
		dir = e.cfg.Storage.Dir
	}
	store, err := storage.NewLocal(dir, os.FileMode(e.cfg.Storage.Permissions))
	if err != nil {
		return err
	}
	key := storage.ResultKey("", c.String("name"), res)
	snap := stats.ComputeStats(dec.Size, res.ByteSize())
	if err := storage.SaveResult(ctx, store, key, res, map[string]string{
		"preset":            preset.ID,
		"original_bytes":    strconv.FormatInt(dec.Size, 10),
		"reduction_percent": strconv.Itoa(snap.ReductionPercent()),
		"ratio":             snap.Ratio(),
	}); err != nil {
		return err
	}

	fmt.Printf("%s: %dx%d %s\n", filepath.Join(dir, key.Path), res.Width, res.Height, res.Format)
	fmt.Println(snap.String())
	if res.PaletteSize > 0 {
		fmt.Printf("palette: %d colors\n", res.PaletteSize)
	}
	return nil
}

func compareCmd(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := context.Background()
	dec, err := decodeArg(ctx, e, c)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tFORMAT\tSIZE\tBYTES\tREDUCTION\tRATIO\tPALETTE")
	for _, entry := range e.comp.Compare(ctx, dec, c.Int("quality")) {
		if entry.Err != nil {
			fmt.Fprintf(tw, "%s\terror: %v\t\t\t\t\t\n", entry.Preset.ID, entry.Err)
			continue
		}
		res := entry.Result
		snap := stats.ComputeStats(dec.Size, res.ByteSize())
		palette := "-"
		if res.PaletteSize > 0 {
			palette = strconv.Itoa(res.PaletteSize)
		}
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%s\t%d%%\t%s\t%s\n",
			entry.Preset.ID, res.Format, res.Width, res.Height,
			stats.FormatSize(res.ByteSize()), snap.ReductionPercent(), snap.Ratio(), palette)
	}
	fmt.Fprintf(tw, "original\t%s\t%dx%d\t%s\t\t\t\n",
		dec.Format, dec.Buffer.Width, dec.Buffer.Height, stats.FormatSize(dec.Size))
	return tw.Flush()
}

func tuneCmd(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	preset, err := presetFlag(c)
	if err != nil {
		return err
	}
	ctx := context.Background()
	dec, err := decodeArg(ctx, e, c)
	if err != nil {
		return err
	}

	session := e.comp.NewSession(dec, func(run core.Run) {
		if run.Err != nil {
			fmt.Printf("#%d q=%d: %v\n", run.Seq, run.Config.Quality, run.Err)
			return
		}
		fmt.Printf("#%d q=%d %s %dx%d: %s\n", run.Seq, run.Config.Quality,
			run.Result.Format, run.Result.Width, run.Result.Height, run.Stats)
	})
	defer session.Close()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		q, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "not a quality: %q\n", line)
			continue
		}
		if _, err := session.Trigger(ctx, preset.Config(q)); err != nil {
			fmt.Fprintf(os.Stderr, "trigger: %v\n", err)
		}
	}
	session.Wait()
	return scanner.Err()
}

func strategiesCmd(_ *cli.Context) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTRATEGY\tDESCRIPTION")
	for _, p := range imagecompressor.Presets() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Strategy, p.Description)
	}
	return tw.Flush()
}

func serveCmd(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	addr := c.String("addr")
	if addr == "" {
		addr = e.cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(e.comp, server.Options{
		DefaultPreset:  e.cfg.DefaultStrategy,
		DefaultQuality: e.cfg.DefaultQuality,
		MaxUploadBytes: e.cfg.Server.MaxUploadBytes,
		Logger:         e.logger,
	})
	e.logger.Info("server.start", "addr", addr)
	err = srv.ListenAndServe(ctx, addr)

	snap := e.metrics.Snapshot()
	e.logger.Info("server.stop",
		"processed", e.comp.Inner().ProcessedCount(),
		"errors", e.comp.Inner().ErrorCount(),
		"bytes_out", snap.TotalThroughputB,
	)
	return err
}
