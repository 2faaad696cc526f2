package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"

	"github.com/ProhorTaim/Egregoria/internal/api"
	"github.com/ProhorTaim/Egregoria/internal/config"
	"github.com/ProhorTaim/Egregoria/internal/console"
	"github.com/ProhorTaim/Egregoria/internal/domain"
	"github.com/ProhorTaim/Egregoria/internal/manifest"
	"github.com/ProhorTaim/Egregoria/internal/project"
	"github.com/ProhorTaim/Egregoria/internal/reconcile"
	"github.com/ProhorTaim/Egregoria/internal/storage"
	"github.com/ProhorTaim/Egregoria/pkg/logger"
)

// environment is the process surface the commands touch, swapped out in tests.
type environment struct {
	stdout io.Writer
	stderr io.Writer
	color  bool
	getwd  func() (string, error)
}

type assetSync struct {
	cfg *config.Config
	env environment
}

func newApp(cfg *config.Config, env environment) *cli.App {
	a := &assetSync{cfg: cfg, env: env}

	return &cli.App{
		Name:      "assetsync",
		Usage:     "Restore missing and placeholder game assets from the remote media host",
		ArgsUsage: "[PROJECT_DIR]",
		Writer:    env.stdout,
		ErrWriter: env.stderr,
		Flags:     append(a.globalFlags(), a.syncFlags()...),
		Before:    a.setupLogging,
		Action:    a.runSync,
		// main owns the exit status
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:      "sync",
				Usage:     "Download every manifest entry that is missing or still a git-lfs pointer",
				ArgsUsage: "[PROJECT_DIR]",
				Flags:     a.syncFlags(),
				Action:    a.runSync,
			},
			{
				Name:      "status",
				Usage:     "Show the local state of every manifest entry without downloading",
				ArgsUsage: "[PROJECT_DIR]",
				Flags:     []cli.Flag{newIncludeFlag(), newVerboseFlag()},
				Action:    a.runStatus,
			},
			{
				Name:  "list",
				Usage: "Print the asset manifest",
				Flags: []cli.Flag{
					newIncludeFlag(),
					&cli.BoolFlag{
						Name:  "categories",
						Usage: "Print category names and counts instead of paths",
					},
				},
				Action: a.runList,
			},
			{
				Name:      "serve",
				Usage:     "Serve the assets of a reconciled checkout over HTTP",
				ArgsUsage: "[PROJECT_DIR]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "port",
						Usage: "Port to listen on",
						Value: a.cfg.Server.Port,
					},
					&cli.StringSliceFlag{
						Name:  "allowed-origin",
						Usage: "CORS origin allowed to fetch assets (repeatable, * for any)",
						Value: cli.NewStringSlice(a.cfg.Server.AllowedOrigins...),
					},
				},
				Action: a.runServe,
			},
		},
	}
}

func (a *assetSync) globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (trace, debug, info, warn, error)",
			Value: a.cfg.Log.Level,
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
			Value: a.cfg.Log.NoColor,
		},
	}
}

func (a *assetSync) syncFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "remote-base",
			Usage: "Base URL assets are fetched from, overriding owner/repo/branch",
			Value: a.cfg.Remote.BaseURL,
		},
		&cli.StringFlag{
			Name:  "owner",
			Usage: "Repository owner on the media host",
			Value: a.cfg.Remote.Owner,
		},
		&cli.StringFlag{
			Name:  "repo",
			Usage: "Repository name on the media host",
			Value: a.cfg.Remote.Repo,
		},
		&cli.StringFlag{
			Name:  "branch",
			Usage: "Branch the assets are fetched from",
			Value: a.cfg.Remote.Branch,
		},
		&cli.BoolFlag{
			Name:  "insecure-skip-verify",
			Usage: "Do not verify the remote's TLS certificate",
			Value: a.cfg.Remote.InsecureSkipVerify,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-request timeout (0 for none)",
			Value: a.cfg.Remote.Timeout,
		},
		&cli.StringFlag{
			Name:  "source",
			Usage: "Where assets come from: http or s3",
			Value: a.cfg.Source.Kind,
		},
		&cli.StringFlag{
			Name:  "s3-endpoint",
			Usage: "S3 mirror endpoint (host:port or URL)",
			Value: a.cfg.Source.Endpoint,
		},
		&cli.StringFlag{
			Name:  "s3-bucket",
			Usage: "S3 mirror bucket",
			Value: a.cfg.Source.Bucket,
		},
		&cli.StringFlag{
			Name:  "s3-prefix",
			Usage: "Key prefix of the asset tree inside the bucket",
			Value: a.cfg.Source.Prefix,
		},
		&cli.StringFlag{
			Name:  "s3-region",
			Usage: "S3 mirror region",
			Value: a.cfg.Source.Region,
		},
		&cli.BoolFlag{
			Name:  "s3-use-ssl",
			Usage: "Use HTTPS for the S3 mirror",
			Value: a.cfg.Source.UseSSL,
		},
		newIncludeFlag(),
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Only report what would be downloaded",
		},
		newVerboseFlag(),
	}
}

func newIncludeFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:  "include",
		Usage: "Only handle manifest entries matching this glob (repeatable, ** allowed)",
	}
}

func newVerboseFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Also list entries that are already present",
	}
}

func (a *assetSync) setupLogging(c *cli.Context) error {
	logger.Configure(a.env.stderr, c.Bool("no-color") || !a.env.color)
	logger.SetLevel(c.String("log-level"))
	return nil
}

// explicit returns the innermost context in which name was given on the
// command line, so app-level flags survive the sync subcommand's defaults.
func explicit(c *cli.Context, name string) *cli.Context {
	for _, ctx := range c.Lineage() {
		if ctx.IsSet(name) {
			return ctx
		}
	}
	return nil
}

// settings overlays explicitly given flags onto the loaded configuration.
func (a *assetSync) settings(c *cli.Context) config.Config {
	cfg := *a.cfg

	str := map[string]*string{
		"remote-base": &cfg.Remote.BaseURL,
		"owner":       &cfg.Remote.Owner,
		"repo":        &cfg.Remote.Repo,
		"branch":      &cfg.Remote.Branch,
		"source":      &cfg.Source.Kind,
		"s3-endpoint": &cfg.Source.Endpoint,
		"s3-bucket":   &cfg.Source.Bucket,
		"s3-prefix":   &cfg.Source.Prefix,
		"s3-region":   &cfg.Source.Region,
	}
	for name, dst := range str {
		if ctx := explicit(c, name); ctx != nil {
			*dst = ctx.String(name)
		}
	}
	if ctx := explicit(c, "insecure-skip-verify"); ctx != nil {
		cfg.Remote.InsecureSkipVerify = ctx.Bool("insecure-skip-verify")
	}
	if ctx := explicit(c, "s3-use-ssl"); ctx != nil {
		cfg.Source.UseSSL = ctx.Bool("s3-use-ssl")
	}
	if ctx := explicit(c, "timeout"); ctx != nil {
		cfg.Remote.Timeout = ctx.Duration("timeout")
	}
	cfg.Source.Kind = strings.ToLower(strings.TrimSpace(cfg.Source.Kind))
	return cfg
}

func (a *assetSync) printer(c *cli.Context) *console.Printer {
	return console.New(a.env.stdout, a.env.color && !c.Bool("no-color"), c.Bool("verbose"))
}

// resolveRoot finds the project directory. Failures are fatal and happen
// before anything is fetched.
func (a *assetSync) resolveRoot(c *cli.Context, cfg config.Config) (string, error) {
	cwd, err := a.env.getwd()
	if err != nil {
		return "", cli.Exit(fmt.Sprintf("error: cannot determine working directory: %v", err), 1)
	}

	root, err := project.NewResolver(cfg.Project.AssetsDir, cfg.Project.MarkerFile).Resolve(c.Args().First(), cwd)
	if err != nil {
		return "", cli.Exit(fmt.Sprintf("error: %v\nRun from the project root or pass the project directory as an argument.", err), 1)
	}
	return root, nil
}

func selectEntries(c *cli.Context) ([]domain.AssetPath, error) {
	entries, err := manifest.Filter(manifest.Entries(), c.StringSlice("include"))
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	return entries, nil
}

func httpConfig(cfg config.Config) storage.HTTPConfig {
	return storage.HTTPConfig{
		BaseURL:            cfg.Remote.MediaBaseURL(),
		InsecureSkipVerify: cfg.Remote.InsecureSkipVerify,
		Timeout:            cfg.Remote.Timeout,
		UserAgent:          cfg.Remote.UserAgent,
	}
}

// buildSource picks the transport for cfg.Source.Kind.
func buildSource(cfg config.Config) (storage.Source, error) {
	switch cfg.Source.Kind {
	case config.SourceS3:
		src, err := storage.NewMirrorSource(storage.MirrorConfig{
			Endpoint:  cfg.Source.Endpoint,
			AccessKey: cfg.Source.AccessKey,
			SecretKey: cfg.Source.SecretKey,
			Bucket:    cfg.Source.Bucket,
			Prefix:    cfg.Source.Prefix,
			Region:    cfg.Source.Region,
			UseSSL:    cfg.Source.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		src, err := storage.NewHTTPSource(httpConfig(cfg))
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}

func (a *assetSync) runSync(c *cli.Context) error {
	cfg := a.settings(c)
	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}

	root, err := a.resolveRoot(c, cfg)
	if err != nil {
		return err
	}

	entries, err := selectEntries(c)
	if err != nil {
		return err
	}

	src, err := buildSource(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	if cfg.Source.Kind == config.SourceHTTP && cfg.Remote.InsecureSkipVerify {
		logger.Log.Warn().Str("remote", src.Describe()).Msg("TLS certificate verification is disabled")
	}

	dryRun := c.Bool("dry-run")
	banner := console.Banner{
		Source:  src.Describe(),
		Dir:     root,
		Project: project.Describe(root, cfg.Project.MarkerFile),
		Entries: len(entries),
		DryRun:  dryRun,
	}
	if cfg.Source.Kind == config.SourceHTTP && cfg.Remote.BaseURL == "" {
		banner.Branch = cfg.Remote.Branch
	}

	out := a.printer(c)
	out.Header(banner)

	r := reconcile.New(src, root, reconcile.WithObserver(out))
	if dryRun {
		pending := out.Plan(r.Plan(entries))
		fmt.Fprintf(a.env.stdout, "\n%d file(s) would be downloaded\n", pending)
		return nil
	}

	summary := r.Run(c.Context, entries)
	out.Summary(summary)
	if !summary.Success() {
		return cli.Exit("", 1)
	}
	return nil
}

func (a *assetSync) runStatus(c *cli.Context) error {
	cfg := a.settings(c)

	root, err := a.resolveRoot(c, cfg)
	if err != nil {
		return err
	}

	entries, err := selectEntries(c)
	if err != nil {
		return err
	}

	out := a.printer(c)
	fmt.Fprintf(a.env.stdout, "Folder: %s\n\n", root)

	// Plan only inspects the local tree, so no source is needed.
	pending := out.Plan(reconcile.New(nil, root).Plan(entries))
	if pending > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func (a *assetSync) runList(c *cli.Context) error {
	if c.Bool("categories") {
		for _, cat := range manifest.Categories() {
			fmt.Fprintf(a.env.stdout, "%-12s %4d  %s\n", cat.Name, cat.Count, cat.Description)
		}
		return nil
	}

	entries, err := selectEntries(c)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintln(a.env.stdout, e)
	}
	return nil
}

func (a *assetSync) runServe(c *cli.Context) error {
	cfg := a.settings(c)

	root, err := a.resolveRoot(c, cfg)
	if err != nil {
		return err
	}

	if strings.EqualFold(c.String("log-level"), "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	entries := manifest.Entries()
	if pending := countPending(reconcile.New(nil, root).Plan(entries)); pending > 0 {
		logger.Log.Warn().Int("unservable", pending).Msg("some manifest entries are missing or placeholders; run sync first")
	}

	port := c.String("port")
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      api.NewRouter(root, entries, c.StringSlice("allowed-origin")),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info().Str("port", port).Str("dir", root).Msg("Starting asset server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return cli.Exit(fmt.Sprintf("error: %v", err), 1)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return cli.Exit(fmt.Sprintf("error: server forced to shutdown: %v", err), 1)
	}
	logger.Log.Info().Msg("Server exiting")
	return nil
}

func countPending(items []reconcile.PlanItem) int {
	n := 0
	for _, it := range items {
		if it.Err != nil || it.State.NeedsFetch() {
			n++
		}
	}
	return n
}
