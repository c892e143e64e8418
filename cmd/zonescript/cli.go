package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/alecthomas/kong"
	"github.com/pkg/profile"

	"zonescript/internal/config"
	"zonescript/internal/diag"
	zlog "zonescript/internal/log"
	"zonescript/internal/messages"
	"zonescript/internal/policy"
)

type CLI struct {
	Config string `help:"Configuration file." short:"c" default:"zonescript.toml" type:"path"`
	Locale string `help:"Locale of operator messages."`

	LogLevel  string `help:"Log level: trace, debug, info, warn, error, none." name:"log-level" group:"log"`
	LogFormat string `help:"Log format: text or json." name:"log-format" group:"log"`
	LogFile   string `help:"Log to this file instead of stderr; reopened on SIGHUP." name:"log-file" type:"path" group:"log"`

	StoreDriver string `help:"Policy store: file, sqlite3, mysql or postgres." name:"store-driver" group:"store"`
	StoreDir    string `help:"Directory of the file store." name:"store-dir" type:"path" group:"store"`
	StoreDSN    string `help:"Data source name of a SQL store." name:"store-dsn" group:"store"`

	Profile    string `help:"Write a cpu or mem profile." enum:",cpu,mem" default:""`
	ProfileDir string `help:"Profile output directory." name:"profile-dir" default:"." type:"path"`

	Version kong.VersionFlag `help:"Print version information and exit." short:"v"`

	Run     RunCmd     `cmd:"" help:"Load a script under its policy and run its top level."`
	Trigger TriggerCmd `cmd:"" help:"Load scripts and dispatch one event to them."`
	Repl    ReplCmd    `cmd:"" help:"Start an interactive shell."`
	Ast     AstCmd     `cmd:"" help:"Print the syntax tree of a script."`
	Policy  PolicyCmd  `cmd:"" help:"Manage script policies."`
}

// configuration applies command line overrides to the configuration file.
func (c *CLI) configuration() (config.Configuration, error) {
	cfg, err := config.Load(c.Config, true)
	if err != nil {
		return cfg, err
	}
	cfg.Version, cfg.BuildDate, cfg.Commit = Version, BuildDate, Commit

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.Locale, c.Locale)
	override(&cfg.Log.Level, c.LogLevel)
	override(&cfg.Log.Format, c.LogFormat)
	override(&cfg.Log.File, c.LogFile)
	override(&cfg.Store.Driver, c.StoreDriver)
	override(&cfg.Store.Dir, c.StoreDir)
	override(&cfg.Store.DSN, c.StoreDSN)

	return cfg, cfg.Validate()
}

// env is what every command runs with.
type env struct {
	cfg     config.Configuration
	out     io.Writer
	errOut  io.Writer
	logger  *slog.Logger
	catalog *messages.Catalog
	store   policy.Store
}

// registry opens the configured store and loads every policy in it.
func (e *env) registry(ctx context.Context) (*policy.Registry, error) {
	if e.store == nil {
		store, err := openStore(ctx, e.cfg, e.logger)
		if err != nil {
			return nil, err
		}
		e.store = store
	}
	registry := policy.NewRegistry(e.store, e.logger)
	if err := registry.LoadAll(ctx); err != nil {
		e.logger.Warn("some policies could not be loaded", slog.Any("error", err))
	}
	return registry, nil
}

func (e *env) close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Error("closing policy store", slog.Any("error", err))
		}
	}
}

func (e *env) printf(key messages.Key, args ...any) {
	fmt.Fprintln(e.out, e.catalog.Sprintf(key, args...))
}

func openStore(ctx context.Context, cfg config.Configuration, logger *slog.Logger) (policy.Store, error) {
	if cfg.Store.Driver == "file" {
		return policy.NewFileStore(cfg.Store.Dir, cfg.DefaultWorld, logger)
	}
	return policy.OpenSQLStore(ctx, cfg.Store.Driver, cfg.Store.DSN, cfg.DefaultWorld, logger)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, exit func(int)) error {
	var cli CLI

	parser, err := kong.New(&cli,
		kong.Name("zonescript"),
		kong.Description("Event-driven scripts sandboxed to regions of a game world."),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.Writers(stdout, stderr),
		kong.Vars{"version": fmt.Sprintf("zonescript version 'v%s' %s %s", Version, BuildDate, Commit)},
		kong.ConfigureHelp(kong.HelpOptions{Compact: true, Summary: true}),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := cli.configuration()
	if err != nil {
		return err
	}

	logger, err := zlog.New(zlog.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	}, stderr)
	if err != nil {
		return err
	}
	defer logger.Close()

	e := &env{
		cfg:     cfg,
		out:     stdout,
		errOut:  stderr,
		logger:  logger.Logger,
		catalog: messages.New(cfg.Locale),
	}
	defer e.close()

	defer startProfile(cli.Profile, cli.ProfileDir, e.logger)()

	return ktx.Run(e)
}

var profileModes = map[string]func(*profile.Profile){
	"cpu": profile.CPUProfile,
	"mem": profile.MemProfile,
}

func startProfile(mode, dir string, logger *slog.Logger) (stop func()) {
	fn, ok := profileModes[mode]
	if !ok {
		return func() {}
	}
	logger.Debug("profiling", slog.String("mode", mode), slog.String("dir", dir))
	p := profile.Start(fn, profile.ProfilePath(dir), profile.Quiet, profile.NoShutdownHook)
	return p.Stop
}

func errorText(err error) string {
	return diag.Error(err, "")
}
