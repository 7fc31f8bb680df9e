package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mchmarny/top1m/pkg/config"
	"github.com/mchmarny/top1m/pkg/data"
	"github.com/mchmarny/top1m/pkg/logging"
	urfave "github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "top1m"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
	formatText = "text"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	debugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	dbFilePathFlag = &urfave.StringFlag{
		Name:  "db",
		Usage: "Path to the Sqlite database file (default: ~/.top1m/data.db)",
	}

	formatFlag = &urfave.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml, text]",
		Value: formatJSON,
	}

	configFlag = &urfave.StringFlag{
		Name:  "config",
		Usage: "Path to the config file (default: ~/.top1m/config.yaml)",
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	initLogging(false)

	app := newApp()
	if err := app.Run(os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	DBPath     string
	ConfigPath string
	Format     string
	Debug      bool
	Config     *config.Config
	DB         *sql.DB
}

func getConfig(c *urfave.Context) *appConfig {
	return c.App.Metadata[appConfigKey].(*appConfig)
}

func newApp() *urfave.App {
	return &urfave.App{
		Name:                 appName,
		Version:              fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Compiled:             time.Now(),
		EnableBashCompletion: true,
		HideHelpCommand:      true,
		Usage:                "Composite ranking of the most popular domains across public top lists",
		Flags: []urfave.Flag{
			debugFlag,
			dbFilePathFlag,
			formatFlag,
			configFlag,
		},
		Commands: []*urfave.Command{
			buildCmd,
			sourcesCmd,
			runsCmd,
			rankingCmd,
			domainCmd,
			serverCmd,
			resetCmd,
		},
		Before: before,
		After: func(c *urfave.Context) error {
			if cfg, ok := c.App.Metadata[appConfigKey].(*appConfig); ok && cfg.DB != nil {
				cfg.DB.Close()
			}
			return nil
		},
	}
}

func before(c *urfave.Context) error {
	debug := c.Bool(debugFlag.Name)
	if debug {
		initLogging(true)
	}

	format, err := parseFormat(c.String(formatFlag.Name))
	if err != nil {
		return err
	}

	home, _, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		return fmt.Errorf("getting home dir: %w", err)
	}

	confPath := c.String(configFlag.Name)
	var conf *config.Config
	if confPath == "" {
		confPath = filepath.Join(home, config.FileName)
		conf, err = config.ReadOrCreate(home)
	} else {
		conf, err = config.Load(confPath)
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dbPath := c.String(dbFilePathFlag.Name)
	if dbPath == "" {
		dbPath = filepath.Join(home, data.DataFileName)
	}

	if err := data.Init(dbPath); err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}

	db, err := data.GetDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	c.App.Metadata[appConfigKey] = &appConfig{
		DBPath:     dbPath,
		ConfigPath: confPath,
		Format:     format,
		Debug:      debug,
		Config:     conf,
		DB:         db,
	}
	return nil
}

// applyFlags honors the flags repeated at the command level.
func applyFlags(c *urfave.Context) {
	if c.Bool(debugFlag.Name) {
		initLogging(true)
	}
}

func parseFormat(f string) (string, error) {
	switch f {
	case "", formatJSON:
		return formatJSON, nil
	case formatYAML, "yml":
		return formatYAML, nil
	case formatText, "txt":
		return formatText, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", f)
	}
}

func initLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(logging.NewCLIHandler(os.Stderr, level)))
}

// texter is implemented by results that have a plain text rendering.
type texter interface {
	writeText(w io.Writer) error
}

func encode(c *urfave.Context, v any) error {
	w := c.App.Writer
	switch getConfig(c).Format {
	case formatText:
		if t, ok := v.(texter); ok {
			return t.writeText(w)
		}
		fallthrough
	case formatYAML:
		e := yaml.NewEncoder(w)
		defer e.Close()
		return e.Encode(v)
	default:
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(v)
	}
}
