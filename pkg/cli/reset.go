package cli

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mchmarny/top1m/pkg/data"
	"github.com/urfave/cli/v2"
)

var (
	yesFlag = &cli.BoolFlag{
		Name:  "yes",
		Usage: "Skip the confirmation prompt",
	}

	resetCmd = &cli.Command{
		Name:            "reset",
		Usage:           "Delete all stored runs and start fresh",
		HideHelpCommand: true,
		Flags:           []cli.Flag{yesFlag, debugFlag},
		Action:          cmdReset,
	}
)

func cmdReset(c *cli.Context) error {
	applyFlags(c)
	cfg := getConfig(c)
	out := c.App.Writer

	if !c.Bool(yesFlag.Name) {
		fmt.Fprintf(out, "This will permanently delete all data in %s\n", cfg.DBPath)
		fmt.Fprint(out, "Are you sure? [y/N]: ")

		reader := bufio.NewReader(c.App.Reader)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	// close the DB before deleting the file
	if cfg.DB != nil {
		cfg.DB.Close()
		cfg.DB = nil
	}

	if err := os.Remove(cfg.DBPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting database: %w", err)
	}

	slog.Info("database deleted", "path", cfg.DBPath)

	// re-initialize empty database
	if err := data.Init(cfg.DBPath); err != nil {
		return fmt.Errorf("re-initializing database: %w", err)
	}

	slog.Info("database re-initialized", "path", cfg.DBPath)
	fmt.Fprintln(out, "Reset complete.")
	return nil
}
