package cli

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/mchmarny/top1m/pkg/data"
	"github.com/mchmarny/top1m/pkg/rank"
	"github.com/mchmarny/top1m/pkg/source"
	"github.com/urfave/cli/v2"
)

const (
	queryResultLimitDefault = 100
	queryResultLimitMax     = 10_000
	runLimitDefault         = 20
)

var (
	runLimitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Limits number of runs returned",
		Value: runLimitDefault,
	}

	runIDFlag = &cli.Int64Flag{
		Name:  "run",
		Usage: "Run ID (default: latest run)",
	}

	offsetFlag = &cli.IntFlag{
		Name:  "offset",
		Usage: "Number of ranked entries to skip",
	}

	queryLimitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: fmt.Sprintf("Limits number of results returned (max: %d)", queryResultLimitMax),
		Value: queryResultLimitDefault,
	}

	domainNameFlag = &cli.StringFlag{
		Name:     "name",
		Usage:    "Domain name (e.g. google.com)",
		Required: true,
	}

	sourcesCmd = &cli.Command{
		Name:   "sources",
		Usage:  "List the configured sources",
		Action: cmdSources,
		Flags:  []cli.Flag{debugFlag},
	}

	runsCmd = &cli.Command{
		Name:   "runs",
		Usage:  "List stored ranking runs, newest first",
		Action: cmdRuns,
		Flags:  []cli.Flag{runLimitFlag, debugFlag},
	}

	rankingCmd = &cli.Command{
		Name:    "ranking",
		Aliases: []string{"r"},
		Usage:   "Page through a stored ranking",
		UsageText: `top1m ranking                          # first entries of the latest run
   top1m ranking --run 3 --offset 100 --limit 50`,
		Action: cmdRanking,
		Flags:  []cli.Flag{runIDFlag, offsetFlag, queryLimitFlag, debugFlag},
	}

	domainCmd = &cli.Command{
		Name:   "domain",
		Usage:  "Show the rank history of a domain across stored runs",
		Action: cmdDomain,
		Flags:  []cli.Flag{domainNameFlag, runLimitFlag, debugFlag},
	}
)

type sourceList []*source.Config

// RankingPage is a slice of a stored ranking.
type RankingPage struct {
	Run     *data.Run            `json:"run" yaml:"run"`
	Sources []rank.SourceSummary `json:"sources" yaml:"sources"`
	Offset  int                  `json:"offset" yaml:"offset"`
	Entries []rank.Entry         `json:"entries" yaml:"entries"`
}

type runList []*data.Run

type domainHistory []*data.DomainRank

func cmdSources(c *cli.Context) error {
	applyFlags(c)
	return encode(c, sourceList(getConfig(c).Config.Sources))
}

func cmdRuns(c *cli.Context) error {
	applyFlags(c)
	cfg := getConfig(c)

	list, err := data.GetRuns(cfg.DB, c.Int(runLimitFlag.Name))
	if err != nil {
		return fmt.Errorf("failed to query runs: %w", err)
	}

	return encode(c, runList(list))
}

func cmdRanking(c *cli.Context) error {
	applyFlags(c)
	cfg := getConfig(c)

	limit := c.Int(queryLimitFlag.Name)
	if limit <= 0 || limit > queryResultLimitMax {
		limit = queryResultLimitMax
	}

	page, err := getRankingPage(cfg.DB, c.Int64(runIDFlag.Name), c.Int(offsetFlag.Name), limit)
	if err != nil {
		return err
	}

	return encode(c, page)
}

func getRankingPage(db *sql.DB, runID int64, offset, limit int) (*RankingPage, error) {
	if runID <= 0 {
		id, err := data.GetLatestRunID(db)
		if err != nil {
			return nil, fmt.Errorf("failed to get latest run: %w", err)
		}
		runID = id
	}

	run, err := data.GetRun(db, runID)
	if err != nil {
		return nil, err
	}

	sources, err := data.GetRunSources(db, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run sources: %w", err)
	}

	entries, err := data.GetRanking(db, runID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking: %w", err)
	}
	slog.Debug("ranking page", "run", runID, "offset", offset, "entries", len(entries))

	return &RankingPage{
		Run:     run,
		Sources: sources,
		Offset:  offset,
		Entries: entries,
	}, nil
}

func cmdDomain(c *cli.Context) error {
	applyFlags(c)
	cfg := getConfig(c)

	list, err := data.GetDomainHistory(cfg.DB, c.String(domainNameFlag.Name), c.Int(runLimitFlag.Name))
	if err != nil {
		return fmt.Errorf("failed to query domain: %w", err)
	}

	return encode(c, domainHistory(list))
}

func (l sourceList) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFORMAT\tWEIGHT\tLIMIT\tENABLED\tLOCATION")
	for _, s := range l {
		loc := s.URL
		if loc == "" {
			loc = s.Path
		}
		fmt.Fprintf(tw, "%s\t%s\t%g\t%d\t%t\t%s\n", s.Name, s.Format, s.Weight, s.Limit, !s.Disabled, loc)
	}
	return tw.Flush()
}

func (l runList) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tTARGET\tDOMAINS\tENTRIES\tSOURCES\tDURATION")
	for _, r := range l {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.CreatedAt, r.TargetSize, r.Domains, r.Entries, r.Sources, r.Duration)
	}
	return tw.Flush()
}

func (p *RankingPage) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Run %d created %s\n\n", p.Run.ID, p.Run.CreatedAt)
	fmt.Fprintln(tw, "RANK\tDOMAIN\tSCORE\tAPPEARANCES\tAVG")
	for _, e := range p.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%.6f\t%d\t%.6f\n", e.Rank, e.Domain, e.CompositeScore, e.Appearances, e.AvgScore)
	}
	return tw.Flush()
}

func (l domainHistory) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tRANK\tSCORE\tAPPEARANCES")
	for _, r := range l {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.6f\t%d\n",
			r.RunID, r.CreatedAt, r.Entry.Rank, r.Entry.CompositeScore, r.Entry.Appearances)
	}
	return tw.Flush()
}
