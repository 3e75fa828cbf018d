package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dvloznov/carteira/internal/app"
	"github.com/dvloznov/carteira/internal/config"
	"github.com/dvloznov/carteira/internal/history"
	"github.com/dvloznov/carteira/internal/infra/gcs"
	"github.com/dvloznov/carteira/internal/logger"
	"github.com/dvloznov/carteira/internal/pipeline"
	"github.com/google/subcommands"
)

// commands lists every subcommand; each opens its own App.
func commands(cfg *config.Config) []subcommands.Command {
	return []subcommands.Command{
		&importCmd{cfg: cfg, out: os.Stdout},
		&fetchCmd{cfg: cfg, out: os.Stdout},
		&ratesCmd{cfg: cfg, out: os.Stdout},
		&runsCmd{cfg: cfg, out: os.Stdout},
	}
}

func openApp(ctx context.Context, cfg *config.Config) (*app.App, error) {
	return app.New(ctx, cfg, logger.FromContext(ctx))
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return subcommands.ExitFailure
}

type importCmd struct {
	cfg     *config.Config
	out     io.Writer
	email   string
	timeout time.Duration
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import a bank statement for a user" }
func (*importCmd) Usage() string {
	return `import -user <email> <path | gs://bucket/object>

  Extracts the transactions of a PDF or text statement and stores the ones
  the user does not already have.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "user", "", "Email of the user that owns the statement (required)")
	f.DurationVar(&c.timeout, "timeout", 5*time.Minute, "Overall timeout")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.email == "" || f.NArg() != 1 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	source := f.Arg(0)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	a, err := openApp(ctx, c.cfg)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	user, err := a.Repo.GetUserByEmail(ctx, c.email)
	if err != nil {
		return fail(fmt.Errorf("user %s: %w", c.email, err))
	}

	content, filename, err := readStatement(ctx, a, source)
	if err != nil {
		return fail(err)
	}

	extractor, err := a.Extractor(ctx)
	if err != nil {
		return fail(err)
	}
	result, err := a.Importer(extractor).Import(ctx, pipeline.ImportRequest{
		UserID:   user.ID,
		Filename: filename,
		Content:  content,
	})
	if err != nil {
		return fail(err)
	}

	fmt.Fprintf(c.out, "Extracted %d transactions, created %d.\n", result.Extracted, len(result.Created))
	for _, tx := range result.Created {
		fmt.Fprintf(c.out, "  %s  %-6s %12s  %s\n", tx.Date, tx.Type, tx.AmountKey(), tx.Description)
	}
	return subcommands.ExitSuccess
}

// readStatement loads a local file or a gs:// object.
func readStatement(ctx context.Context, a *app.App, source string) ([]byte, string, error) {
	if !strings.HasPrefix(source, "gs://") {
		content, err := os.ReadFile(source)
		if err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", source, err)
		}
		return content, filepath.Base(source), nil
	}

	client := a.GCS
	if client == nil {
		bucket, _, err := gcs.ParseURI(source)
		if err != nil {
			return nil, "", err
		}
		if client, err = gcs.NewClient(ctx, bucket); err != nil {
			return nil, "", err
		}
		defer client.Close()
	}
	content, err := client.FetchFromGCS(ctx, source)
	if err != nil {
		return nil, "", err
	}
	return content, gcs.ExtractFilenameFromGCSURI(source), nil
}

type fetchCmd struct {
	cfg      *config.Config
	out      io.Writer
	rangeKey string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "fetch one symbol's price history into the history store" }
func (*fetchCmd) Usage() string {
	return `fetch [-range max] <symbol>

  Downloads the symbol's price history and overwrites the stored document,
  even when it is still fresh.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.rangeKey, "range", history.DefaultRange, "Range to fetch ("+strings.Join(history.ValidRanges, ", ")+")")
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	if err := history.ValidateRange(c.rangeKey); err != nil {
		return fail(err)
	}
	symbol := strings.ToUpper(strings.TrimSpace(f.Arg(0)))

	a, err := openApp(ctx, c.cfg)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	_, doc, err := a.Refresher.RefreshSymbol(ctx, symbol, c.rangeKey, true)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(c.out, "%s: %d points, fetched at %s\n", doc.ID(), len(doc.Data), doc.FetchedAt)
	return subcommands.ExitSuccess
}

type ratesCmd struct {
	cfg *config.Config
	out io.Writer
}

func (*ratesCmd) Name() string     { return "rates" }
func (*ratesCmd) Synopsis() string { return "print the latest CDI, SELIC, IPCA and IGP-M values" }
func (*ratesCmd) Usage() string {
	return `rates

  Queries the central bank series API for the latest value of each index.
`
}

func (*ratesCmd) SetFlags(*flag.FlagSet) {}

func (c *ratesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, c.cfg)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	indexes, err := a.Market.Indexes(ctx)
	if err != nil {
		return fail(err)
	}
	names := make([]string, 0, len(indexes))
	for name := range indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		obs := indexes[name]
		fmt.Fprintf(c.out, "%-6s %10s  (%s)\n", strings.ToUpper(name), obs.Value, obs.Date)
	}
	return subcommands.ExitSuccess
}

type runsCmd struct {
	cfg   *config.Config
	out   io.Writer
	limit int
}

func (*runsCmd) Name() string     { return "runs" }
func (*runsCmd) Synopsis() string { return "list recent statement imports and refresh runs" }
func (*runsCmd) Usage() string {
	return `runs [-limit 20]

  Lists the audit log kept in BigQuery, newest first.
`
}

func (c *runsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "limit", 20, "Number of runs to show")
}

func (c *runsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.cfg.BigQueryProject == "" {
		return fail(fmt.Errorf("BIGQUERY_PROJECT is not set; no run audit is kept"))
	}
	a, err := openApp(ctx, c.cfg)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	runs, err := a.Runs.ListRuns(ctx, c.limit)
	if err != nil {
		return fail(err)
	}
	for _, r := range runs {
		fmt.Fprintf(c.out, "%s  %-16s %-8s %4d/%-4d %s\n",
			r.StartedAt.Format(time.RFC3339), r.Kind, r.Status, r.ItemsCreated, r.ItemsTotal, r.Subject)
		if r.ErrorMessage != "" {
			fmt.Fprintf(c.out, "    %s\n", r.ErrorMessage)
		}
	}
	return subcommands.ExitSuccess
}
