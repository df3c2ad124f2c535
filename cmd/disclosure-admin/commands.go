package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/disclosure-collector/config"
	"github.com/target/disclosure-collector/internal/bootstrap"
	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/data"
	"github.com/target/disclosure-collector/internal/domain/model"
)

type migrateOptions struct {
	Timeout time.Duration
}

func parseMigrateFlags(args []string, errOut io.Writer) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(errOut)

	opts := migrateOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Maximum duration to wait for migrations to complete")

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args, cmdCtx.Out)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("running database migrations")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}
		cmdCtx.Logger.Info("migrations completed successfully")
		return nil
	})
}

type jobOptions struct {
	JobID   string
	Timeout time.Duration
}

func parseJobFlags(args []string, errOut io.Writer) (jobOptions, error) {
	fs := flag.NewFlagSet("job", flag.ContinueOnError)
	fs.SetOutput(errOut)

	opts := jobOptions{}
	fs.StringVar(&opts.JobID, "id", "", "Job ID to inspect (required)")
	fs.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Maximum duration for the lookup")

	if err := fs.Parse(args); err != nil {
		return jobOptions{}, err
	}
	opts.JobID = strings.TrimSpace(opts.JobID)
	if opts.JobID == "" && fs.NArg() > 0 {
		opts.JobID = strings.TrimSpace(fs.Arg(0))
	}
	if opts.JobID == "" {
		return jobOptions{}, errors.New("--id is required")
	}
	if opts.Timeout <= 0 {
		return jobOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func runShowJob(cmdCtx *commandContext, args []string) error {
	opts, err := parseJobFlags(args, cmdCtx.Out)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		repo, closeRepo, err := jobRepository(ctx, cmdCtx, db)
		if err != nil {
			return err
		}
		defer closeRepo()

		job, err := repo.Get(ctx, opts.JobID)
		if err != nil {
			return fmt.Errorf("get job %s: %w", opts.JobID, err)
		}
		return printJob(cmdCtx.Out, job)
	})
}

// jobRepository opens the job store selected by JOB_STORE.
//
//nolint:ireturn // the backend is selected at runtime.
func jobRepository(ctx context.Context, cmdCtx *commandContext, db *sql.DB) (core.JobStatusRepository, func(), error) {
	if cmdCtx.Config.JobStore.Backend != config.JobStoreRedis {
		return data.NewJobStatusRepo(db, nil), func() {}, nil
	}

	client, err := bootstrap.ConnectRedis(ctx, cmdCtx.Config.Redis, cmdCtx.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	repo := data.NewRedisJobStatusRepo(data.RedisJobStatusRepoOptions{
		Client:    client,
		TTL:       cmdCtx.Config.JobStore.RedisTTL,
		KeyPrefix: cmdCtx.Config.JobStore.RedisKeyPrefix,
	})
	return repo, func() { closeRedis(cmdCtx, client) }, nil
}

func closeRedis(cmdCtx *commandContext, client redis.UniversalClient) {
	if err := client.Close(); err != nil {
		cmdCtx.Logger.Warn("redis close failed", "error", err)
	}
}

func printJob(w io.Writer, job *model.Job) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(job); err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return nil
}

type recordsOptions struct {
	Start       string
	End         string
	CompanyCode string
	Limit       int
	Timeout     time.Duration
}

func parseRecordsFlags(args []string, errOut io.Writer) (recordsOptions, error) {
	fs := flag.NewFlagSet("records", flag.ContinueOnError)
	fs.SetOutput(errOut)

	opts := recordsOptions{}
	fs.StringVar(&opts.Start, "start", "", "First disclosure day, YYYY-MM-DD (required)")
	fs.StringVar(&opts.End, "end", "", "Last disclosure day, YYYY-MM-DD (defaults to --start)")
	fs.StringVar(&opts.CompanyCode, "company", "", "Only list disclosures of this company code")
	fs.IntVar(&opts.Limit, "limit", 100, "Maximum rows to print")
	fs.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Maximum duration for the query")

	if err := fs.Parse(args); err != nil {
		return recordsOptions{}, err
	}
	if opts.Start == "" {
		return recordsOptions{}, errors.New("--start is required")
	}
	if opts.End == "" {
		opts.End = opts.Start
	}
	if opts.Limit <= 0 {
		return recordsOptions{}, errors.New("--limit must be greater than zero")
	}
	if opts.Timeout <= 0 {
		return recordsOptions{}, errors.New("--timeout must be greater than zero")
	}
	opts.CompanyCode = strings.ToUpper(strings.TrimSpace(opts.CompanyCode))
	return opts, nil
}

func (o recordsOptions) query(now time.Time) (model.DisclosureQuery, error) {
	rng, err := model.ParseDateRange(o.Start, o.End, now, 0)
	if err != nil {
		return model.DisclosureQuery{}, err
	}
	return model.DisclosureQuery{Range: rng, CompanyCode: o.CompanyCode, Limit: o.Limit}, nil
}

func runListRecords(cmdCtx *commandContext, args []string) error {
	opts, err := parseRecordsFlags(args, cmdCtx.Out)
	if err != nil {
		return err
	}
	q, err := opts.query(time.Now().UTC())
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		rows, err := data.NewDisclosureRepo(db).ListByDateRange(ctx, q)
		if err != nil {
			return fmt.Errorf("list disclosures: %w", err)
		}
		return printRecords(cmdCtx.Out, rows)
	})
}

func printRecords(w io.Writer, rows []*model.Disclosure) error {
	if len(rows) == 0 {
		return writeln(w, "No disclosures found.")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "DATE\tCOMPANY\tRECORD ID\tDOCUMENT\tTITLE"); err != nil {
		return fmt.Errorf("write records header row: %w", err)
	}
	for _, d := range rows {
		doc := "-"
		if d.StorageKey != nil {
			doc = *d.StorageKey
		}
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\n", d.DateKey, d.CompanyCode, d.RecordID, doc, d.Title); err != nil {
			return fmt.Errorf("write records row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush records table: %w", err)
	}
	return writef(w, "\n%d disclosure(s)\n", len(rows))
}
