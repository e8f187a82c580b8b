package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stemsi/degree-audit-backend/internal/audit"
	"github.com/stemsi/degree-audit-backend/internal/catalog"
	"github.com/stemsi/degree-audit-backend/internal/config"
	"github.com/stemsi/degree-audit-backend/internal/logger"
	"golang.org/x/term"
)

const (
	formatAuto = "auto"
	formatJSON = "json"
	formatText = "text"
)

var errFilesFailed = errors.New("one or more files could not be audited")

type options struct {
	requirements string
	configPath   string
	degreeKey    string
	format       string
	jobs         int
	plan         bool
	logLevel     string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cfg := config.Load()
	opts := &options{
		configPath: cfg.AuditConfigPath,
		logLevel:   "warn",
	}
	if cfg.RequirementsSource != config.RequirementsFromPostgres {
		opts.requirements = cfg.RequirementsSource
	}

	root := &cobra.Command{
		Use:   "audit [flags] <report.pdf|report.txt>...",
		Short: "Audit degree-progress reports against a requirement table",
		Long: `Reads LionPath What-If reports (PDF or extracted text), checks them against
a requirement table (CSV or XLSX) and prints the outcome.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd, opts, args, stdout, stderr)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.requirements, "requirements", "r", opts.requirements, "requirement table (.csv or .xlsx)")
	flags.StringVarP(&opts.configPath, "config", "c", opts.configPath, "engine configuration (YAML)")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level written to stderr")
	root.Flags().StringVarP(&opts.degreeKey, "degree", "d", "", "audit against this degree key instead of detecting it")
	root.Flags().StringVarP(&opts.format, "format", "f", formatAuto, "output format: auto, json or text")
	root.Flags().IntVarP(&opts.jobs, "jobs", "j", 4, "files audited in parallel")
	root.Flags().BoolVar(&opts.plan, "plan", false, "include a year-by-year plan")

	root.AddCommand(newDegreesCmd(opts, stdout))
	return root
}

func newDegreesCmd(opts *options, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "degrees",
		Short: "List the degrees in the requirement table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(opts.requirements)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(table))
			for k := range table {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				d := table[k]
				fmt.Fprintf(stdout, "%-12s %-30s %3d credits\n", d.Key, d.MajorName, d.TotalCredits)
			}
			return nil
		},
	}
}

func runAudit(cmd *cobra.Command, opts *options, files []string, stdout, stderr io.Writer) error {
	log := logger.New(stderr, opts.logLevel, "pretty").With().Str("component", "audit_cli").Logger()

	format, err := resolveFormat(opts.format, stdout)
	if err != nil {
		return err
	}

	engineCfg, err := config.LoadAuditConfig(opts.configPath)
	if err != nil {
		return err
	}
	engine, err := audit.NewEngine(engineCfg)
	if err != nil {
		return err
	}

	table, err := loadTable(opts.requirements)
	if err != nil {
		return err
	}
	if opts.degreeKey != "" {
		if _, ok := table[opts.degreeKey]; !ok {
			return fmt.Errorf("degree %q is not in %s", opts.degreeKey, opts.requirements)
		}
	}

	b := &batch{
		engine:    engine,
		table:     table,
		degreeKey: opts.degreeKey,
		withPlan:  opts.plan,
		jobs:      opts.jobs,
	}
	results, err := b.run(cmd.Context(), files)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
			log.Error().Str("file", r.File).Str("error", r.Error).Msg("Audit failed")
			continue
		}
		log.Debug().
			Str("file", r.File).
			Str("degree", r.Result.Degree.Key).
			Float64("progress", r.Result.Credits.ProgressPercent).
			Msg("Audit completed")
	}

	if err := write(stdout, format, results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errFilesFailed, failed, len(results))
	}
	return nil
}

func loadTable(path string) (audit.RequirementTable, error) {
	if path == "" {
		return nil, errors.New("no requirement table: pass --requirements or set REQUIREMENTS_SOURCE to a file")
	}
	records, err := catalog.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return catalog.Build(records)
}

// resolveFormat picks text for terminals and JSON for pipes when format is auto.
func resolveFormat(format string, out io.Writer) (string, error) {
	switch format {
	case formatJSON, formatText:
		return format, nil
	case formatAuto:
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return formatText, nil
		}
		return formatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}

func write(out io.Writer, format string, results []fileResult) error {
	if format == formatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "== %s ==\n", r.File)
		if r.Error != "" {
			fmt.Fprintf(out, "error: %s\n", r.Error)
			continue
		}
		fmt.Fprintln(out, r.Result.Summary())
		for _, w := range r.Result.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
		if r.Plan != nil {
			for _, y := range r.Plan.Years {
				codes := make([]string, 0, len(y.Courses))
				for _, c := range y.Courses {
					codes = append(codes, string(c.Code))
				}
				fmt.Fprintf(out, "%s (%.0f cr): %s\n", y.Label, y.Credits, strings.Join(codes, ", "))
			}
		}
	}
	return nil
}
