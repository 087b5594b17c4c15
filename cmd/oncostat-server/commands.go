package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/oncostat/oncostat/internal/analytics/anomaly"
	"github.com/oncostat/oncostat/internal/analytics/stats"
	"github.com/oncostat/oncostat/internal/clinicaltables"
	"github.com/oncostat/oncostat/internal/config"
	"github.com/oncostat/oncostat/internal/platform/db"
	"github.com/oncostat/oncostat/internal/platform/sandbox"
)

func tablesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Inspect clinical scoring tables",
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a clinical tables file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			t, err := clinicaltables.Load(file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid (digest %s)\n", file, t.Digest)
			return nil
		},
	}
	validateCmd.Flags().String("file", "", "Path to a clinical tables YAML file")
	validateCmd.MarkFlagRequired("file")
	cmd.AddCommand(validateCmd)

	printCmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective clinical tables as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				if cfg, err := config.Load(); err == nil {
					file = cfg.ClinicalTablesFile
				}
			}
			t, err := clinicaltables.Load(file)
			if err != nil {
				return err
			}
			out, err := clinicaltables.Marshal(t)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	printCmd.Flags().String("file", "", "Path to a clinical tables YAML file (default: CLINICAL_TABLES_FILE or built-in)")
	cmd.AddCommand(printCmd)

	return cmd
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the statistics engine on a list of numbers",
		Long: "Reads numbers separated by commas, whitespace or newlines from --file " +
			"(or stdin) and prints the result as JSON.",
	}

	describeCmd := &cobra.Command{
		Use:   "describe",
		Short: "Descriptive statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readNumbers(cmd)
			if err != nil {
				return err
			}
			res, err := stats.Describe(data)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	describeCmd.Flags().String("file", "", "Input file (default: stdin)")
	cmd.AddCommand(describeCmd)

	anomaliesCmd := &cobra.Command{
		Use:   "anomalies",
		Short: "IQR anomaly detection",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readNumbers(cmd)
			if err != nil {
				return err
			}
			method, _ := cmd.Flags().GetString("method")
			res, err := anomaly.Detect(data, method)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	anomaliesCmd.Flags().String("file", "", "Input file (default: stdin)")
	anomaliesCmd.Flags().String("method", anomaly.MethodIQR, "Detection method")
	cmd.AddCommand(anomaliesCmd)

	return cmd
}

func readNumbers(cmd *cobra.Command) ([]float64, error) {
	var r io.Reader = cmd.InOrStdin()
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return parseNumbers(string(raw))
}

func parseNumbers(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the patient database schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(m *db.Migrator) error {
				count, err := m.Up(cmd.Context())
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(m *db.Migrator) error {
				statuses, err := m.Status(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-10s %-30s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					status, at := "pending", ""
					if s.Applied {
						status = "applied"
						at = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(out, "%-10d %-30s %-10s %s\n", s.Version, s.Name, status, at)
				}
				return nil
			})
		},
	}
	cmd.AddCommand(statusCmd)

	return cmd
}

func withMigrator(ctx context.Context, fn func(*db.Migrator) error) error {
	return withDatabase(ctx, func(conn *sql.DB, driver db.Driver) error {
		m, err := db.NewMigrator(conn, driver)
		if err != nil {
			return err
		}
		return fn(m)
	})
}

// withDatabase opens DATABASE_URL as a database/sql handle for fn.
func withDatabase(ctx context.Context, fn func(*sql.DB, db.Driver) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	driver, dsn, err := db.ParseURL(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	var conn *sql.DB
	switch driver {
	case db.Postgres:
		pool, err := db.NewPool(ctx, dsn, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		conn = stdlib.OpenDBFromPool(pool)
	default:
		conn, err = db.OpenSQLite(ctx, dsn, 1)
		if err != nil {
			return err
		}
	}
	defer conn.Close()

	return fn(conn, driver)
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a synthetic patient cohort into the patient database",
		Long:  "Applies pending migrations, then inserts generated patients and PSA histories.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := sandbox.DefaultSeedConfig()
			cfg.PatientCount, _ = cmd.Flags().GetInt("patients")
			cfg.PSADraws, _ = cmd.Flags().GetInt("draws")
			cfg.Seed, _ = cmd.Flags().GetInt64("seed")
			if cfg.PatientCount <= 0 || cfg.PSADraws <= 0 {
				return fmt.Errorf("--patients and --draws must be positive")
			}

			return withDatabase(cmd.Context(), func(conn *sql.DB, driver db.Driver) error {
				m, err := db.NewMigrator(conn, driver)
				if err != nil {
					return err
				}
				if _, err := m.Up(cmd.Context()); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				res, err := sandbox.NewSeeder(cfg).Load(cmd.Context(), conn, driver)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d patient(s) with %d PSA result(s) in %s.\n",
					res.Patients, res.LabResults, res.Duration.Round(time.Millisecond))
				return nil
			})
		},
	}
	cmd.Flags().Int("patients", 50, "Number of patients to generate")
	cmd.Flags().Int("draws", 6, "Maximum PSA draws per patient")
	cmd.Flags().Int64("seed", 42, "Random seed (0 picks a time-based seed)")
	return cmd
}
