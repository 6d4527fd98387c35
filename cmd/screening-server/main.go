package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppk/screening/internal/config"
	"github.com/ppk/screening/internal/platform/db"
	"github.com/ppk/screening/internal/platform/reporting"
	"github.com/ppk/screening/migrations"
	"github.com/ppk/screening/pkg/daterange"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "screening-server",
		Short: "Triage screening and symptom summary API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(summaryCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the screening API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run Postgres schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			migrator, closeFn, err := openMigrator(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			migrator, closeFn, err := openMigrator(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Version, s.Name, status, appliedAt)
			}
			return w.Flush()
		},
	})

	return cmd
}

func openMigrator(ctx context.Context) (*db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.StoreDriver != config.DriverPostgres {
		return nil, nil, fmt.Errorf("migrations apply to STORE_DRIVER=%s only; sqlite creates its schema on open", config.DriverPostgres)
	}
	pool, err := db.NewPool(ctx, poolConfig(cfg, newLogger(cfg)))
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(pool, migrations.FS), pool.Close, nil
}

func summaryCmd() *cobra.Command {
	var (
		typ      string
		criteria daterange.Criteria
		clinics  bool
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print a symptom or clinic summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := openStores(ctx, cfg, newLogger(cfg).Output(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer st.close()

			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			engine := reporting.NewEngine(st.results, daterange.NewResolver(loc))
			vocab, err := loadVocabulary(cfg)
			if err != nil {
				return err
			}
			engine.SetVocabulary(vocab)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if clinics {
				items, err := engine.Clinics(ctx, typ, criteria)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "CODE\tCLINIC\tTOTAL")
				for _, it := range reporting.RankClinics(items) {
					fmt.Fprintf(w, "%s\t%s\t%d\n", it.Code, it.Label, it.Total)
				}
				return w.Flush()
			}

			items, err := engine.Symptoms(ctx, typ, criteria)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "SYMPTOM\tTOTAL")
			for _, it := range reporting.RankSymptoms(items) {
				fmt.Fprintf(w, "%s\t%d\n", it.Label, it.Total)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&typ, "type", reporting.TypeTotal, "Summary type: total, form or guide")
	cmd.Flags().StringVar(&criteria.Start, "start", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&criteria.End, "end", "", "Last day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&criteria.Date, "date", "", "Single day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&criteria.Preset, "range", "", "Named range such as today, last_7d or this_month")
	cmd.Flags().BoolVar(&clinics, "clinics", false, "Summarize clinics instead of symptoms")
	return cmd
}
