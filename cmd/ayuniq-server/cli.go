package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ayuniq/ayuniq/internal/config"
	"github.com/ayuniq/ayuniq/internal/domain/namaste"
	"github.com/ayuniq/ayuniq/internal/domain/translation"
	"github.com/ayuniq/ayuniq/internal/platform/db"
	"github.com/ayuniq/ayuniq/internal/platform/icd11"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations for the postgres mapping store",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			migrator, closeFn, err := openMigrator(cmd.Context(), schema, dir)
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running migrations on schema: %s\n", schema)
			count, err := migrator.Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(out, "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "public", "Target schema for migrations")
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			migrator, closeFn, err := openMigrator(cmd.Context(), schema, dir)
			if err != nil {
				return err
			}
			defer closeFn()

			statuses, err := migrator.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printMigrationStatus(cmd.OutOrStdout(), schema, statuses)
			return nil
		},
	}
	statusCmd.Flags().String("schema", "public", "Target schema for migrations")
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func openMigrator(ctx context.Context, schema, dir string) (*db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required for migrations")
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(pool, os.DirFS(dir), schema), pool.Close, nil
}

func printMigrationStatus(w io.Writer, schema string, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "Migration status for schema: %s\n", schema)
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// loadTerms reads the codebook named by --csv, or NAMASTE_CSV_PATH when the
// flag is empty.
func loadTerms(cmd *cobra.Command) (*namaste.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	path, _ := cmd.Flags().GetString("csv")
	if path == "" {
		path = cfg.NamasteCSVPath
	}
	store := namaste.NewStore(zerolog.Nop())
	if _, err := namaste.NewLoader(store, path, zerolog.Nop()).Reload(cmd.Context()); err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	return store, cfg, nil
}

func termsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terms",
		Short: "Inspect the NAMASTE codebook",
	}
	cmd.PersistentFlags().String("csv", "", "NAMASTE CSV path (defaults to NAMASTE_CSV_PATH)")

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy search NAMASTE terms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := loadTerms(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			printSearchResults(cmd.OutOrStdout(), store.Search(args[0], limit))
			return nil
		},
	}
	searchCmd.Flags().Int("limit", 10, "Maximum number of results")
	cmd.AddCommand(searchCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "lookup <code>",
		Short: "Print one NAMASTE term as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := loadTerms(cmd)
			if err != nil {
				return err
			}
			t, ok := store.GetByCode(args[0])
			if !ok {
				return fmt.Errorf("code %q not found", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), t)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Summarise the loaded codebook",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := loadTerms(cmd)
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), store.Stats())
			return nil
		},
	})

	return cmd
}

func translateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate <code>",
		Short: "Translate a NAMASTE code to ICD-11 using the WHO API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := loadTerms(cmd)
			if err != nil {
				return err
			}
			t, ok := store.GetByCode(args[0])
			if !ok {
				return fmt.Errorf("code %q not found", args[0])
			}

			logger := zerolog.Nop()
			if v, _ := cmd.Flags().GetBool("verbose"); v {
				logger = newLogger("development")
			}
			icdCfg := cfg.ICD11()
			client := icd11.NewClient(icdCfg, logger)
			res := translation.NewResolver(client, nil, icdCfg.RequestDelay, logger).Translate(cmd.Context(), t)
			if res == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "No ICD-11 translation found for %s\n", t.Code)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().String("csv", "", "NAMASTE CSV path (defaults to NAMASTE_CSV_PATH)")
	cmd.Flags().BoolP("verbose", "v", false, "Log WHO API calls")
	return cmd
}

func printSearchResults(w io.Writer, results []namaste.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No matching terms.")
		return
	}
	fmt.Fprintf(w, "%-14s %-6s %-30s %s\n", "CODE", "SCORE", "DISPLAY", "SYSTEM")
	for _, r := range results {
		fmt.Fprintf(w, "%-14s %-6.2f %-30s %s\n", r.Term.Code, r.Score, r.Term.Display, r.Term.System)
	}
}

func printStats(w io.Writer, s namaste.Stats) {
	fmt.Fprintf(w, "Total terms: %d\n", s.TotalTerms)
	if s.LoadedAt != nil {
		fmt.Fprintf(w, "Loaded at:   %s\n", s.LoadedAt.Format("2006-01-02 15:04:05"))
	}

	systems := make([]string, 0, len(s.SystemBreakdown))
	for sys := range s.SystemBreakdown {
		systems = append(systems, string(sys))
	}
	sort.Strings(systems)
	fmt.Fprintln(w, "\nBy system:")
	for _, sys := range systems {
		fmt.Fprintf(w, "  %-14s %d\n", sys, s.SystemBreakdown[namaste.System(sys)])
	}

	categories := make([]string, 0, len(s.CategoryBreakdown))
	for c := range s.CategoryBreakdown {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	fmt.Fprintln(w, "\nBy category:")
	for _, c := range categories {
		fmt.Fprintf(w, "  %-14s %d\n", c, s.CategoryBreakdown[c])
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
