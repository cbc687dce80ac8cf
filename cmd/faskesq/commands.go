package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/faskesq-clinical-assist/internal/config"
	"github.com/faskesq-clinical-assist/internal/database"
	"github.com/faskesq-clinical-assist/internal/domain"
	"github.com/faskesq-clinical-assist/internal/feedback"
	"github.com/faskesq-clinical-assist/internal/jobs"
	"github.com/faskesq-clinical-assist/internal/service"
	"github.com/faskesq-clinical-assist/internal/setup"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "faskesq",
		Short:         "FaskesQ clinical assist tooling",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("rules", "", "YAML file overriding the scoring and keyword tables")

	root.AddCommand(validateCmd())
	root.AddCommand(fallbackCmd())
	root.AddCommand(filterCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(feedbackCmd())
	root.AddCommand(setupCmd())
	return root
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func engineFrom(cmd *cobra.Command) (*service.Engine, error) {
	path, _ := cmd.Flags().GetString("rules")
	rules, err := service.LoadRules(path)
	if err != nil {
		return nil, err
	}
	return service.NewEngine(rules, quietLogger()), nil
}

// readInput decodes JSON from the file argument, or stdin when it is "-" or absent.
func readInput(cmd *cobra.Command, args []string, v any) error {
	var r io.Reader = cmd.InOrStdin()
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decoding input: %w", err)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Score clinical data completeness and select the recommendation mode",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := engineFrom(cmd)
			if err != nil {
				return err
			}
			var input domain.ClinicalInput
			if err := readInput(cmd, args, &input); err != nil {
				return err
			}
			return printJSON(cmd, struct {
				*domain.ValidationResult
				DataImprovementSuggestions []string `json:"dataImprovementSuggestions"`
			}{
				ValidationResult:           engine.Validator.Validate(&input),
				DataImprovementSuggestions: service.SuggestDataImprovements(&input),
			})
		},
	}
}

func fallbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fallback",
		Short: "Derive differential diagnoses from keyword rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := engineFrom(cmd)
			if err != nil {
				return err
			}
			anamnesis, _ := cmd.Flags().GetString("anamnesis")
			physical, _ := cmd.Flags().GetString("physical-exam")
			return printJSON(cmd, engine.Fallback.Diagnose(anamnesis, physical))
		},
	}
	cmd.Flags().String("anamnesis", "", "Anamnesis text")
	cmd.Flags().String("physical-exam", "", "Physical examination text")
	return cmd
}

func filterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter [file]",
		Short: "Apply progressive disclosure to a recommendations JSON array",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := engineFrom(cmd)
			if err != nil {
				return err
			}
			var recs []domain.ExaminationRecommendation
			if err := readInput(cmd, args, &recs); err != nil {
				return err
			}
			for i := range recs {
				recs[i].Normalize()
			}

			completeness, _ := cmd.Flags().GetInt("completeness")
			level, _ := cmd.Flags().GetInt("level")
			if level > 0 {
				return printJSON(cmd, engine.Disclosure.Leveled(recs, level))
			}
			return printJSON(cmd, engine.Disclosure.Filter(recs, completeness, engine.Rules.Disclosure))
		},
	}
	cmd.Flags().Int("completeness", 100, "Data completeness score (0-100)")
	cmd.Flags().Int("level", 0, "Use the leveled table at this level instead of the completeness filter")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down]",
		Short: "Run database migrations for the audit and feedback tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, _ := cmd.Flags().GetString("config")
			dir, _ := cmd.Flags().GetString("dir")

			var paths []string
			if configFile != "" {
				paths = append(paths, configFile)
			}
			configManager, err := config.NewManager(paths...)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = configManager.GetDatabaseConfig().MigrationsPath
			}

			logger := logrus.New()
			if err := database.Migrate(context.Background(), configManager.GetDatabaseURL(), dir, args[0], logger); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrations %s applied successfully.\n", args[0])
			return nil
		},
	}
	cmd.Flags().String("config", "", "Directory containing config.yaml")
	cmd.Flags().String("dir", "", "Path to migrations directory")
	return cmd
}

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Export or import clinician feedback in the SQLite store",
	}
	cmd.PersistentFlags().String("db", config.DefaultLiteConfig().FeedbackDBPath(), "Path to the feedback SQLite database")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write all feedback to a timestamped JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			dir, _ := cmd.Flags().GetString("dir")
			store, err := feedback.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			path, err := jobs.NewFeedbackExporter(store, dir, quietLogger()).Export(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	exportCmd.Flags().String("dir", config.DefaultLiteConfig().ExportDir(), "Export directory")

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import feedback from an export file, skipping existing entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			store, err := feedback.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			imported, skipped, err := store.ImportJSON(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d, skipped %d.\n", imported, skipped)
			return nil
		},
	}

	cmd.AddCommand(exportCmd, importCmd)
	return cmd
}

func setupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the stdio MCP server with a desktop MCP client",
	}
	cmd.PersistentFlags().String("client-config", "", "Path to claude_desktop_config.json (auto-detected when empty)")

	configPath := func(cmd *cobra.Command) (string, error) {
		path, _ := cmd.Flags().GetString("client-config")
		if path != "" {
			return path, nil
		}
		return setup.DefaultConfigPath()
	}

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Add or update the server entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			binary, _ := cmd.Flags().GetString("binary")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			provider, _ := cmd.Flags().GetString("provider")

			entry, err := setup.Register(path, setup.Options{BinaryPath: binary, DataDir: dataDir, Provider: provider})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s in %s\n", entry.Command, path)
			fmt.Fprintln(cmd.OutOrStdout(), "Restart the client to load the new configuration.")
			return nil
		},
	}
	registerCmd.Flags().String("binary", "", "Path to the faskesq-mcp binary")
	registerCmd.Flags().String("data-dir", "", "Data directory for the feedback database")
	registerCmd.Flags().String("provider", "", "Model provider (gemini or anthropic)")

	unregisterCmd := &cobra.Command{
		Use:   "unregister",
		Short: "Remove the server entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			removed, err := setup.Unregister(path)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintln(cmd.OutOrStdout(), "Server was not registered.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Server entry removed.")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the registration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			status, err := setup.GetStatus(path)
			if err != nil {
				return err
			}
			return printJSON(cmd, status)
		},
	}

	cmd.AddCommand(registerCmd, unregisterCmd, statusCmd)
	return cmd
}
