package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/levelguide/internal/config"
	"github.com/jonathan/levelguide/internal/db"
	"github.com/jonathan/levelguide/internal/grounding"
	"github.com/jonathan/levelguide/internal/llm"
	"github.com/jonathan/levelguide/internal/observability"
	"github.com/jonathan/levelguide/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process a leveling guide file directly",
	Long: `Run the full guide-processing pipeline against a local file without going through the HTTP API: extraction -> structure parsing -> company grounding -> example generation.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runProcess,
}

var (
	processConfigPath     string
	processFile           string
	processRoleName       string
	processCompanyID      string
	processCompanyName    string
	processCompanyWebsite string
	processAPIKey         string
	processDatabaseURL    string
	processConcurrency    int
	processUseBrowser     bool
	processVerbose        bool
)

func init() {
	processCmd.Flags().StringVar(&processConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	processCmd.Flags().StringVarP(&processFile, "file", "f", "", "Path to the leveling guide (PDF, CSV, or text)")
	processCmd.Flags().StringVarP(&processRoleName, "role", "r", "", "Role name the guide describes")
	processCmd.Flags().StringVar(&processCompanyID, "company-id", "", "Existing company UUID to attach the role to")
	processCmd.Flags().StringVar(&processCompanyName, "company-name", "", "Company name (creates the company when --company-id is not given)")
	processCmd.Flags().StringVarP(&processCompanyWebsite, "company-website", "w", "", "Company website used to ground generated examples")
	processCmd.Flags().IntVar(&processConcurrency, "concurrency", 0, "Max concurrent example-generation calls (0 = default)")
	processCmd.Flags().BoolVar(&processUseBrowser, "use-browser", false, "Use headless browser for SPA company sites (requires Chrome)")
	processCmd.Flags().BoolVarP(&processVerbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	processCmd.Flags().StringVar(&processAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	processCmd.Flags().StringVar(&processDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	var cfg config.Config
	if processConfigPath != "" {
		loaded, err := config.LoadConfig(processConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = *loaded
		if processVerbose {
			fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", processConfigPath)
		}
	}

	// CLI flags override config file values
	if cmd.Flags().Changed("company-website") {
		cfg.CompanyWebsite = processCompanyWebsite
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = processConcurrency
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = processUseBrowser
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = processAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = processDatabaseURL
	}
	if processVerbose {
		cfg.Verbose = true
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if processFile == "" {
		return fmt.Errorf("--file is required")
	}
	if processRoleName == "" {
		return fmt.Errorf("--role is required")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("API key is required (--api-key or GEMINI_API_KEY)")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database URL is required (--db-url or DATABASE_URL)")
	}

	data, err := os.ReadFile(processFile)
	if err != nil {
		return fmt.Errorf("failed to read guide file: %w", err)
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	companyID, err := resolveCompany(ctx, database)
	if err != nil {
		return err
	}

	client, err := llm.NewClient(ctx, nil, cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer client.Close()

	fetcher := grounding.NewFetcher(client)
	if cfg.UseBrowser {
		fetcher.EnableBrowser()
	}

	printer := observability.NewPrinter(os.Stdout)
	runner := pipeline.NewRunner(database, client, fetcher, pipeline.Options{
		Concurrency: cfg.Concurrency,
		Verbose:     cfg.Verbose,
		OnProgress: func(event pipeline.ProgressEvent) {
			fmt.Fprintf(os.Stdout, "[%s] %s\n", event.Step, event.Message)
		},
	})

	role, err := database.CreateRole(ctx, companyID, processRoleName,
		filepath.Base(processFile), mimetype.Detect(data).String())
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	if err := runner.Process(ctx, pipeline.Job{
		RoleID:         role.ID,
		RoleName:       processRoleName,
		CompanyWebsite: cfg.CompanyWebsite,
		FileName:       filepath.Base(processFile),
		DeclaredType:   "",
		Data:           data,
	}); err != nil {
		// The terminal state is already recorded; report and show it.
		fmt.Fprintf(os.Stderr, "Processing failed: %v\n", err)
	}

	final, err := database.GetRoleByID(ctx, role.ID)
	if err != nil {
		return fmt.Errorf("failed to load final role state: %w", err)
	}
	printer.PrintResult(final)

	if final != nil && final.Status == db.RoleStatusCompleted {
		grid, err := database.GetRoleGrid(ctx, role.ID)
		if err != nil {
			return fmt.Errorf("failed to load grid: %w", err)
		}
		printer.PrintGrid(grid)
	}

	return nil
}

// resolveCompany picks the company for the new role: an explicit UUID wins,
// otherwise a company is created from --company-name.
func resolveCompany(ctx context.Context, database *db.DB) (uuid.UUID, error) {
	if processCompanyID != "" {
		id, err := uuid.Parse(processCompanyID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid --company-id: %w", err)
		}
		company, err := database.GetCompanyByID(ctx, id)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to look up company: %w", err)
		}
		if company == nil {
			return uuid.Nil, fmt.Errorf("company %s not found", id)
		}
		return company.ID, nil
	}

	if processCompanyName == "" {
		return uuid.Nil, fmt.Errorf("either --company-id or --company-name is required")
	}
	company, err := database.CreateCompany(ctx, processCompanyName, processCompanyWebsite)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create company: %w", err)
	}
	return company.ID, nil
}
