package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"jira2yatracker/internal/config"
	"jira2yatracker/internal/helpers"
	"jira2yatracker/internal/mapping"
	"jira2yatracker/internal/models"
	"jira2yatracker/internal/repositories"
	"jira2yatracker/internal/services"

	"github.com/spf13/cobra"
)

func main() {
	config.LoadDotEnv()

	var rootCmd = &cobra.Command{
		Use:   "jira2yatracker",
		Short: "Migrate Jira issues to Yandex Tracker",
		Long: `jira2yatracker copies Jira issues with their comments, attachments,
statuses and links into a Yandex Tracker queue, keeping issue numbers.
Without a subcommand the command is taken from JIRA2YATRACKER_COMMAND.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runFromEnv,
	}

	// Global flags
	config.RegisterFlags(rootCmd.PersistentFlags())

	for _, mode := range []models.RunMode{models.ConvergeIssues, models.EstablishLinksOnly} {
		mode := mode
		rootCmd.AddCommand(&cobra.Command{
			Use:   mode.String(),
			Short: modeDescriptions[mode],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				params, err := config.LoadRunParams(cmd.Flags())
				if err != nil {
					return err
				}
				return runMigration(cmd.Context(), params, mode)
			},
		})
	}

	// Check command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Check configuration, mapping and access to both services",
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		helpers.PrintError("Error: %v", err)
		os.Exit(1)
	}
}

var modeDescriptions = map[models.RunMode]string{
	models.ConvergeIssues:     "Create or overwrite issues in the range, then link them",
	models.EstablishLinksOnly: "Only establish links for issues in the range",
}

func runFromEnv(cmd *cobra.Command, args []string) error {
	params, err := config.LoadRunParams(cmd.Flags())
	if err != nil {
		return err
	}
	if params.Command == "" {
		return cmd.Help()
	}
	mode, err := models.ParseRunMode(params.Command)
	if err != nil {
		return &models.ConfigurationError{Reason: "invalid JIRA2YATRACKER_COMMAND", Err: err}
	}
	return runMigration(cmd.Context(), params, mode)
}

func runCheck(cmd *cobra.Command, args []string) error {
	params, err := config.LoadRunParams(cmd.Flags())
	if err != nil {
		return err
	}
	env, err := setup(params)
	if err != nil {
		return err
	}
	return env.preflight(cmd.Context())
}

func runMigration(ctx context.Context, params *config.RunParams, mode models.RunMode) error {
	env, err := setup(params)
	if err != nil {
		return err
	}
	if err := env.preflight(ctx); err != nil {
		return err
	}

	cfg := env.cfg
	location, err := cfg.CommentLocation()
	if err != nil {
		return &models.ConfigurationError{Reason: "invalid comment time zone", Err: err}
	}

	if params.DryRun {
		helpers.PrintInfo("Dry run mode - nothing will be written to Yandex Tracker")
	}

	driver := services.NewDriver(
		env.jira,
		services.NewTranslator(env.table, location, cfg.Migration.UnknownAuthor),
		services.NewUpserter(env.tracker, cfg.ProjectAndQueueKey, cfg.FinalStatusForWIPIssue, cfg.Migration.PlaceholderSummary),
		services.NewLinkResolver(env.jira, env.tracker, env.table, params.DryRun),
		services.DriverOptions{
			ProjectKey:  cfg.ProjectAndQueueKey,
			Skip:        params.Skip,
			SkipMissing: params.SkipMissing,
			DryRun:      params.DryRun,
			DumpDir:     cfg.Migration.DumpDir,
		},
	)

	report, runErr := driver.Run(ctx, models.MigrationRange{Start: params.StartNumber, End: params.FinishNumber}, mode)
	if report != nil {
		services.DisplayReport(report)
		if path, err := services.SaveReport(report, cfg.Migration.DumpDir); err != nil {
			helpers.PrintWarning("%v", err)
		} else if path != "" {
			helpers.PrintInfo("Report saved to %s", path)
		}
	}
	return runErr
}

type environment struct {
	cfg     *config.Config
	table   *mapping.Table
	jira    *repositories.JiraRepository
	tracker *repositories.TrackerRepository
}

func setup(params *config.RunParams) (*environment, error) {
	helpers.SetVerbose(params.Verbose)

	for _, path := range []string{params.ConfigFile, params.MappingFile} {
		if !helpers.FileExists(path) {
			return nil, &models.ConfigurationError{Reason: fmt.Sprintf("file '%s' not found", path)}
		}
	}

	cfg, err := config.LoadConfig(params.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	policy, err := cfg.ListPolicy()
	if err != nil {
		return nil, &models.ConfigurationError{Reason: "invalid list traversal policy", Err: err}
	}
	table, err := mapping.Load(params.MappingFile, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping: %w", err)
	}

	helpers.PrintInfo("Config file: %s", params.ConfigFile)
	helpers.PrintInfo("Mapping file: %s (%d users, %d statuses, %d custom fields)",
		params.MappingFile, table.Len(mapping.Users), table.Len(mapping.Statuses), len(table.CustomFields()))

	return &environment{
		cfg:     cfg,
		table:   table,
		jira:    repositories.NewJiraRepository(&cfg.Connection.Jira, cfg.Retry),
		tracker: repositories.NewTrackerRepository(&cfg.Connection.YandexTracker, cfg.Retry),
	}, nil
}

func (e *environment) preflight(ctx context.Context) error {
	return services.NewPreflightService(e.jira, e.tracker, e.cfg.ProjectAndQueueKey).TestConnection(ctx)
}
