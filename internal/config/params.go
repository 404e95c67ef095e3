package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"jira2yatracker/internal/models"
)

// EnvPrefix prefixes every environment variable the tool reads
const EnvPrefix = "JIRA2YATRACKER"

// Flag names shared by the CLI and the environment bindings
const (
	FlagConfig      = "config"
	FlagMapping     = "mapping"
	FlagStart       = "started-task-number"
	FlagFinish      = "finish-task-number"
	FlagSkip        = "skip"
	FlagSkipMissing = "skip-missing"
	FlagDryRun      = "dry-run"
	FlagVerbose     = "verbose"
	keyCommand      = "command"
	defaultConfig   = "config.yaml"
	defaultMapping  = "mapping.ini"
)

// RunParams are the per-run parameters given on the command line or in the environment
type RunParams struct {
	Command      string
	ConfigFile   string
	MappingFile  string
	StartNumber  int
	FinishNumber int
	Skip         map[int]bool
	SkipMissing  bool
	DryRun       bool
	Verbose      bool
}

// RegisterFlags adds the run parameter flags to a flag set
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP(FlagConfig, "c", defaultConfig, "path to config file with connection parameters (env JIRA2YATRACKER_CONFIG_FILE)")
	flags.StringP(FlagMapping, "m", defaultMapping, "path to mapping file with Jira to Yandex Tracker field mapping (env JIRA2YATRACKER_MAPPING_FILE)")
	flags.Int(FlagStart, 1, "task number to start migration from (env JIRA2YATRACKER_STARTED_TASK_NUMBER)")
	flags.Int(FlagFinish, -1, "task number to finish migration at, non-positive means the latest Jira issue (env JIRA2YATRACKER_FINISH_TASK_NUMBER)")
	flags.String(FlagSkip, "", "comma-separated task numbers acknowledged as skipped (env JIRA2YATRACKER_SKIP)")
	flags.Bool(FlagSkipMissing, false, "skip task numbers that do not exist in Jira (env JIRA2YATRACKER_SKIP_MISSING)")
	flags.BoolP(FlagDryRun, "d", false, "translate issues without writing to Yandex Tracker (env JIRA2YATRACKER_DRY_RUN)")
	flags.BoolP(FlagVerbose, "v", false, "print debug output (env JIRA2YATRACKER_VERBOSE)")
}

// LoadDotEnv loads a .env file if present; a missing file is not an error
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// LoadRunParams merges flags and JIRA2YATRACKER_* environment variables.
// Explicitly set flags win over the environment, which wins over flag defaults.
func LoadRunParams(flags *pflag.FlagSet) (*RunParams, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	bindings := map[string]string{
		FlagConfig:  EnvPrefix + "_CONFIG_FILE",
		FlagMapping: EnvPrefix + "_MAPPING_FILE",
		keyCommand:  EnvPrefix + "_COMMAND",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	skip, err := parseNumberList(v.GetString(FlagSkip))
	if err != nil {
		return nil, &models.ConfigurationError{Reason: "invalid skip list", Err: err}
	}

	params := &RunParams{
		Command:      v.GetString(keyCommand),
		ConfigFile:   v.GetString(FlagConfig),
		MappingFile:  v.GetString(FlagMapping),
		StartNumber:  v.GetInt(FlagStart),
		FinishNumber: v.GetInt(FlagFinish),
		Skip:         skip,
		SkipMissing:  v.GetBool(FlagSkipMissing),
		DryRun:       v.GetBool(FlagDryRun),
		Verbose:      v.GetBool(FlagVerbose),
	}
	if params.StartNumber < 1 {
		params.StartNumber = 1
	}
	return params, nil
}

func parseNumberList(s string) (map[int]bool, error) {
	out := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("'%s' is not a task number", part)
		}
		out[n] = true
	}
	return out, nil
}
