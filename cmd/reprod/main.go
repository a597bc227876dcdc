// Command reprod reproduces kubo's provider-discovery hang: it drives a
// kubo daemon through adversarial delegated-routing scenarios and
// classifies each bounded fetch probe as a known bug pattern or expected
// behavior.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/config"
	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/harness"
	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/models"
	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/store"
	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/store/migrations"
)

const scenarioAll = "all"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	var configFile string

	root := &cobra.Command{
		Use:           "reprod",
		Short:         "kubo provider-offline reproduction harness",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v.SetEnvPrefix("REPROD")
			v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
			v.AutomaticEnv()
			if configFile != "" {
				v.SetConfigFile(configFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("reading config file: %w", err)
				}
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Path to config file")
	registerFlags(v, pf)

	root.AddCommand(newRunCommand(v))
	root.AddCommand(newHistoryCommand(v))
	return root
}

func newRunCommand(v *viper.Viper) *cobra.Command {
	var scenarioName string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the reproduction scenarios",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfiguration(v)
			if err != nil {
				return err
			}

			scenarios, err := resolveScenarios(scenarioName)
			if err != nil {
				return err
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reports, err := harness.NewRunner(cfg, st).RunAll(ctx, scenarios)
			if err != nil {
				return err
			}
			for _, report := range reports {
				if report.Verdict == models.VerdictHangBug {
					return fmt.Errorf("scenario %s reproduced the hang", report.Scenario.Name)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scenarioName, "scenario", scenarioAll,
		fmt.Sprintf("Scenario to run: %s, %s or %s",
			harness.ScenarioOfflineRouters.Name, harness.ScenarioEmptyRouters.Name, scenarioAll))
	return cmd
}

func newHistoryCommand(v *viper.Viper) *cobra.Command {
	var (
		limit    uint64
		scenario string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs from the history database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfiguration(v)
			if err != nil {
				return err
			}
			if cfg.DataFolder == "" {
				return fmt.Errorf("history requires --data-folder")
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			opts := []store.ListOption{store.WithLimit(limit)}
			if scenario != "" {
				opts = append(opts, store.ByScenario(scenario))
			}
			records, err := st.Runs().List(cmd.Context(), opts...)
			if err != nil {
				return err
			}
			counts, err := st.Runs().CountByVerdict(cmd.Context())
			if err != nil {
				return err
			}

			for _, rec := range records {
				fmt.Printf("%s  %-16s  %-20s  exit=%-3d timed_out=%-5v %dms\n",
					rec.CreatedAt.Format("2006-01-02 15:04:05"),
					rec.Scenario, rec.Verdict, rec.ExitCode, rec.TimedOut, rec.ElapsedMs)
			}
			bold := color.New(color.Bold)
			bold.Println("\nverdict totals:")
			for verdict, count := range counts {
				fmt.Printf("  %-20s %d\n", verdict, count)
			}
			return nil
		},
	}

	cmd.Flags().Uint64Var(&limit, "limit", 20, "Maximum number of runs to show")
	cmd.Flags().StringVar(&scenario, "scenario", "", "Filter by scenario name")
	return cmd
}

// registerFlags declares the configuration flags and binds each one to
// its viper key. Flag defaults mirror the struct defaults so an unset
// flag never overrides a value from the environment or config file.
func registerFlags(v *viper.Viper, pf *pflag.FlagSet) {
	pf.String("ipfs-bin", "ipfs", "Path to the kubo binary under test")
	pf.String("repo-path", "", "Repository directory (default: /tmp/kubo-offline-repro)")
	pf.String("expected-version", "", "Expected `ipfs version --number`; empty skips the check")
	pf.Duration("ready-timeout", 0, "Bound on the daemon readiness wait; 0 waits until ready or crash")
	pf.Duration("probe-deadline", 120*time.Second, "Wall-clock bound on the fetch probe")
	pf.String("data-folder", "", "Run-history database directory; empty disables history")
	pf.String("log-level", "info", "Logging verbosity")
	pf.String("log-format", "console", "Logging format: console or json")

	must(v.BindPFlag("daemon.bin", pf.Lookup("ipfs-bin")))
	must(v.BindPFlag("daemon.repo_path", pf.Lookup("repo-path")))
	must(v.BindPFlag("daemon.expected_version", pf.Lookup("expected-version")))
	must(v.BindPFlag("daemon.ready_timeout", pf.Lookup("ready-timeout")))
	must(v.BindPFlag("probe_deadline", pf.Lookup("probe-deadline")))
	must(v.BindPFlag("data_folder", pf.Lookup("data-folder")))
	must(v.BindPFlag("log_level", pf.Lookup("log-level")))
	must(v.BindPFlag("log_format", pf.Lookup("log-format")))
}

func loadConfiguration(v *viper.Viper) (*config.Configuration, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := buildLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return cfg, nil
}

func buildLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	var zapCfg zap.Config
	if format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	return zapCfg.Build()
}

func openStore(cfg *config.Configuration) (*store.Store, error) {
	if cfg.DataFolder == "" {
		return nil, nil
	}
	if err := os.MkdirAll(cfg.DataFolder, 0o755); err != nil {
		return nil, fmt.Errorf("creating data folder: %w", err)
	}
	db, err := store.NewDB(filepath.Join(cfg.DataFolder, "runs.db"))
	if err != nil {
		return nil, fmt.Errorf("opening run history database: %w", err)
	}
	if err := migrations.Run(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating run history database: %w", err)
	}
	return store.NewStore(db), nil
}

func resolveScenarios(name string) ([]harness.Scenario, error) {
	if name == scenarioAll {
		return []harness.Scenario{harness.ScenarioOfflineRouters, harness.ScenarioEmptyRouters}, nil
	}
	s, err := harness.ScenarioByName(name)
	if err != nil {
		return nil, err
	}
	return []harness.Scenario{s}, nil
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
