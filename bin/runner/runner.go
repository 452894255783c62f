package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chaosgate/chaosgate-go/pkg/controller"
	"github.com/chaosgate/chaosgate-go/pkg/environment"
	"github.com/chaosgate/chaosgate-go/pkg/log"
	"github.com/chaosgate/chaosgate-go/pkg/report"
	"github.com/chaosgate/chaosgate-go/pkg/scenario"
	"github.com/chaosgate/chaosgate-go/pkg/telemetry"
)

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:          true,
		DisableSorting:         true,
		DisableLevelTruncation: true,
	})
}

var (
	catalogPath     string
	sloPath         string
	environmentName string
	groupName       string
	outputPath      string
	dryRun          bool
	failOnViolation bool
	verbose         bool
)

func main() {
	root := &cobra.Command{
		Use:           "chaosgate",
		Short:         "Inject faults against a target and gate on its resilience SLOs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
				log.Debug("[Info]: Debug logging enabled")
			}
		},
	}
	root.PersistentFlags().StringVar(&catalogPath, "scenarios", "scenarios.yaml", "path to the scenario catalog")
	root.PersistentFlags().StringVar(&sloPath, "slo", "slo.yaml", "path to the SLO profile file")
	root.PersistentFlags().StringVar(&environmentName, "environment", "staging", "SLO environment to validate against")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging, including every probe sample")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario group and validate the SLOs",
		RunE:  runGroup,
	}
	runCmd.Flags().StringVar(&groupName, "group", "", "scenario group to run (required)")
	runCmd.Flags().StringVar(&outputPath, "output", "", "write the report to this file (.json or .md); stdout when empty")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve and log fault parameters without injecting anything")
	runCmd.Flags().BoolVar(&failOnViolation, "fail-on-violation", false, "exit non-zero when any scenario fails its SLOs")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the scenario catalog and SLO profiles without running anything",
		RunE:  validateConfig,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the scenario groups in the catalog",
		RunE:  listGroups,
	}

	root.AddCommand(runCmd, validateCmd, listCmd)
	if err := root.Execute(); err != nil {
		log.Fatalf("chaosgate failed, err: %v", err)
	}
}

func runGroup(cmd *cobra.Command, args []string) error {
	if groupName == "" {
		return fmt.Errorf("--group is required")
	}

	catalog, err := scenario.LoadCatalog(catalogPath)
	if err != nil {
		return err
	}
	scenarios, err := catalog.Group(groupName)
	if err != nil {
		return err
	}
	profiles, err := scenario.LoadSLOProfiles(sloPath)
	if err != nil {
		return err
	}

	settings := environment.GetENV()

	// SIGINT/SIGTERM abort the active run; cleanup still happens
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.InitOTelSDK(ctx, settings.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Errorf("telemetry shutdown failed, err: %v", err)
		}
	}()

	if settings.MetricsAddr != "" {
		go func() {
			if err := telemetry.ServeMetrics(settings.MetricsAddr); err != nil {
				log.Errorf("metrics listener failed, err: %v", err)
			}
		}()
	}

	meters, err := telemetry.NewMeters()
	if err != nil {
		return err
	}

	ctrl := controller.New(settings, profiles, environmentName, dryRun, meters)
	group := ctrl.RunGroup(ctx, groupName, scenarios)

	if outputPath != "" {
		if err := report.Save(outputPath, group); err != nil {
			return err
		}
		log.Infof("[Info]: Report written to %s", outputPath)
	} else if err := report.WriteJSON(os.Stdout, group); err != nil {
		return err
	}

	if failOnViolation && !group.Passed() {
		return fmt.Errorf("group '%s' failed its resilience SLOs", groupName)
	}
	return nil
}

func validateConfig(cmd *cobra.Command, args []string) error {
	catalog, err := scenario.LoadCatalog(catalogPath)
	if err != nil {
		return err
	}
	if _, err := scenario.LoadSLOProfiles(sloPath); err != nil {
		return err
	}
	log.Infof("[Info]: %s is valid: %d group(s)", catalogPath, len(catalog.GroupNames()))
	log.Infof("[Info]: %s is valid", sloPath)
	return nil
}

func listGroups(cmd *cobra.Command, args []string) error {
	catalog, err := scenario.LoadCatalog(catalogPath)
	if err != nil {
		return err
	}
	for _, name := range catalog.GroupNames() {
		scenarios, _ := catalog.Group(name)
		fmt.Printf("%s (%d scenarios)\n", name, len(scenarios))
		for _, sc := range scenarios {
			fmt.Printf("  - %s [%s/%s, %ds]\n", sc.Name, sc.FailureType, sc.Intensity, sc.DurationSeconds)
		}
	}
	return nil
}
