package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vananle/IcarusRepoSEND/sim"
)

var (
	topologyPath string // Path to the YAML topology description
	workloadPath string // Path to the YAML workload trace
	policiesPath string // Path to the YAML policy bundle
	seed         int64  // Seed for service catalog generation
	logLevel     string // Log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "edgesim",
	Short: "Discrete-event simulator for edge-network caching and computation",
}

// runCmd executes one experiment using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation experiment",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		topo, err := sim.LoadTopology(topologyPath)
		if err != nil {
			logrus.Fatalf("unable to read topology: %v", err)
		}
		workload, err := sim.LoadTraceWorkload(workloadPath)
		if err != nil {
			logrus.Fatalf("unable to read workload: %v", err)
		}
		bundle, err := LoadPolicyBundle(policiesPath)
		if err != nil {
			logrus.Fatalf("unable to read policy bundle: %v", err)
		}
		if err := bundle.Validate(); err != nil {
			logrus.Fatalf("invalid policy bundle: %v", err)
		}

		cfg := bundle.ExperimentConfig()
		cfg.Network.Seed = seed

		results, err := sim.ExecExperiment(topo, workload, cfg)
		if err != nil {
			logrus.Fatalf("experiment failed: %v", err)
		}

		out, err := yaml.Marshal(results)
		if err != nil {
			logrus.Fatalf("unable to render results: %v", err)
		}
		os.Stdout.Write(out)
	},
}

func init() {
	runCmd.Flags().StringVar(&topologyPath, "topology", "topology.yaml", "YAML topology description")
	runCmd.Flags().StringVar(&workloadPath, "workload", "workload.yaml", "YAML workload trace")
	runCmd.Flags().StringVar(&policiesPath, "policies", "policies.yaml", "YAML policy bundle")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Seed for service catalog generation")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.AddCommand(runCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
