package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/muniverse-agent/asyncenv/sim/registry"
)

// specsEnvVar names the environment variable holding the default registry path.
const specsEnvVar = "ASYNCENV_SPECS"

var (
	logLevel  string // Log verbosity level
	specsPath string // Spec registry YAML; empty uses $ASYNCENV_SPECS, then the built-in registry
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "asyncenv",
	Short: "Asynchronous adapters for browser-game simulations",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// loadDotEnv reads the first .env file found walking up from the working
// directory. A missing file is not an error.
func loadDotEnv() {
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			logrus.Debugf("Loaded environment from %s", envFile)
			return
		}
	}
}

// loadRegistry resolves the spec registry: --specs, then $ASYNCENV_SPECS,
// then the built-in registry.
func loadRegistry(path string) (*registry.Registry, error) {
	if path == "" {
		path = os.Getenv(specsEnvVar)
	}
	if path == "" {
		return registry.Default(), nil
	}
	return registry.Load(path)
}

// Execute runs the CLI root command
func Execute() {
	loadDotEnv()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up persistent flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&specsPath, "specs", "", "Spec registry YAML file (default $"+specsEnvVar+" or built-in)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(specsCmd)
}
