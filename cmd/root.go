package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/birmacher/tutor-relay/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Command line flags
	logLevel   string
	logFormat  string
	envFile    string
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "tutor-relay",
	Short: "Tutor Relay - stream LLM answers to the browser",
	Long: `Tutor Relay forwards a learner's prompt to a hosted LLM with a fixed
instructional system prompt and streams the answer back as server-sent events.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(cmd); err != nil {
			return err
		}

		if !cmd.Flags().Changed("log-level") {
			if v := os.Getenv("LOG_LEVEL"); v != "" {
				logLevel = v
			}
		}
		if !cmd.Flags().Changed("log-format") {
			if v := os.Getenv("LOG_FORMAT"); v != "" {
				logFormat = v
			}
		}
		logger.Init(logLevel, logFormat)
		logger.Debugf("Log level set to: %s", logLevel)
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// loadEnvFile reads KEY=VALUE pairs into the process environment without
// overriding variables that are already set. The default .env may be absent.
func loadEnvFile(cmd *cobra.Command) error {
	if envFile == "" {
		return nil
	}
	err := godotenv.Load(envFile)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file") {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", envFile, err)
}

// Execute runs the root command and handles errors
func Execute() error {
	// Subcommands are added in their respective init() functions
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Set the logging level (debug, info, warn, error, dpanic, panic, fatal)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logger.FormatJSON,
		"Set the log encoding (json, console)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"Environment file loaded before reading configuration")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"Settings file (defaults to relay.yml or relay.yaml in the working directory)")
}
