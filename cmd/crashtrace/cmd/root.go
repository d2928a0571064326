package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/crashtrace/pkg/crash"
)

var (
	baseURL      string
	outputFormat string
	cfgFile      string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "crashtrace",
	Short: "CLI for crashtrace fatal-error reports",
	Long:  `crashtrace inspects and verifies the compact crash report trace strings emitted by the crashtrace fatal-error handler.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.crashtrace/config)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "report base URL (default from config or the built-in default)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".crashtrace")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()
	viper.BindEnv("base_url", "CRASHTRACE_BASE_URL")

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetString("base_url") != "" && baseURL == "" {
			baseURL = viper.GetString("base_url")
		}
	}

	if baseURL == "" && viper.GetString("base_url") != "" {
		baseURL = viper.GetString("base_url")
	}
	if baseURL == "" {
		baseURL = crash.DefaultBaseURL
	}
}

// GetBaseURL returns the configured report base URL
func GetBaseURL() string {
	return baseURL
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}
