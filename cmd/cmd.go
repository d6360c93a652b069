package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/frahmantamala/hr-portal/internal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "hr-portal",
	Short: "HR Portal gateway",
	Long:  `Session, access-control and navigation gateway in front of the HRMS services.`,
}

// fileDefaults fill keys a development config.yml may leave out.
var fileDefaults = map[string]any{
	"env":                          "development",
	"session.token_store":          "memory",
	"session.refresh_skew":         "60s",
	"security.cookie_name":         "hr_portal_session",
	"observability.logging.level":  "debug",
	"observability.logging.format": "text",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// deployedFromEnv reports whether configuration comes from the container environment.
func deployedFromEnv() bool {
	return os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true"
}

func loadConfig(dir string) (*internal.Config, error) {
	source := "environment"
	var cfg *internal.Config
	if deployedFromEnv() {
		cfg = internal.LoadConfigFromEnv()
	} else {
		source = "file"
		fromFile, err := readConfigFile(dir)
		if err != nil {
			return nil, err
		}
		cfg = fromFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config from %s: %w", source, err)
	}
	return cfg, nil
}

// readConfigFile loads <dir>/config.yml. ENV_ prefixed variables override file keys,
// e.g. ENV_SERVICES_AUTH for services.auth.
func readConfigFile(dir string) (*internal.Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("ENV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range fileDefaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "directory holding config.yml")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(notificationsCmd)
}
