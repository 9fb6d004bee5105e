package cmd

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/dlcut/internal/config"
	"github.com/jmylchreest/dlcut/pkg/duration"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing dlcut configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the effective configuration",
	Long: `Dump the effective configuration in YAML format.

This shows every option with its current value after defaults, the config
file and environment overrides have been applied. Redirect it to a file to
create a configuration template:

  dlcut config dump > config.yaml

Environment variables use the DLCUT_ prefix and underscores for nesting.
Example: server.port -> DLCUT_SERVER_PORT`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a struct to a map, formatting durations and sizes for human readability.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		key := typ.Field(i).Tag.Get("mapstructure")
		if key == "" {
			key = typ.Field(i).Name
		}

		switch v := field.Interface().(type) {
		case time.Duration:
			result[key] = duration.Format(v)
		case config.Duration, config.ByteSize:
			result[key] = v.(fmt.Stringer).String()
		default:
			if field.Kind() == reflect.Struct {
				result[key] = toMap(field.Interface())
			} else {
				result[key] = field.Interface()
			}
		}
	}
	return result
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	yamlData, err := yaml.Marshal(toMap(cfg))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "# dlcut Configuration File")
	fmt.Fprintln(out, "# =========================")
	fmt.Fprintln(out, "#")
	fmt.Fprintln(out, "# Duration format: 30s, 5m, 1h, 1d")
	fmt.Fprintln(out, "# Size format: 64KB, 1MB")
	fmt.Fprintln(out, "# Cron schedules use 6 fields (seconds first).")
	fmt.Fprintln(out, "#")
	fmt.Fprintln(out, "# Environment variable overrides:")
	fmt.Fprintln(out, "#   DLCUT_SERVER_HOST, DLCUT_SERVER_PORT")
	fmt.Fprintln(out, "#   DLCUT_DOWNLOADS_OUTPUT_DIR, DLCUT_BINARIES_BIN_DIR")
	fmt.Fprintln(out, "#   DLCUT_LOGGING_LEVEL, DLCUT_LOGGING_FORMAT")
	fmt.Fprintln(out, "#   etc.")
	fmt.Fprintln(out)
	fmt.Fprint(out, string(yamlData))

	return nil
}
