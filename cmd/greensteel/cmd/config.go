package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/greensteel/gateway/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration as YAML, after merging the
config file, environment variables, defaults, and the --dev flag.

Useful for checking what the gateway and auth commands will actually
run with.

Example:
  greensteel --config /etc/greensteel/greensteel.yaml config`,
	RunE: runConfigDump,
}

func init() {
	configCmd.Flags().BoolVar(&devMode, "dev", false, "Apply development-mode defaults before printing")
	rootCmd.AddCommand(configCmd)
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig()
	if err != nil {
		return err
	}

	if file := config.ConfigFileUsed(); file != "" {
		fmt.Printf("# config file: %s\n", file)
	} else {
		fmt.Println("# no config file found (defaults and environment only)")
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
