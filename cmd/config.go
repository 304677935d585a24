package cmd

import (
	"fmt"

	"github.com/marcus/taskflow/internal/config"
	"github.com/marcus/taskflow/internal/output"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Manage taskflow configuration",
	GroupID:     "system",
	Annotations: map[string]string{"skipSetup": "true"},
}

var configSetCmd = &cobra.Command{
	Use:         "set <key> <value>",
	Short:       "Set a config value in config.json",
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{"skipSetup": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetInFile(args[0], args[1]); err != nil {
			return err
		}
		output.Success("%s = %s", args[0], args[1])
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show effective config values",
	Long: `Show effective config values after applying config.json and
TASKFLOW_* environment variables. Without a key, all values are shown.`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{"skipSetup": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		keys := config.Keys()
		if len(args) == 1 {
			keys = args
		}

		values := make(map[string]string, len(keys))
		for _, k := range keys {
			v, err := cfg.Get(k)
			if err != nil {
				return err
			}
			values[k] = v
		}

		if flagJSON {
			return output.JSON(values)
		}
		if len(args) == 1 {
			fmt.Fprintln(output.Out, values[args[0]])
			return nil
		}
		for _, k := range keys {
			fmt.Fprintf(output.Out, "%s = %s\n", k, values[k])
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the config file location",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{"skipSetup": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Fprintln(output.Out, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd, configGetCmd, configPathCmd)
}
