package cmd

import (
	"github.com/marcus/taskflow/internal/output"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check that the backend is reachable",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := current.client.HealthCheck(cmdContext(cmd))
		if err != nil {
			return err
		}
		if flagJSON {
			return output.JSON(resp)
		}
		output.Success("%s %s", resp.Status, current.cfg.APIURL)
		if resp.Message != "" {
			output.Info("%s", resp.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
