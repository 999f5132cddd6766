package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newScanCmd(o *rootOptions) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one scan and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(o.cfg, true)
			if err != nil {
				return err
			}
			defer a.close()

			a.scanner.TriggerScan(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(a.scanner.Snapshot())
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	return cmd
}
