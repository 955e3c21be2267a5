package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"camtrap-cli/internal/client"
	"camtrap-cli/internal/config"
)

var (
	host string
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Point the CLI at a monitoring server",
	Long: `Checks that the server answers the summary endpoint and saves its URL
locally for future commands.

Example:
  camtrap-cli connect --host "http://192.168.1.50:5000"`,
	Run: func(cmd *cobra.Command, args []string) {
		host = strings.TrimRight(host, "/")

		fmt.Printf("Checking %s ...\n", host)

		api := client.New(client.ClientConfig{BaseURL: host})
		summary, err := api.GetSummary(context.Background())
		if err != nil {
			fail("connecting", err)
		}

		fmt.Printf("Server reachable: %d detections, %d species, %d cameras.\n",
			summary.Total, summary.SpeciesCount, summary.CamerasActive)

		if err := config.SaveServer(host); err != nil {
			fail("saving configuration", err)
		}

		fmt.Println("Server saved. You can now run commands like 'camtrap-cli dashboard'.")
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().StringVar(&host, "host", "", "Server base URL (e.g. http://192.168.1.50:5000)")
	_ = connectCmd.MarkFlagRequired("host")
}
