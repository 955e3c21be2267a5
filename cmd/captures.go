package cmd

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/spf13/cobra"
)

var (
	capturePath   string
	captureOutput string
)

var capturesCmd = &cobra.Command{
	Use:   "captures",
	Short: "Download saved capture images",
}

var capturesGetCmd = &cobra.Command{
	Use:     "get",
	Short:   "Download the image of a detection",
	Example: `  camtrap-cli captures get --path "2024-05-01/jaguar_0930.jpg" --output jaguar.jpg`,
	Run: func(cmd *cobra.Command, args []string) {
		api, _ := setupClient()

		fmt.Printf("Requesting capture %s ...\n", capturePath)

		imgData, err := api.GetCapture(context.Background(), capturePath)
		if err != nil {
			fail("getting capture", err)
		}

		out := captureOutput
		if out == "" {
			out = path.Base(capturePath)
		}
		if err := os.WriteFile(out, imgData, 0644); err != nil {
			fail("writing file", err)
		}

		fmt.Printf("Capture saved to %s (%d bytes)\n", out, len(imgData))
	},
}

func init() {
	rootCmd.AddCommand(capturesCmd)
	capturesCmd.AddCommand(capturesGetCmd)

	capturesGetCmd.Flags().StringVar(&capturePath, "path", "", "Image path as listed in a detection record")
	capturesGetCmd.Flags().StringVar(&captureOutput, "output", "", "Output filename (default: the image's base name)")
	_ = capturesGetCmd.MarkFlagRequired("path")
}
