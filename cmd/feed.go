package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"camtrap-cli/internal/videofeed"
)

var (
	feedCamera string
	feedOutput string
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Follow a camera's live video feed",
	Long: `Reads the camera's MJPEG stream and keeps the latest frame in a file.
A failed stream is retried after a fixed delay until interrupted.`,
	Example: `  camtrap-cli feed --camera 1 --output live.jpg`,
	Run: func(cmd *cobra.Command, args []string) {
		api, settings := setupClient()
		logger := newLogger(settings)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sink := &videofeed.FileSink{Path: feedOutput}
		feed := videofeed.New(api, feedCamera, sink, settings.FeedRetryDelay, logger)
		feed.OnStatus = func(connected bool, err error) {
			if connected {
				fmt.Printf("Camera %s connected, writing frames to %s\n", feedCamera, feedOutput)
				return
			}
			fmt.Printf("Camera %s unavailable: %v (retrying in %s)\n", feedCamera, err, settings.FeedRetryDelay)
		}

		err := feed.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			fail("following feed", err)
		}
		fmt.Printf("Stopped after %d frames.\n", sink.Frames())
	},
}

func init() {
	rootCmd.AddCommand(feedCmd)

	feedCmd.Flags().StringVar(&feedCamera, "camera", "", "ID of the camera")
	feedCmd.Flags().StringVar(&feedOutput, "output", "feed.jpg", "File that always holds the latest frame")
	_ = feedCmd.MarkFlagRequired("camera")
}
