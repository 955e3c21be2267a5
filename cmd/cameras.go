package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"camtrap-cli/internal/client"
	"camtrap-cli/internal/directory"
	"camtrap-cli/internal/render"
	"camtrap-cli/pkg/models"
)

// Variables to hold flag values
var (
	cameraID     string
	cameraName   string
	cameraLat    float64
	cameraLon    float64
	cameraDevice int
)

// setupDirectory wraps the client in the cached camera directory.
func setupDirectory() *directory.Directory {
	api, settings := setupClient()
	return directory.New(api, settings.CacheTTL, newLogger(settings))
}

// Parent Command
var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "Manage cameras",
	Long:  `List cameras, register new ones, delete them or change their capture device.`,
}

// List Command
var camerasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all cameras",
	Run: func(cmd *cobra.Command, args []string) {
		showCameras(context.Background(), setupDirectory())
	},
}

// showCameras prints the directory, going to the server only on a cache miss.
func showCameras(ctx context.Context, dir *directory.Directory) {
	cameras, err := dir.List(ctx)
	if err != nil {
		fail("fetching cameras", err)
	}

	if jsonOutput {
		printJSON(cameras.Cameras())
		return
	}

	view := render.NewCameraList()
	view.RenderCameras(cameras)
	if err := view.Draw(os.Stdout); err != nil {
		fail("drawing cameras", err)
	}
}

// Show-raw Command
var camerasShowRawCmd = &cobra.Command{
	Use:   "show-raw",
	Short: "Print the camera directory as the server returns it",
	Run: func(cmd *cobra.Command, args []string) {
		dir := setupDirectory()

		cameras, err := dir.Reload(context.Background())
		if err != nil {
			fail("fetching cameras", err)
		}

		view := render.NewCameraList()
		view.RenderCameras(cameras)
		if err := view.DrawRaw(os.Stdout); err != nil {
			fail("encoding JSON", err)
		}
	},
}

// Save Command
var camerasSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Register a camera or update an existing one",
	Long: `Registers a new camera (--name, --lat and --lon required) or, with --id,
updates an existing one. Flags left out keep the camera's current values.`,
	Example: `  camtrap-cli cameras save --name "Quebrada Norte" --lat 8.95 --lon -79.55 --device 0
  camtrap-cli cameras save --id 3 --device 1`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		dir := setupDirectory()

		payload, err := cameraPayload(ctx, dir, cmd.Flags().Changed)
		if err != nil {
			if errors.Is(err, client.ErrCameraNotFound) {
				fmt.Printf("Error: camera %s does not exist.\n", cameraID)
				os.Exit(1)
			}
			fail("preparing camera", err)
		}
		if err := dir.Save(ctx, payload); err != nil {
			fail("saving camera", err)
		}

		fmt.Printf("Camera %q saved.\n", payload.Name)
		showCameras(ctx, dir)
	},
}

// cameraPayload builds the save request from the flags. With --id it starts
// from the camera's current descriptor and overrides only the flags given.
func cameraPayload(ctx context.Context, dir *directory.Directory, changed func(name string) bool) (models.SaveCameraPayload, error) {
	if cameraID == "" {
		for _, name := range []string{"name", "lat", "lon"} {
			if !changed(name) {
				return models.SaveCameraPayload{}, fmt.Errorf("--%s is required for a new camera", name)
			}
		}
		return models.SaveCameraPayload{
			Name:   cameraName,
			Lat:    cameraLat,
			Lon:    cameraLon,
			Device: cameraDevice,
		}, nil
	}

	payload, err := dir.EditPayload(ctx, cameraID)
	if err != nil {
		return payload, err
	}
	if changed("name") {
		payload.Name = cameraName
	}
	if changed("lat") {
		payload.Lat = cameraLat
	}
	if changed("lon") {
		payload.Lon = cameraLon
	}
	if changed("device") {
		payload.Device = cameraDevice
	}
	return payload, nil
}

// Delete Command
var camerasDeleteCmd = &cobra.Command{
	Use:     "delete",
	Short:   "Delete a camera",
	Example: `  camtrap-cli cameras delete --id 3`,
	Run: func(cmd *cobra.Command, args []string) {
		dir := setupDirectory()

		if err := dir.Delete(context.Background(), cameraID); err != nil {
			if errors.Is(err, client.ErrCameraNotFound) {
				fmt.Printf("Error: camera %s does not exist.\n", cameraID)
				os.Exit(1)
			}
			fail("deleting camera", err)
		}

		fmt.Printf("Camera %s deleted.\n", cameraID)
		showCameras(context.Background(), dir)
	},
}

// Set-device Command
var camerasSetDeviceCmd = &cobra.Command{
	Use:     "set-device",
	Short:   "Change the capture device index of a camera",
	Example: `  camtrap-cli cameras set-device --id 3 --device 2`,
	Run: func(cmd *cobra.Command, args []string) {
		dir := setupDirectory()

		if err := dir.SetDevice(context.Background(), cameraID, cameraDevice); err != nil {
			if errors.Is(err, client.ErrCameraNotFound) {
				fmt.Printf("Error: camera %s does not exist.\n", cameraID)
				os.Exit(1)
			}
			fail("updating device", err)
		}

		fmt.Printf("Camera %s now uses device %d.\n", cameraID, cameraDevice)
	},
}

func init() {
	// Register Parent
	rootCmd.AddCommand(camerasCmd)

	// Register Subcommands
	camerasCmd.AddCommand(camerasListCmd)
	camerasCmd.AddCommand(camerasShowRawCmd)
	camerasCmd.AddCommand(camerasSaveCmd)
	camerasCmd.AddCommand(camerasDeleteCmd)
	camerasCmd.AddCommand(camerasSetDeviceCmd)

	// Flags for Save
	camerasSaveCmd.Flags().StringVar(&cameraID, "id", "", "ID of an existing camera to update")
	camerasSaveCmd.Flags().StringVar(&cameraName, "name", "", "Display name")
	camerasSaveCmd.Flags().Float64Var(&cameraLat, "lat", 0, "Latitude")
	camerasSaveCmd.Flags().Float64Var(&cameraLon, "lon", 0, "Longitude")
	camerasSaveCmd.Flags().IntVar(&cameraDevice, "device", 0, "Capture device index")

	// Flags for Delete
	camerasDeleteCmd.Flags().StringVar(&cameraID, "id", "", "ID of the camera")
	_ = camerasDeleteCmd.MarkFlagRequired("id")

	// Flags for Set-device
	camerasSetDeviceCmd.Flags().StringVar(&cameraID, "id", "", "ID of the camera")
	camerasSetDeviceCmd.Flags().IntVar(&cameraDevice, "device", 0, "Capture device index")
	_ = camerasSetDeviceCmd.MarkFlagRequired("id")
	_ = camerasSetDeviceCmd.MarkFlagRequired("device")
}
