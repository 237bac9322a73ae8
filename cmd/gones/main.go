// Package main implements the gones NES emulator executable.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nesgrove/gones/internal/app"
	"github.com/nesgrove/gones/internal/version"
)

var (
	configFile string
	debug      bool
	nogui      bool
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCommand builds the gones CLI: a single positional ROM path plus a
// handful of flags for the desktop shell (config file, headless/debug
// mode). Running with no ROM starts the GUI with no cartridge loaded (there
// is no in-app ROM picker); running with a ROM and -nogui drives the
// emulator headlessly, which is how the integration harness exercises it.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gones [rom-file]",
		Short:         "gones - a cycle-level NES emulator",
		Long:          "gones emulates the NES CPU, PPU, APU, and mapper-0 cartridges, producing a 256x240 video frame and a 44.1kHz mono audio stream.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runEmulator,
	}

	root.Flags().StringVar(&configFile, "config", "", "path to a configuration file")
	root.Flags().BoolVar(&debug, "debug", false, "enable debug logging and on-screen diagnostics")
	root.Flags().BoolVar(&nogui, "nogui", false, "run headless: no window, no audio device, ROM argument required")

	root.AddCommand(newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print build information and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			version.PrintBuildInfo()
			return nil
		},
	}
}

func runEmulator(cmd *cobra.Command, args []string) error {
	var romFile string
	if len(args) == 1 {
		romFile = args[0]
	}

	if nogui && romFile == "" {
		return fmt.Errorf("a ROM file is required in -nogui mode")
	}

	setupGracefulShutdown()

	fmt.Println("gones starting...")

	configPath := configFile
	if configPath == "" {
		configPath = app.GetDefaultConfigPath()
	}

	application, err := app.NewApplicationWithMode(configPath, nogui)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer func() {
		if err := application.Cleanup(); err != nil {
			fmt.Fprintf(os.Stderr, "application cleanup error: %v\n", err)
		}
	}()

	if nogui {
		config := application.GetConfig()
		config.Video.Backend = "headless"
	}

	if debug {
		config := application.GetConfig()
		config.UpdateDebug(true, true, true)
		application.ApplyDebugSettings()
	}

	if romFile != "" {
		fmt.Printf("loading ROM: %s\n", romFile)
		if err := application.LoadROM(romFile); err != nil {
			return fmt.Errorf("failed to load ROM: %w", err)
		}
		if debug {
			application.ApplyDebugSettings()
		}
	}

	if nogui {
		runHeadlessMode(application)
	} else if err := runGUIMode(application); err != nil {
		return fmt.Errorf("GUI mode failed: %w", err)
	}

	fmt.Println("emulator shutting down")
	return nil
}

// runGUIMode runs the full GUI application
func runGUIMode(application *app.Application) error {
	config := application.GetConfig()
	windowWidth, windowHeight := config.GetWindowResolution()
	fmt.Printf("window: %dx%d (scale %dx)\n", windowWidth, windowHeight, config.Window.Scale)
	fmt.Printf("audio: %s (%d Hz, %.0f%% volume)\n",
		enabledString(config.Audio.Enabled),
		config.Audio.SampleRate,
		config.Audio.Volume*100)
	fmt.Printf("video: %s, %s, vsync: %s\n",
		config.Video.Filter,
		config.Video.AspectRatio,
		enabledString(config.Video.VSync))

	if err := application.Run(); err != nil {
		return err
	}

	fmt.Printf("frames rendered: %d, session time: %v, average fps: %.1f\n",
		application.GetFrameCount(), application.GetUptime(), application.GetFPS())
	return nil
}

// runHeadlessMode steps the emulator for a fixed number of frames without a
// window, dumping a handful of frame buffers to disk as PPM images. Used
// by integration/smoke testing where no display is available.
func runHeadlessMode(application *app.Application) {
	bus := application.GetBus()
	if bus == nil {
		fmt.Fprintln(os.Stderr, "bus not initialized")
		return
	}

	const (
		targetFrames    = 120
		snapshotEvery   = 30
	)
	snapshotFrames := map[int]bool{30: true, 60: true, 119: true}

	for frame := 0; frame < targetFrames; frame++ {
		bus.Frame()

		if snapshotFrames[frame] {
			name := fmt.Sprintf("frame_%03d.ppm", frame+1)
			if err := writeFrameBufferPPM(bus.PPU.GetFrameBuffer(), name); err != nil {
				fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", name, err)
				continue
			}
			fmt.Printf("wrote %s\n", name)
		}

		if frame%snapshotEvery == snapshotEvery-1 {
			fmt.Printf("%d/%d frames complete\n", frame+1, targetFrames)
		}
	}
}

// writeFrameBufferPPM writes a 256x240 RGB frame buffer as a PPM (P3) image.
func writeFrameBufferPPM(frameBuffer [256 * 240]uint32, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintf(file, "P3\n256 240\n255\n")
	for y := 0; y < 240; y++ {
		for x := 0; x < 256; x++ {
			pixel := frameBuffer[y*256+x]
			r := (pixel >> 16) & 0xFF
			g := (pixel >> 8) & 0xFF
			b := pixel & 0xFF
			fmt.Fprintf(file, "%d %d %d ", r, g, b)
		}
		fmt.Fprintf(file, "\n")
	}
	return nil
}

// setupGracefulShutdown sets up signal handling for graceful shutdown
func setupGracefulShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Println("\ninterrupt received, shutting down")
		os.Exit(0)
	}()
}

func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
