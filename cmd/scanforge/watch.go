package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scanforge/scanforge/internal/cli"
	"github.com/scanforge/scanforge/internal/detect"
	"github.com/scanforge/scanforge/internal/enhance"
	"github.com/scanforge/scanforge/internal/gate"
	"github.com/scanforge/scanforge/internal/geometry"
	"github.com/scanforge/scanforge/internal/model"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <frame-dir>",
		Short: "Auto-capture from a sequence of frames",
		Long: `Feed a directory of sequentially named frames (a recorded camera
feed) through the stability gate. When the detected boundary holds still for
a full window of frames, the completing frame is captured automatically.`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().Int("window", 0, "stability window size in frames")
	cmd.Flags().Float64("max-drift", 0, "max corner drift in pixels within the window")
	cmd.Flags().Int("dpi", 150, "target page resolution (A4 at this dpi)")

	_ = viper.BindPFlag("watch.window", cmd.Flags().Lookup("window"))
	_ = viper.BindPFlag("watch.max_drift", cmd.Flags().Lookup("max-drift"))
	_ = viper.BindPFlag("watch.dpi", cmd.Flags().Lookup("dpi"))

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	frames, err := listFrameFiles(args[0])
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no frame files (png/jpg) found in %s", args[0])
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	manager, err := loadActiveManager(ctx, store)
	if err != nil {
		return err
	}
	profile, err := enhance.Lookup(manager.Meta().Profile, userProfiles())
	if err != nil {
		return err
	}

	detector := detect.New(detect.DefaultParams())
	g, err := gate.New(gate.Params{
		WindowSize:     viper.GetInt("watch.window"),
		MaxCornerDrift: viper.GetFloat64("watch.max_drift"),
	})
	if err != nil {
		return err
	}
	outSize := geometry.A4At(viper.GetInt("watch.dpi"))

	captured := 0
	for _, path := range frames {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		frame, err := loadFrame(path)
		if err != nil {
			return err
		}

		var quad *model.Quadrilateral
		if detection, err := detector.Detect(frame); err == nil {
			quad = &detection.Quad
		}

		verdict := g.Evaluate(frame, quad)
		if !verdict.Trigger {
			continue
		}

		// The gate is advisory; acting on the trigger is our call.
		page, err := capturePage(ctx, store, manager, captureRequest{
			framePath: path,
			detector:  detector,
			profile:   profile,
			outSize:   outSize,
		})
		if err != nil {
			fmt.Println(cli.FormatWarning(fmt.Sprintf("auto-capture of %s failed: %v", path, err)))
			continue
		}
		captured++
		g.Reset()
		fmt.Println(cli.FormatSuccess(fmt.Sprintf(
			"Auto-captured %s as page %d (motion %.2fpx)", filepath.Base(path), page.ID, verdict.MotionScore)))
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Captured %d page(s) from %d frame(s)", captured, len(frames))))
	return nil
}

// listFrameFiles returns the directory's PNG/JPG files sorted by name, the
// order a recorded feed was written in.
func listFrameFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}
	var frames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
			frames = append(frames, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(frames)
	return frames, nil
}
