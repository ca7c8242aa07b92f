package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scanforge/scanforge/internal/cli"
	"github.com/scanforge/scanforge/internal/common"
	"github.com/scanforge/scanforge/internal/detect"
	"github.com/scanforge/scanforge/internal/enhance"
	"github.com/scanforge/scanforge/internal/geometry"
	"github.com/scanforge/scanforge/internal/model"
	"github.com/scanforge/scanforge/internal/service"
	"github.com/scanforge/scanforge/internal/session"
)

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <frame.png|frame.jpg>...",
		Short: "Capture document pages from frame files",
		Long: `Run each frame through the capture pipeline: detect the document
boundary, rectify the perspective, enhance with the session profile, and
append the result to the active session.

When detection finds no boundary, pass the corners yourself with
--corners "x,y:x,y:x,y:x,y" (top-left first, clockwise).`,
		Args: cobra.MinimumNArgs(1),
		RunE: runScan,
	}

	cmd.Flags().String("corners", "", "manual crop corners, bypassing detection")
	cmd.Flags().String("profile", "", "enhancement profile override for these pages")
	cmd.Flags().Int("dpi", 150, "target page resolution (A4 at this dpi)")
	cmd.Flags().Float64("min-area", 0, "minimum document area as a fraction of the frame")

	_ = viper.BindPFlag("scan.corners", cmd.Flags().Lookup("corners"))
	_ = viper.BindPFlag("scan.profile", cmd.Flags().Lookup("profile"))
	_ = viper.BindPFlag("scan.dpi", cmd.Flags().Lookup("dpi"))
	_ = viper.BindPFlag("scan.min_area", cmd.Flags().Lookup("min-area"))

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	manager, err := loadActiveManager(ctx, store)
	if err != nil {
		return err
	}

	profileName := viper.GetString("scan.profile")
	if profileName == "" {
		profileName = manager.Meta().Profile
	}
	profile, err := enhance.Lookup(profileName, userProfiles())
	if err != nil {
		return err
	}

	var manualQuad *model.Quadrilateral
	if corners := viper.GetString("scan.corners"); corners != "" {
		q, err := model.ParseQuadrilateral(corners)
		if err != nil {
			return err
		}
		manualQuad = &q
	}

	detector := detect.New(detect.Params{MinAreaFrac: viper.GetFloat64("scan.min_area")})
	outSize := geometry.A4At(viper.GetInt("scan.dpi"))

	for _, path := range args {
		page, err := capturePage(ctx, store, manager, captureRequest{
			framePath:  path,
			detector:   detector,
			manualQuad: manualQuad,
			profile:    profile,
			outSize:    outSize,
		})
		if err != nil {
			if errors.Is(err, common.ErrDetectionMiss) {
				fmt.Println(cli.FormatWarning(common.UserMessage(err)))
				continue
			}
			return err
		}
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Captured %s as page %d (position %d)", path, page.ID, page.Ordinal+1)))
	}
	return nil
}

// captureRequest bundles everything one frame needs to become a page.
type captureRequest struct {
	detector   *detect.Detector
	manualQuad *model.Quadrilateral
	framePath  string
	profile    model.EnhancementProfile
	outSize    geometry.OutputSize
}

// capturePage runs one frame through detect → rectify → enhance → session,
// persisting the page before returning.
func capturePage(ctx context.Context, store service.Storage, manager *session.Manager, req captureRequest) (*model.Page, error) {
	frame, err := loadFrame(req.framePath)
	if err != nil {
		return nil, err
	}

	quad := req.manualQuad
	if quad == nil {
		detection, err := req.detector.Detect(frame)
		if err != nil {
			return nil, err
		}
		if detection.LowConfidence {
			fmt.Println(cli.FormatWarning(fmt.Sprintf(
				"Multiple similar document candidates in %s; using the largest. Verify the crop.", req.framePath)))
		}
		quad = &detection.Quad
		slog.Debug("detected boundary",
			"frame", req.framePath,
			"quad", detection.Quad.String(),
			"confidence", detection.Confidence)
	}

	rectified, err := geometry.Rectify(frame, *quad, req.outSize)
	if err != nil {
		return nil, err
	}

	enhanced, err := enhance.Apply(rectified, req.profile)
	if err != nil {
		return nil, err
	}

	page, err := manager.AddPage(enhanced, req.profile.Name)
	if err != nil {
		return nil, err
	}

	meta := manager.Meta()
	if err := store.SavePage(ctx, meta.ID, &page); err != nil {
		return nil, err
	}
	if err := store.UpdateSessionState(ctx, meta.ID, meta.State); err != nil {
		return nil, err
	}
	return &page, nil
}
