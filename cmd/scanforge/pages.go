package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scanforge/scanforge/internal/cli"
	"github.com/scanforge/scanforge/internal/detect"
	"github.com/scanforge/scanforge/internal/enhance"
	"github.com/scanforge/scanforge/internal/geometry"
	"github.com/scanforge/scanforge/internal/model"
	"github.com/scanforge/scanforge/internal/service"
	"github.com/scanforge/scanforge/internal/session"
	"github.com/scanforge/scanforge/internal/tui"
)

func pagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "List and rearrange the session's pages",
		RunE:  runPagesList,
	}

	cmd.AddCommand(pagesReorderCmd())
	cmd.AddCommand(pagesDeleteCmd())
	cmd.AddCommand(pagesRetakeCmd())
	cmd.AddCommand(pagesReviewCmd())

	return cmd
}

func runPagesList(cmd *cobra.Command, _ []string) error {
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

	pages := manager.Snapshot()
	if len(pages) == 0 {
		fmt.Println(cli.SubtleStyle.Render("The session has no pages yet."))
		return nil
	}

	fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-4s %-6s %-8s %-10s %s", "POS", "ID", "PROFILE", "SIZE", "CAPTURED")))
	for _, page := range pages {
		fmt.Println(cli.TableCellStyle.Render(fmt.Sprintf("%-4d %-6d %-8s %-10s %s",
			page.Ordinal+1, page.ID, page.Profile,
			fmt.Sprintf("%dKiB", len(page.Image)/1024),
			page.CapturedAt.Format("2006-01-02 15:04:05"))))
	}
	return nil
}

func pagesReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <page-id> <position>",
		Short: "Move a page to a new position (1-based)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), func(ctx context.Context, store service.Storage, manager *session.Manager) error {
				pageID, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid page id %q: %w", args[0], err)
				}
				position, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid position %q: %w", args[1], err)
				}

				if err := manager.Reorder(pageID, position-1); err != nil {
					return err
				}
				if err := store.SaveOrdinals(ctx, manager.Meta().ID, manager.Snapshot()); err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Moved page %d to position %d", pageID, position)))
				return nil
			})
		},
	}
}

func pagesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <page-id>",
		Short: "Remove a page from the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd.Context(), func(ctx context.Context, store service.Storage, manager *session.Manager) error {
				pageID, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid page id %q: %w", args[0], err)
				}

				if err := manager.Delete(pageID); err != nil {
					return err
				}
				meta := manager.Meta()
				if err := store.DeletePage(ctx, meta.ID, pageID); err != nil {
					return err
				}
				if err := store.SaveOrdinals(ctx, meta.ID, manager.Snapshot()); err != nil {
					return err
				}
				if err := store.UpdateSessionState(ctx, meta.ID, meta.State); err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted page %d", pageID)))
				return nil
			})
		},
	}
}

func pagesRetakeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retake <page-id> <frame.png|frame.jpg>",
		Short: "Replace a page's image from a fresh frame",
		Long: `Re-run the capture pipeline on a new frame and swap the result into
an existing page. The page keeps its id and position.`,
		Args: cobra.ExactArgs(2),
		RunE: runPagesRetake,
	}

	cmd.Flags().String("corners", "", "manual crop corners, bypassing detection")
	cmd.Flags().Int("dpi", 150, "target page resolution (A4 at this dpi)")
	_ = viper.BindPFlag("retake.corners", cmd.Flags().Lookup("corners"))
	_ = viper.BindPFlag("retake.dpi", cmd.Flags().Lookup("dpi"))

	return cmd
}

func runPagesRetake(cmd *cobra.Command, args []string) error {
	return withManager(cmd.Context(), func(ctx context.Context, store service.Storage, manager *session.Manager) error {
		pageID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid page id %q: %w", args[0], err)
		}

		frame, err := loadFrame(args[1])
		if err != nil {
			return err
		}

		profile, err := enhance.Lookup(manager.Meta().Profile, userProfiles())
		if err != nil {
			return err
		}

		var quad model.Quadrilateral
		if corners := viper.GetString("retake.corners"); corners != "" {
			if quad, err = model.ParseQuadrilateral(corners); err != nil {
				return err
			}
		} else {
			detection, err := detect.New(detect.Params{}).Detect(frame)
			if err != nil {
				return err
			}
			if detection.LowConfidence {
				fmt.Println(cli.FormatWarning("Multiple similar document candidates; using the largest. Verify the crop."))
			}
			quad = detection.Quad
		}

		rectified, err := geometry.Rectify(frame, quad, geometry.A4At(viper.GetInt("retake.dpi")))
		if err != nil {
			return err
		}
		enhanced, err := enhance.Apply(rectified, profile)
		if err != nil {
			return err
		}

		page, err := manager.Retake(pageID, enhanced, profile.Name)
		if err != nil {
			return err
		}
		if err := store.UpdatePage(ctx, manager.Meta().ID, &page); err != nil {
			return err
		}
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Retook page %d from %s", pageID, args[1])))
		return nil
	})
}

func pagesReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Interactively reorder and delete pages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd.Context(), func(ctx context.Context, store service.Storage, manager *session.Manager) error {
				before := manager.Snapshot()
				if err := tui.RunReview(manager); err != nil {
					return err
				}
				return persistReview(ctx, store, manager, before)
			})
		},
	}
}

// persistReview writes back whatever the review screen changed: deletions
// first, then the surviving ordinals.
func persistReview(ctx context.Context, store service.Storage, manager *session.Manager, before []model.Page) error {
	after := manager.Snapshot()
	meta := manager.Meta()

	kept := make(map[int64]struct{}, len(after))
	for _, page := range after {
		kept[page.ID] = struct{}{}
	}
	for _, page := range before {
		if _, ok := kept[page.ID]; !ok {
			if err := store.DeletePage(ctx, meta.ID, page.ID); err != nil {
				return err
			}
		}
	}
	if err := store.SaveOrdinals(ctx, meta.ID, after); err != nil {
		return err
	}
	return store.UpdateSessionState(ctx, meta.ID, meta.State)
}

// withManager opens storage, hydrates the active session, and funnels both
// into fn.
func withManager(ctx context.Context, fn func(context.Context, service.Storage, *session.Manager) error) error {
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	manager, err := loadActiveManager(ctx, store)
	if err != nil {
		return err
	}
	return fn(ctx, store, manager)
}
