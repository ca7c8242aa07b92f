package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scanforge/scanforge/internal/cli"
	"github.com/scanforge/scanforge/internal/common"
	"github.com/scanforge/scanforge/internal/model"
	"github.com/scanforge/scanforge/internal/session"
)

func newCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new scan session",
		Long: `Start a new document session. Only one session is active at a time;
an existing active session must be exported or discarded first.`,
		RunE: runNew,
	}

	cmd.Flags().String("profile", "", "default enhancement profile for this session")
	cmd.Flags().String("format", "", "default export format (pdf, png, jpg)")
	_ = viper.BindPFlag("new.profile", cmd.Flags().Lookup("profile"))
	_ = viper.BindPFlag("new.format", cmd.Flags().Lookup("format"))

	return cmd
}

func runNew(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if existing, err := store.GetActiveSession(ctx); err == nil {
		return common.NewUserError(
			fmt.Sprintf("Session %s is still active. Export it or run 'scanforge discard' first.", existing.ID), nil)
	} else if !errors.Is(err, common.ErrNoActiveSession) {
		return err
	}

	profile := viper.GetString("new.profile")
	if profile == "" {
		profile = defaultProfileName()
	}
	format, err := defaultFormat()
	if err != nil {
		return err
	}
	if f := viper.GetString("new.format"); f != "" {
		if format, err = model.ParseFormat(f); err != nil {
			return err
		}
	}

	manager := session.New(profile, format)
	meta := manager.Meta()
	if err := store.CreateSession(ctx, &meta); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Started session %s (profile=%s, format=%s)", meta.ID, profile, format)))
	return nil
}

func discardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Discard the active session and all its pages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			meta, err := store.GetActiveSession(ctx)
			if err != nil {
				return err
			}
			if err := store.DeleteSession(ctx, meta.ID); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Discarded session %s", meta.ID)))
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active session and its pages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			manager, err := loadActiveManager(ctx, store)
			if errors.Is(err, common.ErrNoActiveSession) {
				fmt.Println(cli.SubtleStyle.Render("No active session. Start one with 'scanforge new'."))
				return nil
			}
			if err != nil {
				return err
			}

			meta := manager.Meta()
			fmt.Println(cli.FormatTitle(fmt.Sprintf("Session %s", meta.ID)))
			fmt.Printf("  state:   %s\n", meta.State)
			fmt.Printf("  profile: %s\n", meta.Profile)
			fmt.Printf("  format:  %s\n", meta.Format)
			fmt.Printf("  pages:   %d\n", manager.Len())
			for _, page := range manager.Snapshot() {
				fmt.Printf("    %2d. page %-3d profile=%-6s %s\n",
					page.Ordinal+1, page.ID, page.Profile, page.CapturedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
