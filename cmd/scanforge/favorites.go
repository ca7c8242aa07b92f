package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/scanforge/scanforge/internal/cli"
	"github.com/scanforge/scanforge/internal/config"
)

func favoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Manage saved export destinations",
		RunE:  runFavoritesList,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name> <path>",
		Short: "Save a destination folder under a short name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			path := config.ExpandPath(args[1])
			if err := store.SaveFavorite(ctx, args[0], path); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Saved favorite %q → %s", args[0], path)))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Delete a saved destination",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteFavorite(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Removed favorite %q", args[0])))
			return nil
		},
	})

	return cmd
}

func runFavoritesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	favorites, err := store.ListFavorites(ctx)
	if err != nil {
		return err
	}
	if len(favorites) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No favorites saved. Add one with: scanforge favorites add <name> <path>"))
		return nil
	}

	names := make([]string, 0, len(favorites))
	for name := range favorites {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-16s %s", "NAME", "PATH")))
	for _, name := range names {
		fmt.Println(cli.TableCellStyle.Render(fmt.Sprintf("%-16s %s", name, favorites[name])))
	}
	return nil
}
