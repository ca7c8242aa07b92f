package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/scanforge/scanforge/internal/cli"
	"github.com/scanforge/scanforge/internal/enhance"
	"github.com/scanforge/scanforge/internal/model"
)

func profilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List enhancement profiles",
		Long: `Show the built-in enhancement profiles plus any defined in the
config file under "profiles". A config profile with a built-in name
shadows the built-in.`,
		RunE: runProfiles,
	}
}

func runProfiles(_ *cobra.Command, _ []string) error {
	builtins := enhance.Builtins()
	user := userProfiles()

	byName := make(map[string]model.EnhancementProfile, len(builtins)+len(user))
	origin := make(map[string]string, len(builtins)+len(user))
	for _, p := range builtins {
		byName[p.Name] = p
		origin[p.Name] = "built-in"
	}
	for name, p := range user {
		byName[name] = p
		origin[name] = "config"
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-12s %-9s %-9s %-8s %-10s %-10s %s",
		"NAME", "ORIGIN", "CONTRAST", "DENOISE", "SHARPEN", "GRAYSCALE", "THRESHOLD")))
	for _, name := range names {
		p := byName[name]
		fmt.Println(cli.TableCellStyle.Render(fmt.Sprintf("%-12s %-9s %-9.2f %-8.1f %-10.1f %-10t %t",
			name, origin[name], p.ContrastGain, p.DenoiseStrength, p.Sharpen, p.Grayscale, p.AdaptiveThreshold)))
	}
	return nil
}
