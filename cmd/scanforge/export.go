package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/scanforge/scanforge/internal/cli"
	"github.com/scanforge/scanforge/internal/export"
	"github.com/scanforge/scanforge/internal/model"
	"github.com/scanforge/scanforge/internal/naming"
	"github.com/scanforge/scanforge/internal/service"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the session's pages to PDF, PNG or JPG",
		Long: `Write every page of the active session to the destination folder.
PDF produces a single multi-page file; PNG and JPG produce one file per
page, named in session order.

A successful export marks the session EXPORTED; start a new one with
"scanforge new".`,
		RunE: runExport,
	}

	cmd.Flags().StringP("format", "f", "", "output format: pdf, png or jpg (default: session format)")
	cmd.Flags().StringP("out", "o", ".", "destination folder")
	cmd.Flags().String("favorite", "", "export to a saved favorite folder instead of --out")
	cmd.Flags().StringP("template", "t", "", "filename template (tokens: {date} {time} {counter} {profile} {format} {dpi} {pages})")
	cmd.Flags().Int("dpi", 0, "resample pages to A4 at this dpi (0 keeps stored resolution)")
	cmd.Flags().Int("quality", 85, "JPEG quality, 1-100")
	cmd.Flags().Int("workers", 0, "parallel page encoders (0 = number of CPUs)")

	_ = viper.BindPFlag("export.format", cmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("export.out", cmd.Flags().Lookup("out"))
	_ = viper.BindPFlag("export.favorite", cmd.Flags().Lookup("favorite"))
	_ = viper.BindPFlag("export.template", cmd.Flags().Lookup("template"))
	_ = viper.BindPFlag("export.dpi", cmd.Flags().Lookup("dpi"))
	_ = viper.BindPFlag("export.quality", cmd.Flags().Lookup("quality"))
	_ = viper.BindPFlag("export.workers", cmd.Flags().Lookup("workers"))

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
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
	meta := manager.Meta()

	format := meta.Format
	if s := viper.GetString("export.format"); s != "" {
		if format, err = model.ParseFormat(s); err != nil {
			return err
		}
	}

	dest, err := resolveDestination(cmd, store)
	if err != nil {
		return err
	}

	template := viper.GetString("export.template")
	if template == "" {
		template = naming.DefaultTemplate
	}

	counter, err := store.NextCounter(ctx, template)
	if err != nil {
		return err
	}

	job := &model.ExportJob{
		SubmittedAt: time.Now(),
		JobID:       uuid.NewString(),
		SessionID:   meta.ID,
		Destination: dest,
		Template:    template,
		Profile:     meta.Profile,
		Pages:       manager.Snapshot(),
		Format:      format,
		DPI:         viper.GetInt("export.dpi"),
		Quality:     viper.GetInt("export.quality"),
		CounterBase: counter,
	}

	encoder := export.NewEncoder(export.DiskSpace{})
	encoder.Workers = viper.GetInt("export.workers")
	encoder.Progress = exportProgress(len(job.Pages), format)

	result, err := encoder.Export(ctx, job)
	if err != nil {
		return err
	}

	for _, failure := range result.Failed {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("page %d (%s): %v", failure.PageID, failure.Name, failure.Err)))
	}
	if len(result.Files) == 0 {
		return fmt.Errorf("no pages could be exported")
	}

	record := &service.ExportRecord{
		JobID:      job.JobID,
		SessionID:  meta.ID,
		Format:     format,
		FileCount:  len(result.Files),
		TotalBytes: result.TotalBytes(),
		DurationMS: result.Duration.Milliseconds(),
	}
	if err := store.SaveExportRecord(ctx, record); err != nil {
		return err
	}

	// Partial failures leave the session ACTIVE so the missing pages can
	// be retried after a fix.
	if len(result.Failed) == 0 {
		if err := manager.MarkExported(); err != nil {
			return err
		}
		if err := store.UpdateSessionState(ctx, meta.ID, model.SessionExported); err != nil {
			return err
		}
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d file(s), %s, in %s",
		len(result.Files), formatBytes(result.TotalBytes()), result.Duration.Round(time.Millisecond))))
	for _, file := range result.Files {
		fmt.Println(cli.SubtleStyle.Render("  " + file.Path))
	}
	if len(result.Failed) > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d page(s) failed; the session stays active for a retry.", len(result.Failed))))
	}
	return nil
}

// resolveDestination prefers --favorite over --out.
func resolveDestination(cmd *cobra.Command, store service.Storage) (string, error) {
	if name := viper.GetString("export.favorite"); name != "" {
		return store.GetFavorite(cmd.Context(), name)
	}
	return viper.GetString("export.out"), nil
}

func exportProgress(pages int, format model.Format) func(done, total int) {
	bar := progressbar.NewOptions(pages,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan][bold]Exporting %s...[reset]", format)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
	return func(done, total int) {
		_ = bar.Set(done)
	}
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
