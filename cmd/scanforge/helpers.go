package main

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // frame decoding
	_ "image/png"  // frame decoding
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/scanforge/scanforge/internal/common"
	"github.com/scanforge/scanforge/internal/config"
	"github.com/scanforge/scanforge/internal/enhance"
	"github.com/scanforge/scanforge/internal/model"
	"github.com/scanforge/scanforge/internal/service"
	"github.com/scanforge/scanforge/internal/session"
	"github.com/scanforge/scanforge/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/scanforge/scanforge.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadActiveManager hydrates the session manager from the persisted active
// session.
func loadActiveManager(ctx context.Context, store service.Storage) (*session.Manager, error) {
	meta, err := store.GetActiveSession(ctx)
	if err != nil {
		return nil, err
	}
	pages, err := store.GetPages(ctx, meta.ID)
	if err != nil {
		return nil, err
	}
	return session.Load(*meta, pages), nil
}

// defaultProfileName resolves the session default profile, falling back to
// the config collaborator's default and finally to "text".
func defaultProfileName() string {
	if p := viper.GetString("defaults.profile"); p != "" {
		return p
	}
	return enhance.ProfileText
}

// defaultFormat resolves the default export format from config.
func defaultFormat() (model.Format, error) {
	f := viper.GetString("defaults.format")
	if f == "" {
		return model.FormatPDF, nil
	}
	return model.ParseFormat(f)
}

// userProfiles reads custom enhancement profiles from the config file.
// Each entry under "profiles" follows the option names of the built-ins.
func userProfiles() map[string]model.EnhancementProfile {
	out := make(map[string]model.EnhancementProfile)
	for name := range viper.GetStringMap("profiles") {
		prefix := "profiles." + name
		p := model.EnhancementProfile{
			Name:              name,
			Grayscale:         viper.GetBool(prefix + ".grayscale"),
			AdaptiveThreshold: viper.GetBool(prefix + ".adaptive_threshold"),
			ContrastGain:      viper.GetFloat64(prefix + ".contrast_gain"),
			DenoiseStrength:   viper.GetFloat64(prefix + ".denoise_strength"),
			Sharpen:           viper.GetFloat64(prefix + ".sharpen"),
		}
		if p.ContrastGain == 0 {
			p.ContrastGain = 1.0
		}
		out[name] = p
	}
	return out
}

// loadFrame reads an image file into a Frame, using the file's modification
// time as the capture timestamp.
func loadFrame(path string) (*model.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewUserError(
			fmt.Sprintf("Could not open frame file %s. Check the path and retry the capture.", path), err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, common.NewUserError(
			fmt.Sprintf("%s is not a decodable PNG or JPG frame.", path), err)
	}

	capturedAt := time.Now()
	if info, statErr := os.Stat(path); statErr == nil {
		capturedAt = info.ModTime()
	}
	return model.NewFrame(img, capturedAt, "file:"+path), nil
}
