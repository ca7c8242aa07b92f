package model

import (
	"errors"
	"fmt"
)

// Profile validation errors.
var (
	ErrProfileName        = errors.New("profile name is required")
	ErrContrastGain       = errors.New("contrast gain must be positive")
	ErrDenoiseStrength    = errors.New("denoise strength must be non-negative")
	ErrSharpenStrength    = errors.New("sharpen strength must be non-negative")
	ErrThresholdNeedsGray = errors.New("adaptive threshold requires grayscale")
)

// EnhancementProfile is a named bundle of filter parameters applied to a
// rectified page. The zero value is not valid; use NewProfile or one of the
// built-in presets.
type EnhancementProfile struct {
	Name              string
	ContrastGain      float64
	DenoiseStrength   float64
	Sharpen           float64
	Grayscale         bool
	AdaptiveThreshold bool
}

// NewProfile builds a profile with neutral filter settings.
func NewProfile(name string) EnhancementProfile {
	return EnhancementProfile{Name: name, ContrastGain: 1.0}
}

// Validate checks parameter ranges and rejects combinations the pipeline
// cannot honor. Binarization on a color image is the one combination ruled
// out: adaptive threshold only ever runs on a single intensity channel.
func (p EnhancementProfile) Validate() error {
	if p.Name == "" {
		return ErrProfileName
	}
	if p.ContrastGain <= 0 {
		return fmt.Errorf("%w: got %g", ErrContrastGain, p.ContrastGain)
	}
	if p.DenoiseStrength < 0 {
		return fmt.Errorf("%w: got %g", ErrDenoiseStrength, p.DenoiseStrength)
	}
	if p.Sharpen < 0 {
		return fmt.Errorf("%w: got %g", ErrSharpenStrength, p.Sharpen)
	}
	if p.AdaptiveThreshold && !p.Grayscale {
		return fmt.Errorf("%w: profile %q", ErrThresholdNeedsGray, p.Name)
	}
	return nil
}
