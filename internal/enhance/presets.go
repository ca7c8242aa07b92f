package enhance

import (
	"fmt"
	"sort"

	"github.com/scanforge/scanforge/internal/common"
	"github.com/scanforge/scanforge/internal/model"
)

// Built-in profile names.
const (
	ProfileText  = "text"
	ProfilePhoto = "photo"
)

// builtins are the two required presets. "text" flattens to a binarized
// grayscale page with mild sharpening; "photo" keeps color and only cleans
// up contrast and noise.
var builtins = map[string]model.EnhancementProfile{
	ProfileText: {
		Name:              ProfileText,
		Grayscale:         true,
		AdaptiveThreshold: true,
		ContrastGain:      1.1,
		DenoiseStrength:   0,
		Sharpen:           0.5,
	},
	ProfilePhoto: {
		Name:              ProfilePhoto,
		Grayscale:         false,
		AdaptiveThreshold: false,
		ContrastGain:      1.15,
		DenoiseStrength:   1.0,
		Sharpen:           0,
	},
}

// Lookup resolves a profile by name, searching user-defined profiles first
// so a config entry may shadow a builtin.
func Lookup(name string, userProfiles map[string]model.EnhancementProfile) (model.EnhancementProfile, error) {
	if p, ok := userProfiles[name]; ok {
		if err := p.Validate(); err != nil {
			return model.EnhancementProfile{}, fmt.Errorf("profile %q: %w", name, err)
		}
		return p, nil
	}
	if p, ok := builtins[name]; ok {
		return p, nil
	}
	return model.EnhancementProfile{}, fmt.Errorf("%w: unknown profile %q", common.ErrInvalidConfig, name)
}

// Builtins returns the built-in profiles sorted by name.
func Builtins() []model.EnhancementProfile {
	out := make([]model.EnhancementProfile, 0, len(builtins))
	for _, p := range builtins {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
