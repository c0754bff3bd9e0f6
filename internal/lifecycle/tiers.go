package lifecycle

import (
	"errors"
	"fmt"
	"os"

	"gen3d-backend/internal/provider"

	"gopkg.in/yaml.v2"
)

const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

// ErrUnknownComplexity indicates a complexity outside the tier table. It is
// caller input, not a generation failure.
var ErrUnknownComplexity = errors.New("unknown complexity tier")

// DefaultTiers maps the three complexity tiers to provider parameter
// profiles. Higher tiers spend polycount and drop the stylized remesh.
func DefaultTiers() map[string]provider.PreviewParams {
	return map[string]provider.PreviewParams{
		ComplexityLow: {
			ArtStyle:        "sculpture",
			AiModel:         "meshy-5",
			Topology:        "triangle",
			TargetPolycount: 10000,
			ShouldRemesh:    true,
			SymmetryMode:    "auto",
			NegativePrompt:  "low quality, low resolution, ugly",
		},
		ComplexityMedium: {
			ArtStyle:        "realistic",
			AiModel:         "meshy-5",
			Topology:        "triangle",
			TargetPolycount: 30000,
			ShouldRemesh:    true,
			SymmetryMode:    "auto",
			NegativePrompt:  "low quality, low resolution, low poly, ugly",
		},
		ComplexityHigh: {
			ArtStyle:        "realistic",
			AiModel:         "meshy-5",
			Topology:        "quad",
			TargetPolycount: 100000,
			ShouldRemesh:    false,
			SymmetryMode:    "auto",
			NegativePrompt:  "low quality, low resolution, low poly, blurry texture, ugly",
		},
	}
}

// LoadTiers reads a tier table from a yaml file. Tiers present in the file
// override the defaults; unknown tier names are rejected.
func LoadTiers(path string) (map[string]provider.PreviewParams, error) {
	tiers := DefaultTiers()
	if path == "" {
		return tiers, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tier file %s: %w", path, err)
	}

	var overrides map[string]provider.PreviewParams
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse tier file %s: %w", path, err)
	}

	for name, params := range overrides {
		if _, ok := tiers[name]; !ok {
			return nil, fmt.Errorf("%w %q in %s", ErrUnknownComplexity, name, path)
		}
		tiers[name] = params
	}

	return tiers, nil
}
