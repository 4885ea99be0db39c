package playlist

import (
	"fmt"

	"github.com/RealChuan/hlsget/internal/model"
)

// VariantPolicy chooses which variant stream of a master playlist to
// download. It returns the index into variants.
type VariantPolicy func(variants []model.VariantStream) int

// HighestBandwidth selects the variant with the largest declared
// bandwidth. This is the default policy.
func HighestBandwidth(variants []model.VariantStream) int {
	best := 0
	for i, v := range variants {
		if v.Bandwidth > variants[best].Bandwidth {
			best = i
		}
	}
	return best
}

// LowestBandwidth selects the variant with the smallest declared bandwidth.
func LowestBandwidth(variants []model.VariantStream) int {
	best := 0
	for i, v := range variants {
		if v.Bandwidth < variants[best].Bandwidth {
			best = i
		}
	}
	return best
}

// FirstListed selects whichever variant the server listed first.
func FirstListed([]model.VariantStream) int {
	return 0
}

// PolicyByName maps a configuration string to a VariantPolicy.
// Recognized names: "highest" (default for ""), "lowest", "first".
func PolicyByName(name string) (VariantPolicy, error) {
	switch name {
	case "", "highest":
		return HighestBandwidth, nil
	case "lowest":
		return LowestBandwidth, nil
	case "first":
		return FirstListed, nil
	default:
		return nil, fmt.Errorf("playlist: unknown variant policy %q", name)
	}
}
