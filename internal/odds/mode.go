package odds

import (
	"fmt"
	"strings"

	"github.com/MJE43/onering-odds/internal/engine"
)

// FeatMode selects how the two feat dice of a trial reduce to one value.
type FeatMode string

const (
	FeatNormal     FeatMode = "Normal"
	FeatFavored    FeatMode = "Favored"
	FeatIllFavored FeatMode = "Ill-favored"
)

// ModeSpec describes a feat mode for listings.
type ModeSpec struct {
	ID          FeatMode `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
}

var modeRegistry = []ModeSpec{
	{
		ID:          FeatNormal,
		Name:        "Normal",
		Description: "roll one feat die",
	},
	{
		ID:          FeatFavored,
		Name:        "Favored",
		Description: "roll two feat dice and keep the best",
	},
	{
		ID:          FeatIllFavored,
		Name:        "Ill-favored",
		Description: "roll two feat dice and keep the worst",
	},
}

// ListModes returns every feat mode in display order.
func ListModes() []ModeSpec {
	out := make([]ModeSpec, len(modeRegistry))
	copy(out, modeRegistry)
	return out
}

// GetMode looks up a feat mode by its exact ID.
func GetMode(id FeatMode) (ModeSpec, bool) {
	for _, spec := range modeRegistry {
		if spec.ID == id {
			return spec, true
		}
	}
	return ModeSpec{}, false
}

// ParseFeatMode accepts a mode name in any case, with or without the hyphen
// in "Ill-favored". The empty string is Normal.
func ParseFeatMode(s string) (FeatMode, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	switch key {
	case "", "normal":
		return FeatNormal, nil
	case "favored", "favoured":
		return FeatFavored, nil
	case "illfavored", "illfavoured":
		return FeatIllFavored, nil
	}
	return "", fmt.Errorf("%w: unknown feat mode %q", engine.ErrInvalidArgument, s)
}

// Valid reports whether m is one of the known modes.
func (m FeatMode) Valid() bool {
	_, ok := GetMode(m)
	return ok
}

func (m FeatMode) String() string { return string(m) }

// orNormal maps the zero value to Normal so a zero Variant is usable.
func (m FeatMode) orNormal() FeatMode {
	if m == "" {
		return FeatNormal
	}
	return m
}
