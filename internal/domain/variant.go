package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Temp variants are named "<Label> | <n> mm" for a single dimension and
// "<Label> | <n> X <m> mm" for an area cut. Anything matching this shape is
// ephemeral and owned by the eviction engine.
var tempVariantPattern = regexp.MustCompile(`^.+ \| \d+(?:[.,]\d+)?(?: X \d+(?:[.,]\d+)?)? mm$`)

// IsTempVariantTitle reports whether a variant title (or option label)
// identifies a dynamically provisioned dimension variant.
func IsTempVariantTitle(title string) bool {
	return tempVariantPattern.MatchString(strings.TrimSpace(title))
}

// TempVariantLabel builds the option label for a requested cut. Width empty
// means a single-dimension cut; otherwise the combined area form is used.
func TempVariantLabel(label, length, width string) string {
	if width == "" {
		return fmt.Sprintf("%s | %s mm", label, length)
	}
	return fmt.Sprintf("%s | %s X %s mm", label, length, width)
}

// Resolution is the outcome of the starter-variant fallback chain for one
// line item, resolved once and then acted on.
type Resolution struct {
	Source ResolutionSource

	// StarterVariantID is set for ByAnnotation and ByLegacyProperty.
	StarterVariantID string

	// Applied is set when the deduction was already performed during
	// resolution (ByFirstVariant), so the caller must not deduct again.
	Applied bool
}

type ResolutionSource int

const (
	ByAnnotation ResolutionSource = iota
	ByLegacyProperty
	ByFirstVariant
)

func (s ResolutionSource) String() string {
	switch s {
	case ByAnnotation:
		return "annotation"
	case ByLegacyProperty:
		return "legacy_property"
	case ByFirstVariant:
		return "first_variant"
	default:
		return "unknown"
	}
}

// StripGIDPrefix reduces a global ID like "gid://shopify/ProductVariant/42"
// to its trailing numeric part. Plain IDs pass through unchanged.
func StripGIDPrefix(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}
