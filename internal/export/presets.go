/*
 * Copyright (c) 2025 by the SmartWish authors.
 * Licensed under the Apache License, Version 2.0
 */

package export

import (
	"fmt"
	"strings"

	"smartwish/internal/domain"
)

// PresetName represents a named card format preset.
type PresetName string

const (
	Preset5x7 PresetName = "5x7"
	PresetA5  PresetName = "a5"
	PresetA4  PresetName = "a4-flat"
)

// Standard bleed for greeting cards: 1/8 inch.
const defaultBleed = 9.0

// SpecForPreset returns the print geometry for a named card format.
// Dimensions are the unfolded sheet in points.
func SpecForPreset(name PresetName) (domain.CardSpec, error) {
	switch PresetName(strings.ToLower(string(name))) {
	case Preset5x7:
		// 5x7in folded card prints on a 10x7in sheet.
		return domain.CardSpec{TrimWidth: 720, TrimHeight: 504, Bleed: defaultBleed, DPI: 300, Fold: "half"}, nil
	case PresetA5:
		// A5 folded card prints on an A4 sheet (210x297mm).
		return domain.CardSpec{TrimWidth: 595.28, TrimHeight: 841.89, Bleed: defaultBleed, DPI: 300, Fold: "half"}, nil
	case PresetA4:
		// Flat A4 sheet, no fold.
		return domain.CardSpec{TrimWidth: 595.28, TrimHeight: 841.89, Bleed: defaultBleed, DPI: 300, Fold: "flat"}, nil
	default:
		return domain.CardSpec{}, fmt.Errorf("unknown card preset: %s", name)
	}
}

// Presets lists the supported card format names.
func Presets() []PresetName {
	return []PresetName{Preset5x7, PresetA5, PresetA4}
}
