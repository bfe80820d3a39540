package generation

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/modelforge/modelforge/pkg/models"
	"golang.org/x/text/unicode/norm"
)

// ValidateForm turns raw form values into a normalized GenerationRequest
// or fails with one of the validation errors. Rules are applied in a
// fixed order; the function is pure and never touches the network.
func ValidateForm(form models.GenerateForm) (models.GenerationRequest, error) {
	prompt := SanitizePrompt(form.Prompt)

	if prompt == "" && form.ReferenceImage == "" {
		return models.GenerationRequest{}, ErrMissingInput
	}

	width, ok := parseDimension(form.Width)
	if !ok {
		return models.GenerationRequest{}, ErrInvalidDimension
	}
	height, ok := parseDimension(form.Height)
	if !ok {
		return models.GenerationRequest{}, ErrInvalidDimension
	}
	depth, ok := parseDimension(form.Depth)
	if !ok {
		return models.GenerationRequest{}, ErrInvalidDimension
	}

	infill, err := strconv.Atoi(strings.TrimSpace(form.Infill))
	if err != nil || infill < 0 || infill > 100 {
		return models.GenerationRequest{}, ErrInvalidInfill
	}

	shell, err := strconv.ParseFloat(strings.TrimSpace(form.ShellThickness), 64)
	if err != nil || math.IsNaN(shell) || math.IsInf(shell, 0) || shell < 0.4 {
		return models.GenerationRequest{}, ErrInvalidShellThickness
	}

	return models.GenerationRequest{
		Prompt: prompt,
		Dimensions: models.Dimensions{
			WidthMm:  width,
			HeightMm: height,
			DepthMm:  depth,
		},
		Material:         normalizeMaterial(form.Material),
		SupportsEnabled:  form.Supports,
		InfillPercent:    infill,
		ShellThicknessMm: shell,
		ReferenceImage:   form.ReferenceImage,
		OutputFormat:     normalizeFormat(form.OutputFormat),
	}, nil
}

// SanitizePrompt normalizes the prompt to NFC, strips control characters
// and collapses surrounding whitespace.
func SanitizePrompt(prompt string) string {
	normalized := norm.NFC.String(prompt)

	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		if unicode.IsControl(r) && r != '\n' {
			continue
		}
		b.WriteRune(r)
	}

	return strings.TrimSpace(b.String())
}

// parseDimension accepts only positive finite millimeter values.
func parseDimension(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}

	return v, true
}

// normalizeMaterial defaults unrecognized values to plastic, the cheapest
// material, rather than rejecting the request.
func normalizeMaterial(raw string) models.Material {
	m := models.Material(strings.ToLower(strings.TrimSpace(raw)))
	if models.ValidMaterial(m) {
		return m
	}
	return models.MaterialPlastic
}

func normalizeFormat(raw string) models.OutputFormat {
	if models.OutputFormat(strings.ToLower(strings.TrimSpace(raw))) == models.OutputDownload {
		return models.OutputDownload
	}
	return models.OutputPreview
}
