package generation

import (
	"github.com/google/uuid"
	"github.com/modelforge/modelforge/pkg/models"
)

// Payload is the wire format the generation backend accepts.
type Payload struct {
	RequestID      string  `json:"request_id"`
	UserID         int     `json:"user_id"`
	Prompt         string  `json:"prompt"`
	WidthMm        float64 `json:"width_mm"`
	HeightMm       float64 `json:"height_mm"`
	DepthMm        float64 `json:"depth_mm"`
	Material       string  `json:"material"`
	Supports       bool    `json:"supports"`
	InfillPercent  int     `json:"infill_percent"`
	ShellMm        float64 `json:"shell_mm"`
	ReferenceImage string  `json:"reference_image,omitempty"`
	Format         string  `json:"format"`
}

// formatHint maps the caller's intent to the asset format the backend
// should produce: a lightweight interchange format for in-browser
// preview, a print-ready format for explicit downloads.
func formatHint(f models.OutputFormat) string {
	if f == models.OutputDownload {
		return "stl"
	}
	return "glb"
}

// BuildPayload assembles the backend payload from a validated request
// and the session's user id. No side effects beyond the random request id.
func BuildPayload(req models.GenerationRequest, userID int) Payload {
	return Payload{
		RequestID:      uuid.NewString(),
		UserID:         userID,
		Prompt:         req.Prompt,
		WidthMm:        req.Dimensions.WidthMm,
		HeightMm:       req.Dimensions.HeightMm,
		DepthMm:        req.Dimensions.DepthMm,
		Material:       string(req.Material),
		Supports:       req.SupportsEnabled,
		InfillPercent:  req.InfillPercent,
		ShellMm:        req.ShellThicknessMm,
		ReferenceImage: req.ReferenceImage,
		Format:         formatHint(req.OutputFormat),
	}
}
