package models

// Material is the material a model should be generated for.
type Material string

const (
	MaterialPlastic Material = "plastic"
	MaterialMetal   Material = "metal"
	MaterialWood    Material = "wood"
	MaterialCeramic Material = "ceramic"
	MaterialResin   Material = "resin"
)

// ValidMaterial reports whether m is one of the supported materials.
func ValidMaterial(m Material) bool {
	switch m {
	case MaterialPlastic, MaterialMetal, MaterialWood, MaterialCeramic, MaterialResin:
		return true
	}
	return false
}

// OutputFormat selects what kind of asset the generation backend returns.
type OutputFormat string

const (
	// OutputPreview requests a lightweight glTF binary for in-browser preview.
	OutputPreview OutputFormat = "preview"
	// OutputDownload requests a print-ready STL.
	OutputDownload OutputFormat = "download"
)

// Dimensions are the bounding-box measurements of the requested model, in millimeters.
type Dimensions struct {
	WidthMm  float64 `json:"width_mm"`
	HeightMm float64 `json:"height_mm"`
	DepthMm  float64 `json:"depth_mm"`
}

// GenerationRequest is a validated, normalized model generation request.
// Instances are produced by the validator; handlers must not construct
// them from raw form values directly.
type GenerationRequest struct {
	Prompt           string       `json:"prompt"`
	Dimensions       Dimensions   `json:"dimensions"`
	Material         Material     `json:"material"`
	SupportsEnabled  bool         `json:"supports_enabled"`
	InfillPercent    int          `json:"infill_percent"`
	ShellThicknessMm float64      `json:"shell_thickness_mm"`
	ReferenceImage   string       `json:"reference_image,omitempty"` // base64, optional
	OutputFormat     OutputFormat `json:"output_format"`
}

// GenerationResult is the outcome of a dispatch: either a real asset URL
// from the backend or the well-known placeholder. It replaces any prior
// result wholesale; results are never merged.
type GenerationResult struct {
	ModelAssetURL string `json:"model_asset_url"`
	IsPlaceholder bool   `json:"is_placeholder"`
}

// GenerateForm carries the raw, unvalidated form values as submitted by
// the client. All numeric fields arrive as strings so the validator can
// distinguish "absent" from "zero".
type GenerateForm struct {
	Prompt         string `json:"prompt"`
	Width          string `json:"width"`
	Height         string `json:"height"`
	Depth          string `json:"depth"`
	Material       string `json:"material"`
	Supports       bool   `json:"supports"`
	Infill         string `json:"infill"`
	ShellThickness string `json:"shell_thickness"`
	ReferenceImage string `json:"reference_image,omitempty"`
	OutputFormat   string `json:"output_format,omitempty"`
}

// GenerateResponse is returned by POST /generate. The result is always
// populated; on failure it holds the placeholder and Error names the kind.
type GenerateResponse struct {
	Result  GenerationResult `json:"result"`
	Error   string           `json:"error,omitempty"`
	Message string           `json:"message,omitempty"`
}
