package generation

import (
	"testing"

	"github.com/modelforge/modelforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validForm returns a form that passes every rule; tests break one field at a time.
func validForm() models.GenerateForm {
	return models.GenerateForm{
		Prompt:         "a hexagonal planter with drainage holes",
		Width:          "120",
		Height:         "80",
		Depth:          "120",
		Material:       "plastic",
		Supports:       true,
		Infill:         "20",
		ShellThickness: "1.2",
		OutputFormat:   "preview",
	}
}

func TestValidateForm_Valid(t *testing.T) {
	req, err := ValidateForm(validForm())
	require.NoError(t, err)

	assert.Equal(t, "a hexagonal planter with drainage holes", req.Prompt)
	assert.Equal(t, 120.0, req.Dimensions.WidthMm)
	assert.Equal(t, 80.0, req.Dimensions.HeightMm)
	assert.Equal(t, models.MaterialPlastic, req.Material)
	assert.True(t, req.SupportsEnabled)
	assert.Equal(t, 20, req.InfillPercent)
	assert.Equal(t, 1.2, req.ShellThicknessMm)
	assert.Equal(t, models.OutputPreview, req.OutputFormat)
}

func TestValidateForm_MissingInput(t *testing.T) {
	form := validForm()
	form.Prompt = "   "
	form.ReferenceImage = ""

	_, err := ValidateForm(form)
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestValidateForm_EmptyPromptWithImageAccepted(t *testing.T) {
	form := validForm()
	form.Prompt = ""
	form.ReferenceImage = "aGVsbG8=" // any image payload satisfies the rule

	req, err := ValidateForm(form)
	require.NoError(t, err)
	assert.Empty(t, req.Prompt)
	assert.Equal(t, "aGVsbG8=", req.ReferenceImage)
}

func TestValidateForm_InvalidDimensions(t *testing.T) {
	cases := []struct {
		name  string
		width string
	}{
		{"absent", ""},
		{"zero", "0"},
		{"negative", "-5"},
		{"non-numeric", "wide"},
		{"NaN", "NaN"},
		{"infinite", "+Inf"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := validForm()
			form.Width = tc.width

			_, err := ValidateForm(form)
			assert.ErrorIs(t, err, ErrInvalidDimension)
		})
	}
}

func TestValidateForm_AllDimensionsChecked(t *testing.T) {
	form := validForm()
	form.Height = "-1"
	_, err := ValidateForm(form)
	assert.ErrorIs(t, err, ErrInvalidDimension)

	form = validForm()
	form.Depth = ""
	_, err = ValidateForm(form)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestValidateForm_InvalidInfill(t *testing.T) {
	for _, infill := range []string{"-1", "101", "abc", ""} {
		form := validForm()
		form.Infill = infill

		_, err := ValidateForm(form)
		assert.ErrorIs(t, err, ErrInvalidInfill, "infill %q should be rejected", infill)
	}
}

func TestValidateForm_InfillBounds(t *testing.T) {
	for _, infill := range []string{"0", "100"} {
		form := validForm()
		form.Infill = infill

		_, err := ValidateForm(form)
		assert.NoError(t, err, "infill %q is inside [0,100]", infill)
	}
}

func TestValidateForm_InvalidShellThickness(t *testing.T) {
	for _, shell := range []string{"0.39", "0", "-2", "thin", "", "NaN", "Inf", "+Inf", "-Inf"} {
		form := validForm()
		form.ShellThickness = shell

		_, err := ValidateForm(form)
		assert.ErrorIs(t, err, ErrInvalidShellThickness, "shell %q should be rejected", shell)
	}
}

func TestValidateForm_ShellThicknessMinimum(t *testing.T) {
	form := validForm()
	form.ShellThickness = "0.4"

	req, err := ValidateForm(form)
	require.NoError(t, err)
	assert.Equal(t, 0.4, req.ShellThicknessMm)
}

func TestValidateForm_RuleOrder(t *testing.T) {
	// Missing input wins over bad dimensions.
	form := validForm()
	form.Prompt = ""
	form.Width = "bogus"

	_, err := ValidateForm(form)
	assert.ErrorIs(t, err, ErrMissingInput)

	// Bad dimensions win over bad infill.
	form = validForm()
	form.Width = "bogus"
	form.Infill = "200"

	_, err = ValidateForm(form)
	assert.ErrorIs(t, err, ErrInvalidDimension)

	// Bad infill wins over bad shell.
	form = validForm()
	form.Infill = "200"
	form.ShellThickness = "0.1"

	_, err = ValidateForm(form)
	assert.ErrorIs(t, err, ErrInvalidInfill)
}

func TestValidateForm_MaterialDefaultsToPlastic(t *testing.T) {
	form := validForm()
	form.Material = "unobtanium"

	req, err := ValidateForm(form)
	require.NoError(t, err)
	assert.Equal(t, models.MaterialPlastic, req.Material)
}

func TestValidateForm_MaterialNormalized(t *testing.T) {
	form := validForm()
	form.Material = "  Resin "

	req, err := ValidateForm(form)
	require.NoError(t, err)
	assert.Equal(t, models.MaterialResin, req.Material)
}

func TestValidateForm_DownloadFormat(t *testing.T) {
	form := validForm()
	form.OutputFormat = "download"

	req, err := ValidateForm(form)
	require.NoError(t, err)
	assert.Equal(t, models.OutputDownload, req.OutputFormat)
}

func TestSanitizePrompt(t *testing.T) {
	assert.Equal(t, "a vase", SanitizePrompt("  a vase  "))
	assert.Equal(t, "abc", SanitizePrompt("a\x00b\x07c"))
	assert.Equal(t, "", SanitizePrompt("\t \r\n"))
	// Newlines inside the prompt survive.
	assert.Equal(t, "line one\nline two", SanitizePrompt("line one\nline two"))
}
