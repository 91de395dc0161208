package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbonsight/carbon-cli/internal/convert"
	"github.com/carbonsight/carbon-cli/internal/model"
)

func TestDefaultsAreValid(t *testing.T) {
	table, err := New(DefaultProfiles(), DefaultAliases())
	require.NoError(t, err)

	gen := table.GeneralBlend()
	assert.Equal(t, "General Blend", gen.Name)
	assert.Greater(t, gen.Rate, 0.0)

	steel, ok := table.ByID("MAT_STEEL")
	require.True(t, ok)
	assert.Equal(t, 1500.0, steel.Rate)
	assert.Equal(t, 1610.0, steel.Factor)

	asphalt, ok := table.ByName("Asphalt")
	require.True(t, ok)
	assert.Equal(t, 85.0, asphalt.Rate)
	assert.Equal(t, 56.15, asphalt.Factor)
}

func TestDefaultOrderSteelBeforeAsphalt(t *testing.T) {
	// Rule precedence is table order: "bridge" must win over "resurfacing".
	profiles := DefaultProfiles()
	steelIdx, asphaltIdx := -1, -1
	for i, p := range profiles {
		switch p.ID {
		case "MAT_STEEL":
			steelIdx = i
		case "MAT_ASPHALT":
			asphaltIdx = i
		}
	}
	require.NotEqual(t, -1, steelIdx)
	require.NotEqual(t, -1, asphaltIdx)
	assert.Less(t, steelIdx, asphaltIdx)
}

func TestNew_ZeroRateFatal(t *testing.T) {
	profiles := []model.MaterialProfile{
		{ID: "MAT_GEN", Name: "General Blend", Rate: 0, Factor: 100},
	}
	_, err := New(profiles, nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, convert.ErrInvalidRate))
}

func TestNew_NegativeFactorFatal(t *testing.T) {
	profiles := []model.MaterialProfile{
		{ID: "MAT_GEN", Name: "General Blend", Rate: 150, Factor: -1},
	}
	_, err := New(profiles, nil)
	assert.Error(t, err)
}

func TestNew_MissingGeneralBlendFatal(t *testing.T) {
	profiles := []model.MaterialProfile{
		{ID: "MAT_STEEL", Name: "Structural Steel", Rate: 1500, Factor: 1610},
	}
	_, err := New(profiles, nil)
	assert.Error(t, err)
}

func TestNew_DuplicateIDFatal(t *testing.T) {
	profiles := []model.MaterialProfile{
		{ID: "MAT_GEN", Name: "General Blend", Rate: 150, Factor: 180},
		{ID: "MAT_GEN", Name: "General Blend 2", Rate: 150, Factor: 180},
	}
	_, err := New(profiles, nil)
	assert.Error(t, err)
}

func TestNew_EmptyTableFatal(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()

	profilesYAML := `
profiles:
  - id: MAT_ASPHALT
    name: Asphalt
    composite_rate: 85
    carbon_factor: 56.15
    citation: ICE DB v3.0
    keywords: [asphalt, resurfacing]
  - id: MAT_GEN
    name: General Blend
    composite_rate: 150
    carbon_factor: 180
    citation: Synthetic composite
`
	aliasesYAML := `
aliases:
  kcc: kent county council
  kent cc: kent county council
`
	profilesPath := filepath.Join(dir, "profiles.yaml")
	aliasesPath := filepath.Join(dir, "aliases.yaml")
	require.NoError(t, os.WriteFile(profilesPath, []byte(profilesYAML), 0644))
	require.NoError(t, os.WriteFile(aliasesPath, []byte(aliasesYAML), 0644))

	table, err := Load(profilesPath, aliasesPath)
	require.NoError(t, err)

	assert.Len(t, table.Profiles, 2)
	asphalt, ok := table.ByID("MAT_ASPHALT")
	require.True(t, ok)
	assert.Equal(t, []string{"asphalt", "resurfacing"}, asphalt.Keywords)
	assert.Equal(t, "kent county council", table.Aliases["kcc"])
	assert.Equal(t, "kent county council", table.Aliases["kent cc"])
}

func TestLoad_EmptyPathsUseDefaults(t *testing.T) {
	table, err := Load("", "")
	require.NoError(t, err)
	assert.Len(t, table.Profiles, len(DefaultProfiles()))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/profiles.yaml", "")
	assert.Error(t, err)
}
