// Package reference loads and validates the externally supplied reference
// data: the material profile table (composite installed rates, embodied
// carbon factors, classification keywords) and the buyer alias dictionary.
package reference

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/carbonsight/carbon-cli/internal/convert"
	"github.com/carbonsight/carbon-cli/internal/model"
)

// GeneralBlendID identifies the synthetic composite profile assigned when no
// classification rule matches. It carries no keywords of its own.
const GeneralBlendID = "MAT_GEN"

// Table is the immutable reference table for one pipeline run. Profile order
// is significant: the classifier evaluates keywords in table order, so more
// specific materials must be listed before generic ones.
type Table struct {
	Profiles []model.MaterialProfile
	Aliases  map[string]string

	byID   map[string]model.MaterialProfile
	byName map[string]model.MaterialProfile
}

type profilesFile struct {
	Profiles []model.MaterialProfile `yaml:"profiles"`
}

type aliasesFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// Load builds a Table from the given paths. Empty paths fall back to the
// built-in defaults. Corrupt reference data (rate <= 0, negative factor,
// duplicate names, missing General Blend) is fatal: every downstream number
// would be unreliable.
func Load(profilesPath, aliasesPath string) (*Table, error) {
	profiles := DefaultProfiles()
	if profilesPath != "" {
		data, err := os.ReadFile(profilesPath)
		if err != nil {
			return nil, eris.Wrap(err, "reference: read profiles")
		}
		var f profilesFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrap(err, "reference: unmarshal profiles")
		}
		profiles = f.Profiles
	}

	aliases := map[string]string{}
	if aliasesPath != "" {
		data, err := os.ReadFile(aliasesPath)
		if err != nil {
			return nil, eris.Wrap(err, "reference: read aliases")
		}
		var f aliasesFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrap(err, "reference: unmarshal aliases")
		}
		aliases = f.Aliases
	}

	return New(profiles, aliases)
}

// New validates the profile list and assembles a Table.
func New(profiles []model.MaterialProfile, aliases map[string]string) (*Table, error) {
	if len(profiles) == 0 {
		return nil, eris.New("reference: empty profile table")
	}

	t := &Table{
		Profiles: profiles,
		Aliases:  aliases,
		byID:     make(map[string]model.MaterialProfile, len(profiles)),
		byName:   make(map[string]model.MaterialProfile, len(profiles)),
	}
	if t.Aliases == nil {
		t.Aliases = map[string]string{}
	}

	for _, p := range profiles {
		if p.ID == "" || p.Name == "" {
			return nil, eris.Errorf("reference: profile missing id or name: %+v", p)
		}
		if p.Rate <= 0 {
			return nil, eris.Wrapf(convert.ErrInvalidRate, "reference: profile %s has rate %v", p.ID, p.Rate)
		}
		if p.Factor < 0 {
			return nil, eris.Errorf("reference: profile %s has negative carbon factor %v", p.ID, p.Factor)
		}
		if _, dup := t.byID[p.ID]; dup {
			return nil, eris.Errorf("reference: duplicate profile id %s", p.ID)
		}
		if _, dup := t.byName[p.Name]; dup {
			return nil, eris.Errorf("reference: duplicate profile name %s", p.Name)
		}
		t.byID[p.ID] = p
		t.byName[p.Name] = p
	}

	if _, ok := t.byID[GeneralBlendID]; !ok {
		return nil, eris.Errorf("reference: table has no %s fallback profile", GeneralBlendID)
	}

	return t, nil
}

// ByID returns the profile with the given material id.
func (t *Table) ByID(id string) (model.MaterialProfile, bool) {
	p, ok := t.byID[id]
	return p, ok
}

// ByName returns the profile with the given display name.
func (t *Table) ByName(name string) (model.MaterialProfile, bool) {
	p, ok := t.byName[name]
	return p, ok
}

// GeneralBlend returns the fallback profile. New guarantees it exists.
func (t *Table) GeneralBlend() model.MaterialProfile {
	return t.byID[GeneralBlendID]
}
