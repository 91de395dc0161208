package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbonsight/carbon-cli/internal/model"
)

func TestNormalize_CaseFoldAndTrim(t *testing.T) {
	assert.Equal(t, "kent county council", Normalize("  Kent County Council  "))
}

func TestNormalize_SuffixVariants(t *testing.T) {
	assert.Equal(t, "acme limited", Normalize("Acme Ltd."))
	assert.Equal(t, "acme limited", Normalize("ACME Limited"))
	assert.Equal(t, "acme plc", Normalize("Acme P.L.C."))
	assert.Equal(t, "acme company", Normalize("Acme Co."))
	assert.Equal(t, "hm government", Normalize("HM Govt"))
}

func TestNormalize_PublicSectorAbbreviations(t *testing.T) {
	assert.Equal(t, "kent county council", Normalize("Kent CC"))
	assert.Equal(t, "luton borough council", Normalize("Luton B.C."))
	assert.Equal(t, "dover district council", Normalize("Dover DC"))
}

func TestNormalize_PunctuationAndAmpersand(t *testing.T) {
	assert.Equal(t, "taylor and sons limited", Normalize("Taylor & Sons, Ltd."))
	assert.Equal(t, "stoke on trent city council", Normalize("Stoke-on-Trent City Council"))
}

func TestNormalize_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", Normalize("a   b\t \tc"))
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"Acme Ltd.", "Kent CC", "Taylor & Sons PLC", "  Luton  B.C. "}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "normalize not idempotent for %q", in)
	}
}

func TestNormalize_Empty(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "", Normalize("   "))
}

func TestResolver_KnownAlias(t *testing.T) {
	r := NewResolver(map[string]string{"KCC": "Kent County Council"})
	assert.Equal(t, "kent county council", r.Resolve("kcc"))
}

func TestResolver_UnknownBecomesCanonical(t *testing.T) {
	r := NewResolver(nil)
	assert.Equal(t, "newtown parish council", r.Resolve("Newtown Parish Council"))
	// Registered as its own alias for subsequent lookups.
	assert.Equal(t, "newtown parish council", r.Resolve("  NEWTOWN PARISH COUNCIL "))
}

func TestResolver_Idempotent(t *testing.T) {
	r := NewResolver(map[string]string{"kcc": "Kent County Council"})
	canonical := r.Resolve("KCC")
	assert.Equal(t, canonical, r.Resolve(canonical))
}

func TestResolver_PerRunIsolation(t *testing.T) {
	r1 := NewResolver(nil)
	r1.Resolve("Acme Ltd")

	r2 := NewResolver(nil)
	assert.Empty(t, r2.Snapshot())
}

func TestResolver_Entities(t *testing.T) {
	r := NewResolver(map[string]string{"kcc": "kent county council"})
	r.Resolve("Kent CC")
	r.Resolve("Dover District Council")

	entities := r.Entities()
	require.Len(t, entities, 2)
	assert.Equal(t, "dover district council", entities[0].Name)
	assert.Equal(t, "kent county council", entities[1].Name)
	assert.Contains(t, entities[1].Aliases, "kcc")
	assert.Contains(t, entities[1].Aliases, "kent county council")
}

func TestDedupe_IdenticalKeyCollapses(t *testing.T) {
	records := []model.ContractRecord{
		{OCID: "a", CanonicalBuyer: "kent county council", Value: 50000, Title: "Road resurfacing", Description: "Phase 1"},
		{OCID: "b", CanonicalBuyer: "kent county council", Value: 50000, Title: "Road resurfacing", Description: "Phase 1"},
	}
	out, dropped := Dedupe(records)
	require.Len(t, out, 1)
	assert.Equal(t, 1, dropped)
	// First-seen wins.
	assert.Equal(t, "a", out[0].OCID)
}

func TestDedupe_DescriptionDoesNotMerge(t *testing.T) {
	records := []model.ContractRecord{
		{OCID: "a", CanonicalBuyer: "kent county council", Value: 50000, Title: "Road resurfacing", Description: "Phase 1"},
		{OCID: "b", CanonicalBuyer: "kent county council", Value: 50000, Title: "Road resurfacing", Description: "Phase 2"},
		{OCID: "c", CanonicalBuyer: "kent county council", Value: 50000, Title: "Road resurfacing", Description: "Phase 1"},
	}
	out, dropped := Dedupe(records)
	// b differs only in description and survives; c repeats a exactly.
	require.Len(t, out, 2)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, "a", out[0].OCID)
	assert.Equal(t, "b", out[1].OCID)
}

func TestDedupe_DifferentValueKept(t *testing.T) {
	records := []model.ContractRecord{
		{OCID: "a", CanonicalBuyer: "kent county council", Value: 50000, Title: "Road resurfacing"},
		{OCID: "b", CanonicalBuyer: "kent county council", Value: 50001, Title: "Road resurfacing"},
	}
	out, dropped := Dedupe(records)
	assert.Len(t, out, 2)
	assert.Equal(t, 0, dropped)
}

func TestBuildAliasMap_AcronymCluster(t *testing.T) {
	names := []string{
		"Kent County Council",
		"KCC",
		"Kent County Council",
	}
	m := BuildAliasMap(names)
	// The acronym-literal variant anchors the cluster.
	assert.Equal(t, "kcc", m["kent county council"])
}

func TestBuildAliasMap_MostFrequentWins(t *testing.T) {
	names := []string{
		"Highways England",
		"Highways Executive",
		"Highways England",
	}
	// Both normalize to multi-word names sharing the acronym "he".
	m := BuildAliasMap(names)
	assert.Equal(t, "highways england", m["highways executive"])
	_, selfMapped := m["highways england"]
	assert.False(t, selfMapped)
}

func TestBuildAliasMap_SingletonsProduceNoAliases(t *testing.T) {
	m := BuildAliasMap([]string{"Acme Ltd", "Dover District Council"})
	assert.Empty(t, m)
}
