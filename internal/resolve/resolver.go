package resolve

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/carbonsight/carbon-cli/internal/model"
)

// Resolver maps raw buyer names to canonical identities. It is seeded from
// the configured alias dictionary and grows as unmapped names are observed;
// the registry lives for one pipeline run and is discarded afterwards, so
// repeated runs and tests stay isolated.
type Resolver struct {
	aliases map[string]string
}

// NewResolver builds a per-run resolver from an alias dictionary. Keys and
// values are normalized on the way in, and every canonical form is
// registered as its own alias, which makes resolution idempotent.
func NewResolver(aliases map[string]string) *Resolver {
	r := &Resolver{aliases: make(map[string]string, len(aliases)*2)}
	for raw, canonical := range aliases {
		c := Normalize(canonical)
		if c == "" {
			continue
		}
		r.aliases[Normalize(raw)] = c
		r.aliases[c] = c
	}
	return r
}

// Resolve returns the canonical identity for a raw buyer name. An unmapped
// name becomes a new canonical entity and is registered as its own alias.
func (r *Resolver) Resolve(raw string) string {
	norm := Normalize(raw)
	if norm == "" {
		return ""
	}
	if canonical, ok := r.aliases[norm]; ok {
		return canonical
	}
	r.aliases[norm] = norm
	return norm
}

// Entities reconstructs the canonical entity set observed so far: each
// canonical name with the aliases that map to it, sorted for determinism.
func (r *Resolver) Entities() []model.CanonicalEntity {
	byCanonical := make(map[string][]string)
	for alias, canonical := range r.aliases {
		byCanonical[canonical] = append(byCanonical[canonical], alias)
	}

	entities := make([]model.CanonicalEntity, 0, len(byCanonical))
	for canonical, aliases := range byCanonical {
		sort.Strings(aliases)
		entities = append(entities, model.CanonicalEntity{Name: canonical, Aliases: aliases})
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].Name < entities[j].Name })
	return entities
}

// Snapshot returns a read-only copy of the registry, for seeding parallel
// stages that must not observe registry mutation.
func (r *Resolver) Snapshot() map[string]string {
	out := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}

// DedupKey builds the exact-match deduplication key for a resolved record:
// canonical buyer, contract value, title, description. Two notices are only
// duplicates when the full text matches exactly; a repeated title with a
// different description is a distinct contract.
func DedupKey(rec model.ContractRecord) string {
	return fmt.Sprintf("%s\x1f%s\x1f%s\x1f%s",
		rec.CanonicalBuyer,
		strconv.FormatFloat(rec.Value, 'g', -1, 64),
		rec.Title,
		rec.Description,
	)
}

// Dedupe drops records whose dedup key has already been seen, keeping the
// first occurrence. Records must already carry CanonicalBuyer. Returns the
// surviving records and the number dropped.
func Dedupe(records []model.ContractRecord) ([]model.ContractRecord, int) {
	seen := make(map[string]bool, len(records))
	out := records[:0:0]
	dropped := 0
	for _, rec := range records {
		key := DedupKey(rec)
		if seen[key] {
			dropped++
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	return out, dropped
}
