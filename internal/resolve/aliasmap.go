package resolve

import (
	"sort"
	"strings"
)

// BuildAliasMap clusters observed raw buyer names and proposes an alias
// dictionary for review. Names are clustered by the acronym of their
// normalized form (single-word names by the word itself); within a cluster
// the canonical form is the variant written as the acronym itself if one
// exists, otherwise the most frequent variant, ties broken lexicographically.
// The result maps normalized alias -> canonical normalized name.
type variant struct {
	norm  string
	count int
}

func BuildAliasMap(rawNames []string) map[string]string {
	clusters := make(map[string][]*variant)
	index := make(map[string]*variant)

	for _, raw := range rawNames {
		norm := Normalize(raw)
		if norm == "" {
			continue
		}
		if v, ok := index[norm]; ok {
			v.count++
			continue
		}
		key := acronym(norm)
		v := &variant{norm: norm, count: 1}
		index[norm] = v
		clusters[key] = append(clusters[key], v)
	}

	out := make(map[string]string)
	for key, variants := range clusters {
		canonical := pickCanonical(key, variants)
		for _, v := range variants {
			if v.norm != canonical {
				out[v.norm] = canonical
			}
		}
	}
	return out
}

// acronym returns the cluster key for a normalized name: first letters of
// each word for multi-word names, the word itself otherwise.
func acronym(norm string) string {
	words := strings.Fields(norm)
	if len(words) < 2 {
		return norm
	}
	var b strings.Builder
	for _, w := range words {
		b.WriteByte(w[0])
	}
	return b.String()
}

func pickCanonical(key string, variants []*variant) string {
	// A variant written as the acronym itself wins the cluster; otherwise
	// the most frequent variant does, ties broken lexicographically.
	for _, v := range variants {
		if strings.ReplaceAll(v.norm, " ", "") == key {
			return v.norm
		}
	}

	sort.Slice(variants, func(i, j int) bool {
		if variants[i].count != variants[j].count {
			return variants[i].count > variants[j].count
		}
		return variants[i].norm < variants[j].norm
	})
	return variants[0].norm
}
