// Package models contains domain models for resonance.
package models

// AffinityWeight is a directed strength value between two life domains,
// scoped to one owner. Weights are not inherently symmetric: (A,B) and
// (B,A) may both exist with different values, or only one, or neither.
type AffinityWeight struct {
	OwnerID string  `db:"owner_id" json:"owner_id"`
	DomainA Domain  `db:"domain_a" json:"domain_a"`
	DomainB Domain  `db:"domain_b" json:"domain_b"`
	Weight  float64 `db:"weight" json:"weight"`
}

// WeightMap holds an owner's directed pairwise weights as
// domainA -> (domainB -> weight).
type WeightMap map[Domain]map[Domain]float64

// ResolveSymmetric returns the effective weight between two domains.
// When both directions exist the stronger one wins; a single direction
// is returned as-is; absent pairs resolve to 0. Pure lookup, never
// mutates the map.
func (m WeightMap) ResolveSymmetric(a, b Domain) float64 {
	ab, abOK := m.lookup(a, b)
	ba, baOK := m.lookup(b, a)

	switch {
	case abOK && baOK:
		if ba > ab {
			return ba
		}
		return ab
	case abOK:
		return ab
	case baOK:
		return ba
	default:
		return 0
	}
}

// Set records a directed weight, clamped to [0,1].
func (m WeightMap) Set(a, b Domain, weight float64) {
	if m[a] == nil {
		m[a] = make(map[Domain]float64)
	}
	m[a][b] = Clamp01(weight)
}

func (m WeightMap) lookup(a, b Domain) (float64, bool) {
	inner, ok := m[a]
	if !ok {
		return 0, false
	}
	w, ok := inner[b]
	if !ok {
		return 0, false
	}
	// Values are clamped at write time too; clamp again on read.
	return Clamp01(w), true
}

// Clamp01 bounds a value to [0,1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
