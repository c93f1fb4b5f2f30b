// Package models contains domain models for resonance.
package models

// Domain represents one of the fixed life domains a task can affect.
type Domain string

const (
	DomainVitality      Domain = "vitality"
	DomainFinances      Domain = "finances"
	DomainCareer        Domain = "career"
	DomainRelationships Domain = "relationships"
	DomainLearning      Domain = "learning"
	DomainCreativity    Domain = "creativity"
	DomainHome          Domain = "home"
	DomainCommunity     Domain = "community"
	DomainSpirit        Domain = "spirit"
)

// AllDomains lists every life domain in display order.
var AllDomains = []Domain{
	DomainVitality,
	DomainFinances,
	DomainCareer,
	DomainRelationships,
	DomainLearning,
	DomainCreativity,
	DomainHome,
	DomainCommunity,
	DomainSpirit,
}

// DomainInfo holds display metadata for a life domain.
// Read-only reference data; never created or destroyed at runtime.
type DomainInfo struct {
	Code        Domain `json:"code"`
	DisplayName string `json:"display_name"`
	Icon        string `json:"icon"`
}

var domainRegistry = map[Domain]DomainInfo{
	DomainVitality:      {DomainVitality, "Vitality", "heart-pulse"},
	DomainFinances:      {DomainFinances, "Finances", "wallet"},
	DomainCareer:        {DomainCareer, "Career", "briefcase"},
	DomainRelationships: {DomainRelationships, "Relationships", "users"},
	DomainLearning:      {DomainLearning, "Learning", "book-open"},
	DomainCreativity:    {DomainCreativity, "Creativity", "palette"},
	DomainHome:          {DomainHome, "Home", "house"},
	DomainCommunity:     {DomainCommunity, "Community", "globe"},
	DomainSpirit:        {DomainSpirit, "Spirit", "sparkles"},
}

// Info returns the display metadata for a domain.
// The second return value is false for unknown codes.
func (d Domain) Info() (DomainInfo, bool) {
	info, ok := domainRegistry[d]
	return info, ok
}

// IsValid reports whether the code is one of the nine fixed domains.
func (d Domain) IsValid() bool {
	_, ok := domainRegistry[d]
	return ok
}
