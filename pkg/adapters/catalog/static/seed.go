package static

import (
	"github.com/helixops/taskmesh/internal/domain"
	"github.com/helixops/taskmesh/internal/ports"
)

// Seed returns a catalog populated with the default worker roster used by
// the daemon. Each worker is a façade over the backend cascade; the
// descriptors only state what it is good at, not how it runs.
func Seed() *Catalog {
	c := New()

	roster := []domain.WorkerDescriptor{
		{
			ID:             "reviewer-1",
			Name:           "Code Reviewer",
			Specialization: "code-review",
			Affinities:     []string{"code-review", "code-analysis"},
			Capabilities:   []string{"code", "diff", "security"},
			Tier:           domain.TierPremium,
			CostTier:       domain.CostHigh,
		},
		{
			ID:             "summarizer-1",
			Name:           "Summarizer",
			Specialization: "summarize",
			Affinities:     []string{"summarize", "extract"},
			Capabilities:   []string{"text", "long-context"},
			Tier:           domain.TierStandard,
			CostTier:       domain.CostMedium,
		},
		{
			ID:             "summarizer-2",
			Name:           "Bulk Summarizer",
			Specialization: "summarize",
			Affinities:     []string{"summarize"},
			Capabilities:   []string{"text"},
			Tier:           domain.TierEconomy,
			CostTier:       domain.CostLow,
		},
		{
			ID:             "translator-1",
			Name:           "Translator",
			Specialization: "translate",
			Affinities:     []string{"translate", "summarize"},
			Capabilities:   []string{"text", "multilingual"},
			Tier:           domain.TierStandard,
			CostTier:       domain.CostMedium,
		},
		{
			ID:             "writer-1",
			Name:           "Content Writer",
			Specialization: "write",
			Affinities:     []string{"write", "summarize", "translate"},
			Capabilities:   []string{"text", "tone"},
			Tier:           domain.TierStandard,
			CostTier:       domain.CostMedium,
		},
		{
			ID:             "analyst-1",
			Name:           "Data Analyst",
			Specialization: "analyze",
			Affinities:     []string{"analyze", "extract", "code-analysis"},
			Capabilities:   []string{"text", "data", "code"},
			Tier:           domain.TierPremium,
			CostTier:       domain.CostHigh,
		},
	}

	for _, desc := range roster {
		c.Add(desc, func(domain.WorkerDescriptor) ports.WorkerHandle { return Handle{} })
	}
	return c
}
