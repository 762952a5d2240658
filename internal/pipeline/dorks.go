package pipeline

import (
	"fmt"

	"github.com/sells-group/diligence-cli/internal/model"
)

// Fixed per-category dork priorities. Legal and cyber signals matter most
// for due diligence; host-expansion dorks rank last.
const (
	priorityLegal      = 5
	priorityCyber      = 5
	priorityReputation = 4
	priorityLeadership = 4
	priorityCorporate  = 3
	priorityFinancials = 3
	priorityExpansion  = 1
)

// PlanDorks generates the prioritized query list for an identity. Pure and
// deterministic: identical identities always yield the same ordered dorks.
func PlanDorks(id model.Identity) []model.Dork {
	name := id.CanonicalName
	dorks := []model.Dork{
		{
			Query:    fmt.Sprintf(`"%s" lawsuit OR litigation OR settlement OR "consent order"`, name),
			Category: model.SectionLegal,
			Priority: priorityLegal,
		},
		{
			Query:    fmt.Sprintf(`"%s" SEC OR FTC OR regulator OR investigation OR fine`, name),
			Category: model.SectionLegal,
			Priority: priorityLegal,
		},
		{
			Query:    fmt.Sprintf(`"%s" "data breach" OR ransomware OR hacked OR "leaked data"`, name),
			Category: model.SectionCyber,
			Priority: priorityCyber,
		},
		{
			Query:    fmt.Sprintf(`"%s" breach OR vulnerability OR incident`, id.Domain),
			Category: model.SectionCyber,
			Priority: priorityCyber,
		},
		{
			Query:    fmt.Sprintf(`"%s" scam OR fraud OR complaints OR reviews`, name),
			Category: model.SectionReputation,
			Priority: priorityReputation,
		},
		{
			Query:    fmt.Sprintf(`"%s" acquisition OR merger OR subsidiary OR "parent company"`, name),
			Category: model.SectionCorporate,
			Priority: priorityCorporate,
		},
		{
			Query:    fmt.Sprintf(`"%s" funding OR revenue OR layoffs OR bankruptcy OR debt`, name),
			Category: model.SectionFinancials,
			Priority: priorityFinancials,
		},
	}

	for _, owner := range id.Owners {
		dorks = append(dorks, model.Dork{
			Query:    fmt.Sprintf(`"%s" "%s" fraud OR lawsuit OR investigation OR resigned`, owner, name),
			Category: model.SectionLeadership,
			Priority: priorityLeadership,
		})
	}

	return dorks
}

// hostExpansionDork scopes a follow-up query to a newly discovered host.
func hostExpansionDork(host string, id model.Identity, category model.SectionCategory) model.Dork {
	return model.Dork{
		Query:    fmt.Sprintf(`site:%s "%s"`, host, id.CanonicalName),
		Category: category,
		Priority: priorityExpansion,
	}
}
