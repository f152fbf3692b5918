package transitions

import (
	"fmt"
	"os"

	"procurement-backend/db/models"

	"gopkg.in/yaml.v3"
)

// RejectPolicy says where a document goes when its approval chain is rejected,
// per document kind and per status held while the chain was running.
type RejectPolicy map[models.DocumentType]map[models.DocumentStatus]models.DocumentStatus

// DefaultRejectPolicy keeps purchase requests, RFQs and purchase orders in their
// review status so a corrected chain can be built, and parks BAC documents in
// REJECTED until they are revised.
func DefaultRejectPolicy() RejectPolicy {
	return RejectPolicy{
		models.DocumentTypePurchaseRequest: {models.PRStatusUnderReview: models.PRStatusUnderReview},
		models.DocumentTypeRFQ:             {models.RFQStatusPending: models.RFQStatusPending},
		models.DocumentTypeBACDocument:     {models.BACStatusPendingApproval: models.BACStatusRejected},
		models.DocumentTypePurchaseOrder:   {models.POStatusPending: models.POStatusPending},
	}
}

// LoadRejectPolicy reads a YAML policy file and overlays it on the defaults.
// An empty path returns the defaults.
//
//	BAC_DOCUMENT:
//	  PENDING_APPROVAL: DRAFT
func LoadRejectPolicy(path string) (RejectPolicy, error) {
	policy := DefaultRejectPolicy()
	if path == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reject policy: %w", err)
	}

	var overrides map[string]map[string]string
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse reject policy %s: %w", path, err)
	}

	for rawType, rules := range overrides {
		docType, err := models.ParseDocumentType(rawType)
		if err != nil {
			return nil, fmt.Errorf("reject policy %s: %w", path, err)
		}
		merged := map[models.DocumentStatus]models.DocumentStatus{}
		for from, to := range rules {
			merged[models.DocumentStatus(from)] = models.DocumentStatus(to)
		}
		policy[docType] = merged
	}

	if err := policy.Validate(baseGraphs()); err != nil {
		return nil, fmt.Errorf("reject policy %s: %w", path, err)
	}
	return policy, nil
}

// Validate checks that every approvable kind has a rule for the status it holds
// while a chain runs, and that no rule moves a document forward.
func (p RejectPolicy) Validate(graphs map[models.DocumentType]*Graph) error {
	for docType, rules := range p {
		g, ok := graphs[docType]
		if !ok {
			return fmt.Errorf("unknown document type %q", docType)
		}
		if g.ChainActive == "" {
			return fmt.Errorf("%s does not take approval chains", docType)
		}
		for from, to := range rules {
			if from != g.ChainActive {
				return fmt.Errorf("%s: rejection rule from %s, chains only run in %s", docType, from, g.ChainActive)
			}
			if !g.Knows(to) {
				return fmt.Errorf("%s: unknown target status %s", docType, to)
			}
			if to == g.Cancelled || to == g.Rejected {
				continue
			}
			if g.Rank(to) > g.Rank(from) {
				return fmt.Errorf("%s: rejection may not advance %s to %s", docType, from, to)
			}
		}
	}
	for docType, g := range graphs {
		if g.ChainActive == "" {
			continue
		}
		if _, ok := p[docType][g.ChainActive]; !ok {
			return fmt.Errorf("%s: no rejection rule for %s", docType, g.ChainActive)
		}
	}
	return nil
}
