package transitions

import "procurement-backend/db/models"

// cascadeRule offers Trigger to the parent document when a child enters Status.
// With AllSiblings set the trigger is only offered once every child of the same
// kind under that parent is in Status.
type cascadeRule struct {
	Child       models.DocumentType
	Status      models.DocumentStatus
	Trigger     models.Trigger
	AllSiblings bool
}

var cascadeRules = []cascadeRule{
	{Child: models.DocumentTypeRFQ, Status: models.RFQStatusActive, Trigger: models.TriggerRFQDisseminated},
	{Child: models.DocumentTypeRFQ, Status: models.RFQStatusCompleted, Trigger: models.TriggerCanvassCompleted},
	{Child: models.DocumentTypeRFQ, Status: models.RFQStatusCancelled, Trigger: models.TriggerRFQCancelled},
	{Child: models.DocumentTypeCanvass, Status: models.CanvassStatusCompleted, Trigger: models.TriggerComplete, AllSiblings: true},
	{Child: models.DocumentTypeBACDocument, Status: models.BACStatusApproved, Trigger: models.TriggerBACApproved, AllSiblings: true},
	{Child: models.DocumentTypePurchaseOrder, Status: models.POStatusApproved, Trigger: models.TriggerPOApproved},
	{Child: models.DocumentTypePurchaseOrder, Status: models.POStatusAwaitingConforme, Trigger: models.TriggerPODisseminated},
	{Child: models.DocumentTypePurchaseOrder, Status: models.POStatusComplete, Trigger: models.TriggerConformeAccepted},
	{Child: models.DocumentTypePurchaseOrder, Status: models.POStatusCancelled, Trigger: models.TriggerPOCancelled},
}

func cascadesFor(child models.DocumentType, entered models.DocumentStatus) []cascadeRule {
	var out []cascadeRule
	for _, r := range cascadeRules {
		if r.Child == child && r.Status == entered {
			out = append(out, r)
		}
	}
	return out
}
