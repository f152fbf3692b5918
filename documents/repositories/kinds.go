package repositories

import (
	"fmt"

	"procurement-backend/db/models"
)

// Kind describes how a document type is stored and how it hangs off its parent.
type Kind struct {
	Type         models.DocumentType
	Table        string
	Prefix       string
	NumberColumn string
	Parent       models.DocumentType
	ParentColumn string
	OnePerParent bool
	Approvable   bool
}

// HasParent reports whether documents of this kind need a predecessor.
func (k Kind) HasParent() bool {
	return k.Parent != ""
}

// Kinds is the dispatch table for the five document kinds.
var Kinds = map[models.DocumentType]Kind{
	models.DocumentTypePurchaseRequest: {
		Type:         models.DocumentTypePurchaseRequest,
		Table:        "purchase_requests",
		Prefix:       "PR",
		NumberColumn: "pr_number",
		Approvable:   true,
	},
	models.DocumentTypeRFQ: {
		Type:         models.DocumentTypeRFQ,
		Table:        "rfqs",
		Prefix:       "RFQ",
		NumberColumn: "rfq_number",
		Parent:       models.DocumentTypePurchaseRequest,
		ParentColumn: "purchase_request_id",
		OnePerParent: true,
		Approvable:   true,
	},
	models.DocumentTypeCanvass: {
		Type:         models.DocumentTypeCanvass,
		Table:        "canvasses",
		Prefix:       "CANVASS",
		NumberColumn: "canvass_number",
		Parent:       models.DocumentTypeRFQ,
		ParentColumn: "rfq_id",
	},
	models.DocumentTypeBACDocument: {
		Type:         models.DocumentTypeBACDocument,
		Table:        "bac_documents",
		Prefix:       "BAC",
		NumberColumn: "bac_document_number",
		Parent:       models.DocumentTypePurchaseRequest,
		ParentColumn: "purchase_request_id",
		Approvable:   true,
	},
	models.DocumentTypePurchaseOrder: {
		Type:         models.DocumentTypePurchaseOrder,
		Table:        "purchase_orders",
		Prefix:       "PO",
		NumberColumn: "po_number",
		Parent:       models.DocumentTypePurchaseRequest,
		ParentColumn: "purchase_request_id",
		OnePerParent: true,
		Approvable:   true,
	},
}

func KindOf(t models.DocumentType) (Kind, error) {
	k, ok := Kinds[t]
	if !ok {
		return Kind{}, fmt.Errorf("unknown document type %q", t)
	}
	return k, nil
}
