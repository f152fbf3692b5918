package transitions

import (
	"fmt"

	"procurement-backend/db/models"
)

// Edge is the target of a legal (status, trigger) pair. Stamp names a timestamp
// column set when the edge is taken.
type Edge struct {
	To    models.DocumentStatus
	Stamp string
}

// Graph is the lifecycle of one document kind.
type Graph struct {
	Type    models.DocumentType
	Initial models.DocumentStatus

	// Forward order of the happy path, used to rank statuses.
	Order []models.DocumentStatus

	// Off-path sinks a rejection may legitimately route to.
	Cancelled models.DocumentStatus
	Rejected  models.DocumentStatus

	// BuildFrom lists the statuses in which an approval chain may be built.
	// ChainActive is the status a document holds while its chain is running.
	BuildFrom   []models.DocumentStatus
	ChainActive models.DocumentStatus

	terminal map[models.DocumentStatus]bool
	edges    map[models.DocumentStatus]map[models.Trigger]Edge
}

func newGraph(t models.DocumentType, order ...models.DocumentStatus) *Graph {
	return &Graph{
		Type:     t,
		Initial:  order[0],
		Order:    order,
		terminal: map[models.DocumentStatus]bool{},
		edges:    map[models.DocumentStatus]map[models.Trigger]Edge{},
	}
}

func (g *Graph) on(trigger models.Trigger, to models.DocumentStatus, from ...models.DocumentStatus) *Graph {
	return g.onStamped(trigger, to, "", from...)
}

func (g *Graph) onStamped(trigger models.Trigger, to models.DocumentStatus, stamp string, from ...models.DocumentStatus) *Graph {
	for _, f := range from {
		if g.edges[f] == nil {
			g.edges[f] = map[models.Trigger]Edge{}
		}
		if _, dup := g.edges[f][trigger]; dup {
			panic(fmt.Sprintf("transitions: duplicate edge %s --%s--> on %s", f, trigger, g.Type))
		}
		g.edges[f][trigger] = Edge{To: to, Stamp: stamp}
	}
	return g
}

func (g *Graph) terminals(statuses ...models.DocumentStatus) *Graph {
	for _, s := range statuses {
		g.terminal[s] = true
	}
	return g
}

// Next returns the edge for trigger out of from. Terminal statuses have none.
func (g *Graph) Next(from models.DocumentStatus, trigger models.Trigger) (Edge, bool) {
	if g.terminal[from] {
		return Edge{}, false
	}
	e, ok := g.edges[from][trigger]
	return e, ok
}

func (g *Graph) IsTerminal(s models.DocumentStatus) bool {
	return g.terminal[s]
}

// Knows reports whether s belongs to this lifecycle.
func (g *Graph) Knows(s models.DocumentStatus) bool {
	if s == "" {
		return false
	}
	return g.Rank(s) >= 0 || s == g.Cancelled || s == g.Rejected
}

// Rank is the position of s on the happy path, or -1 when s is off-path.
func (g *Graph) Rank(s models.DocumentStatus) int {
	for i, o := range g.Order {
		if o == s {
			return i
		}
	}
	return -1
}

// CanBuildChain reports whether a new approval chain may start from s.
func (g *Graph) CanBuildChain(s models.DocumentStatus) bool {
	for _, b := range g.BuildFrom {
		if b == s {
			return true
		}
	}
	return false
}

// Triggers lists the triggers accepted from s.
func (g *Graph) Triggers(s models.DocumentStatus) []models.Trigger {
	if g.terminal[s] {
		return nil
	}
	out := make([]models.Trigger, 0, len(g.edges[s]))
	for t := range g.edges[s] {
		out = append(out, t)
	}
	return out
}

func purchaseRequestGraph() *Graph {
	g := newGraph(models.DocumentTypePurchaseRequest,
		models.PRStatusUnderReview,
		models.PRStatusRFQReady,
		models.PRStatusRFQDisseminated,
		models.PRStatusCanvassComplete,
		models.PRStatusBACDocsReady,
		models.PRStatusBACApproved,
		models.PRStatusPOApproved,
		models.PRStatusAwaitingConforme,
		models.PRStatusPOComplete,
		models.PRStatusCOAStamped,
	)
	g.Cancelled = models.PRStatusCancelled
	g.BuildFrom = []models.DocumentStatus{models.PRStatusUnderReview}
	g.ChainActive = models.PRStatusUnderReview

	g.onStamped(models.TriggerChainApproved, models.PRStatusRFQReady, "approval_date", models.PRStatusUnderReview).
		on(models.TriggerRFQDisseminated, models.PRStatusRFQDisseminated, models.PRStatusRFQReady).
		on(models.TriggerCanvassCompleted, models.PRStatusCanvassComplete, models.PRStatusRFQDisseminated).
		on(models.TriggerBACDocsPrepared, models.PRStatusBACDocsReady, models.PRStatusCanvassComplete).
		on(models.TriggerBACApproved, models.PRStatusBACApproved, models.PRStatusBACDocsReady).
		on(models.TriggerPOApproved, models.PRStatusPOApproved, models.PRStatusBACApproved).
		on(models.TriggerPODisseminated, models.PRStatusAwaitingConforme, models.PRStatusPOApproved).
		on(models.TriggerConformeAccepted, models.PRStatusPOComplete, models.PRStatusAwaitingConforme).
		on(models.TriggerRFQCancelled, models.PRStatusRFQReady, models.PRStatusRFQDisseminated).
		on(models.TriggerPOCancelled, models.PRStatusBACApproved, models.PRStatusPOApproved, models.PRStatusAwaitingConforme).
		on(models.TriggerCOAStamp, models.PRStatusCOAStamped, models.PRStatusPOComplete).
		on(models.TriggerCancel, models.PRStatusCancelled,
			models.PRStatusUnderReview,
			models.PRStatusRFQReady,
			models.PRStatusRFQDisseminated,
			models.PRStatusCanvassComplete,
			models.PRStatusBACDocsReady,
			models.PRStatusBACApproved,
			models.PRStatusPOApproved,
			models.PRStatusAwaitingConforme,
		).
		// PO_COMPLETE stays open for COA_STAMP, so it is not listed as terminal.
		terminals(models.PRStatusCOAStamped, models.PRStatusCancelled)
	return g
}

func rfqGraph() *Graph {
	g := newGraph(models.DocumentTypeRFQ,
		models.RFQStatusPending,
		models.RFQStatusActive,
		models.RFQStatusCompleted,
	)
	g.Cancelled = models.RFQStatusCancelled
	g.BuildFrom = []models.DocumentStatus{models.RFQStatusPending}
	g.ChainActive = models.RFQStatusPending

	g.on(models.TriggerChainApproved, models.RFQStatusActive, models.RFQStatusPending).
		on(models.TriggerDisseminate, models.RFQStatusActive, models.RFQStatusPending).
		on(models.TriggerComplete, models.RFQStatusCompleted, models.RFQStatusActive).
		on(models.TriggerCancel, models.RFQStatusCancelled, models.RFQStatusPending, models.RFQStatusActive).
		terminals(models.RFQStatusCompleted, models.RFQStatusCancelled)
	return g
}

func canvassGraph() *Graph {
	g := newGraph(models.DocumentTypeCanvass,
		models.CanvassStatusPending,
		models.CanvassStatusInProgress,
		models.CanvassStatusOverdue,
		models.CanvassStatusCompleted,
	)

	g.on(models.TriggerStart, models.CanvassStatusInProgress, models.CanvassStatusPending).
		on(models.TriggerMarkOverdue, models.CanvassStatusOverdue, models.CanvassStatusPending, models.CanvassStatusInProgress).
		onStamped(models.TriggerComplete, models.CanvassStatusCompleted, "completed_at",
			models.CanvassStatusInProgress, models.CanvassStatusOverdue).
		terminals(models.CanvassStatusCompleted)
	return g
}

func bacDocumentGraph() *Graph {
	g := newGraph(models.DocumentTypeBACDocument,
		models.BACStatusDraft,
		models.BACStatusPendingApproval,
		models.BACStatusApproved,
	)
	g.Rejected = models.BACStatusRejected
	g.BuildFrom = []models.DocumentStatus{models.BACStatusDraft}
	g.ChainActive = models.BACStatusPendingApproval

	g.on(models.TriggerChainCreated, models.BACStatusPendingApproval, models.BACStatusDraft).
		onStamped(models.TriggerChainApproved, models.BACStatusApproved, "approved_at", models.BACStatusPendingApproval).
		on(models.TriggerChainWithdrawn, models.BACStatusDraft, models.BACStatusPendingApproval).
		on(models.TriggerRevise, models.BACStatusDraft, models.BACStatusRejected).
		terminals(models.BACStatusApproved)
	return g
}

func purchaseOrderGraph() *Graph {
	g := newGraph(models.DocumentTypePurchaseOrder,
		models.POStatusPending,
		models.POStatusApproved,
		models.POStatusDisseminated,
		models.POStatusAwaitingConforme,
		models.POStatusConformeRejected,
		models.POStatusConformeAccepted,
		models.POStatusComplete,
	)
	g.Cancelled = models.POStatusCancelled
	g.BuildFrom = []models.DocumentStatus{models.POStatusPending}
	g.ChainActive = models.POStatusPending

	g.on(models.TriggerChainApproved, models.POStatusApproved, models.POStatusPending).
		onStamped(models.TriggerDisseminate, models.POStatusDisseminated, "disseminated_at", models.POStatusApproved).
		on(models.TriggerRequestConforme, models.POStatusAwaitingConforme, models.POStatusDisseminated).
		onStamped(models.TriggerConformeAccepted, models.POStatusConformeAccepted, "conforme_date", models.POStatusAwaitingConforme).
		onStamped(models.TriggerConformeRejected, models.POStatusConformeRejected, "conforme_date", models.POStatusAwaitingConforme).
		onStamped(models.TriggerReissue, models.POStatusDisseminated, "disseminated_at", models.POStatusConformeRejected).
		onStamped(models.TriggerComplete, models.POStatusComplete, "completed_at", models.POStatusConformeAccepted).
		on(models.TriggerCancel, models.POStatusCancelled,
			models.POStatusPending,
			models.POStatusApproved,
			models.POStatusDisseminated,
			models.POStatusAwaitingConforme,
			models.POStatusConformeRejected,
			models.POStatusConformeAccepted,
		).
		terminals(models.POStatusComplete, models.POStatusCancelled)
	return g
}

// baseGraphs returns fresh lifecycle graphs without CHAIN_REJECTED edges; those
// come from the reject policy.
func baseGraphs() map[models.DocumentType]*Graph {
	return map[models.DocumentType]*Graph{
		models.DocumentTypePurchaseRequest: purchaseRequestGraph(),
		models.DocumentTypeRFQ:             rfqGraph(),
		models.DocumentTypeCanvass:         canvassGraph(),
		models.DocumentTypeBACDocument:     bacDocumentGraph(),
		models.DocumentTypePurchaseOrder:   purchaseOrderGraph(),
	}
}

// Graphs is the full set of lifecycles with the reject policy applied.
type Graphs map[models.DocumentType]*Graph

// BuildGraphs validates policy and merges its CHAIN_REJECTED edges into the
// base lifecycles.
func BuildGraphs(policy RejectPolicy) (Graphs, error) {
	graphs := baseGraphs()
	if err := policy.Validate(graphs); err != nil {
		return nil, err
	}
	for docType, rules := range policy {
		g := graphs[docType]
		for from, to := range rules {
			g.on(models.TriggerChainRejected, to, from)
		}
	}
	return Graphs(graphs), nil
}

// MustDefaultGraphs builds the lifecycles with DefaultRejectPolicy.
func MustDefaultGraphs() Graphs {
	g, err := BuildGraphs(DefaultRejectPolicy())
	if err != nil {
		panic(err)
	}
	return g
}

func (gs Graphs) For(t models.DocumentType) (*Graph, error) {
	g, ok := gs[t]
	if !ok {
		return nil, fmt.Errorf("no lifecycle for document type %q", t)
	}
	return g, nil
}

// Initial returns the status a freshly created document of type t starts in.
func (gs Graphs) Initial(t models.DocumentType) (models.DocumentStatus, error) {
	g, err := gs.For(t)
	if err != nil {
		return "", err
	}
	return g.Initial, nil
}
