package transitions

import (
	"errors"
	"testing"
	"time"

	"procurement-backend/apperrors"
	approval_repositories "procurement-backend/approvals/repositories"
	"procurement-backend/db/models"
	"procurement-backend/documents/repositories"
	"procurement-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	engine := NewEngine(
		repositories.NewDocumentRepository(db),
		approval_repositories.NewApprovalRoutingRepository(db),
		MustDefaultGraphs(),
		zap.NewNop(),
	)
	return engine, db
}

func prRef(id uint) models.DocumentRef {
	return models.DocumentRef{Type: models.DocumentTypePurchaseRequest, ID: id}
}

func TestAdvanceAppliesEdgeAndRecordsHistory(t *testing.T) {
	engine, db := newTestEngine(t)
	pr := testutil.SeedPurchaseRequest(t, db, models.PRStatusUnderReview)

	chainID := uuid.New()
	actor := uint(7)
	changes, err := engine.Advance(db, prRef(pr.ID), models.TriggerChainApproved, Cause{ChainID: &chainID, ActorID: &actor})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, models.PRStatusUnderReview, changes[0].From)
	assert.Equal(t, models.PRStatusRFQReady, changes[0].To)

	var stored models.PurchaseRequest
	require.NoError(t, db.First(&stored, pr.ID).Error)
	assert.Equal(t, models.PRStatusRFQReady, stored.Status)
	assert.NotNil(t, stored.ApprovalDate)

	var history []models.StatusTransition
	require.NoError(t, db.Where("document_id = ?", pr.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, models.TriggerChainApproved, history[0].Trigger)
	assert.Equal(t, chainID, *history[0].ChainID)
	assert.Equal(t, actor, *history[0].ActorID)
}

func TestAdvanceIllegalTriggerLeavesStatus(t *testing.T) {
	engine, db := newTestEngine(t)
	pr := testutil.SeedPurchaseRequest(t, db, models.PRStatusRFQReady)

	_, err := engine.Advance(db, prRef(pr.ID), models.TriggerCOAStamp, Cause{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrIllegalTransition))

	var te *apperrors.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, models.PRStatusRFQReady, te.From)
	assert.Equal(t, models.TriggerCOAStamp, te.Trigger)

	assert.Equal(t, models.PRStatusRFQReady, testutil.StatusOf(t, db, &models.PurchaseRequest{}, pr.ID))
}

func TestAdvanceFromTerminalFailsEveryTime(t *testing.T) {
	engine, db := newTestEngine(t)
	pr := testutil.SeedPurchaseRequest(t, db, models.PRStatusCOAStamped)

	for i := 0; i < 3; i++ {
		_, err := engine.Advance(db, prRef(pr.ID), models.TriggerCancel, Cause{})
		assert.ErrorIs(t, err, apperrors.ErrIllegalTransition)
	}
	assert.Equal(t, models.PRStatusCOAStamped, testutil.StatusOf(t, db, &models.PurchaseRequest{}, pr.ID))
}

func TestAdvanceMissingDocument(t *testing.T) {
	engine, db := newTestEngine(t)
	_, err := engine.Advance(db, prRef(404), models.TriggerChainApproved, Cause{})
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestSignalSkipsUnacceptedTrigger(t *testing.T) {
	engine, db := newTestEngine(t)
	pr := testutil.SeedPurchaseRequest(t, db, models.PRStatusUnderReview)

	changes, err := engine.Signal(db, prRef(pr.ID), models.TriggerChainCreated, Cause{})
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, models.PRStatusUnderReview, testutil.StatusOf(t, db, &models.PurchaseRequest{}, pr.ID))
}

func TestRFQActivationCascadesToPurchaseRequest(t *testing.T) {
	engine, db := newTestEngine(t)
	pr := testutil.SeedPurchaseRequest(t, db, models.PRStatusRFQReady)
	rfq := testutil.SeedRFQ(t, db, pr.ID, models.RFQStatusPending)

	changes, err := engine.Advance(db, models.DocumentRef{Type: models.DocumentTypeRFQ, ID: rfq.ID}, models.TriggerDisseminate, Cause{})
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, models.RFQStatusActive, changes[0].To)
	assert.Equal(t, prRef(pr.ID), changes[1].Ref)
	assert.Equal(t, models.PRStatusRFQDisseminated, changes[1].To)

	var history models.StatusTransition
	require.NoError(t, db.Where("document_type = ? AND document_id = ?", models.DocumentTypePurchaseRequest, pr.ID).First(&history).Error)
	assert.Equal(t, models.DocumentRef{Type: models.DocumentTypeRFQ, ID: rfq.ID}.String(), history.Metadata["cascadeFrom"])
}

func TestCanvassCompletionWaitsForAllSiblings(t *testing.T) {
	engine, db := newTestEngine(t)
	pr := testutil.SeedPurchaseRequest(t, db, models.PRStatusRFQDisseminated)
	rfq := testutil.SeedRFQ(t, db, pr.ID, models.RFQStatusActive)
	deadline := time.Now().Add(48 * time.Hour)
	first := testutil.SeedCanvass(t, db, rfq.ID, models.CanvassStatusInProgress, deadline)
	second := testutil.SeedCanvass(t, db, rfq.ID, models.CanvassStatusInProgress, deadline)

	changes, err := engine.Advance(db, models.DocumentRef{Type: models.DocumentTypeCanvass, ID: first.ID}, models.TriggerComplete, Cause{})
	require.NoError(t, err)
	assert.Len(t, changes, 1)
	assert.Equal(t, models.RFQStatusActive, testutil.StatusOf(t, db, &models.RFQ{}, rfq.ID))

	changes, err = engine.Advance(db, models.DocumentRef{Type: models.DocumentTypeCanvass, ID: second.ID}, models.TriggerComplete, Cause{})
	require.NoError(t, err)
	require.Len(t, changes, 3)
	assert.Equal(t, models.RFQStatusCompleted, testutil.StatusOf(t, db, &models.RFQ{}, rfq.ID))
	assert.Equal(t, models.PRStatusCanvassComplete, testutil.StatusOf(t, db, &models.PurchaseRequest{}, pr.ID))

	var canvass models.Canvass
	require.NoError(t, db.First(&canvass, second.ID).Error)
	assert.NotNil(t, canvass.CompletedAt)
}

func TestCascadeSkipsParentThatCannotAccept(t *testing.T) {
	engine, db := newTestEngine(t)
	pr := testutil.SeedPurchaseRequest(t, db, models.PRStatusUnderReview)
	rfq := testutil.SeedRFQ(t, db, pr.ID, models.RFQStatusPending)

	changes, err := engine.Advance(db, models.DocumentRef{Type: models.DocumentTypeRFQ, ID: rfq.ID}, models.TriggerDisseminate, Cause{})
	require.NoError(t, err)
	assert.Len(t, changes, 1)
	assert.Equal(t, models.PRStatusUnderReview, testutil.StatusOf(t, db, &models.PurchaseRequest{}, pr.ID))
}

func TestPurchaseOrderLifecycleDrivesPurchaseRequest(t *testing.T) {
	engine, db := newTestEngine(t)
	pr := testutil.SeedPurchaseRequest(t, db, models.PRStatusBACApproved)
	po := testutil.SeedPurchaseOrder(t, db, pr.ID, models.POStatusPending)
	ref := models.DocumentRef{Type: models.DocumentTypePurchaseOrder, ID: po.ID}

	steps := []struct {
		trigger models.Trigger
		po      models.DocumentStatus
		pr      models.DocumentStatus
	}{
		{models.TriggerChainApproved, models.POStatusApproved, models.PRStatusPOApproved},
		{models.TriggerDisseminate, models.POStatusDisseminated, models.PRStatusPOApproved},
		{models.TriggerRequestConforme, models.POStatusAwaitingConforme, models.PRStatusAwaitingConforme},
		{models.TriggerConformeAccepted, models.POStatusConformeAccepted, models.PRStatusAwaitingConforme},
		{models.TriggerComplete, models.POStatusComplete, models.PRStatusPOComplete},
	}
	for _, s := range steps {
		_, err := engine.Advance(db, ref, s.trigger, Cause{})
		require.NoError(t, err, "trigger %s", s.trigger)
		assert.Equal(t, s.po, testutil.StatusOf(t, db, &models.PurchaseOrder{}, po.ID))
		assert.Equal(t, s.pr, testutil.StatusOf(t, db, &models.PurchaseRequest{}, pr.ID))
	}

	_, err := engine.Advance(db, prRef(pr.ID), models.TriggerCOAStamp, Cause{})
	require.NoError(t, err)
	assert.Equal(t, models.PRStatusCOAStamped, testutil.StatusOf(t, db, &models.PurchaseRequest{}, pr.ID))
}

func TestCancelledSuccessorRewindsPurchaseRequest(t *testing.T) {
	engine, db := newTestEngine(t)

	pr := testutil.SeedPurchaseRequest(t, db, models.PRStatusRFQDisseminated)
	rfq := testutil.SeedRFQ(t, db, pr.ID, models.RFQStatusActive)
	changes, err := engine.Advance(db, models.DocumentRef{Type: models.DocumentTypeRFQ, ID: rfq.ID}, models.TriggerCancel, Cause{})
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, models.TriggerRFQCancelled, changes[1].Trigger)
	assert.Equal(t, models.PRStatusRFQReady, testutil.StatusOf(t, db, &models.PurchaseRequest{}, pr.ID))

	for _, prStatus := range []models.DocumentStatus{models.PRStatusPOApproved, models.PRStatusAwaitingConforme} {
		other := testutil.SeedPurchaseRequest(t, db, prStatus)
		po := testutil.SeedPurchaseOrder(t, db, other.ID, models.POStatusApproved)
		_, err := engine.Advance(db, models.DocumentRef{Type: models.DocumentTypePurchaseOrder, ID: po.ID}, models.TriggerCancel, Cause{})
		require.NoError(t, err)
		assert.Equal(t, models.PRStatusBACApproved, testutil.StatusOf(t, db, &models.PurchaseRequest{}, other.ID), "from %s", prStatus)
	}

	// A successor cancelled before it moved its parent leaves the parent alone.
	ready := testutil.SeedPurchaseRequest(t, db, models.PRStatusRFQReady)
	pending := testutil.SeedRFQ(t, db, ready.ID, models.RFQStatusPending)
	changes, err = engine.Advance(db, models.DocumentRef{Type: models.DocumentTypeRFQ, ID: pending.ID}, models.TriggerCancel, Cause{})
	require.NoError(t, err)
	assert.Len(t, changes, 1)
	assert.Equal(t, models.PRStatusRFQReady, testutil.StatusOf(t, db, &models.PurchaseRequest{}, ready.ID))
}

func TestCancelCancelsPendingChainSteps(t *testing.T) {
	engine, db := newTestEngine(t)
	pr := testutil.SeedPurchaseRequest(t, db, models.PRStatusUnderReview)

	chainID := uuid.New()
	for i, approver := range []uint{11, 12} {
		step := models.ApprovalRouting{
			ChainID:      chainID,
			DocumentType: models.DocumentTypePurchaseRequest,
			DocumentID:   pr.ID,
			Generation:   1,
			Sequence:     i + 1,
			ApproverID:   approver,
			RoutedBy:     1,
			Status:       models.ApprovalPending,
		}
		require.NoError(t, db.Create(&step).Error)
	}

	_, err := engine.Advance(db, prRef(pr.ID), models.TriggerCancel, Cause{})
	require.NoError(t, err)

	var statuses []string
	require.NoError(t, db.Model(&models.ApprovalRouting{}).Where("chain_id = ?", chainID).Order("sequence").Pluck("status", &statuses).Error)
	assert.Equal(t, []string{"CANCELLED", "CANCELLED"}, statuses)
}

func TestWriteStatusDetectsConcurrentChange(t *testing.T) {
	engine, db := newTestEngine(t)
	pr := testutil.SeedPurchaseRequest(t, db, models.PRStatusUnderReview)

	stale := &repositories.DocumentHead{Ref: prRef(pr.ID), Status: models.PRStatusRFQReady}
	err := engine.writeStatus(db, stale, Edge{To: models.PRStatusRFQDisseminated}, time.Now())
	assert.ErrorIs(t, err, apperrors.ErrTransient)
	assert.Equal(t, models.PRStatusUnderReview, testutil.StatusOf(t, db, &models.PurchaseRequest{}, pr.ID))
}
