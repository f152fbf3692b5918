package transitions

import (
	"os"
	"path/filepath"
	"testing"

	"procurement-backend/db/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reject_policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultRejectPolicyIsValid(t *testing.T) {
	assert.NoError(t, DefaultRejectPolicy().Validate(baseGraphs()))
}

func TestLoadRejectPolicyEmptyPath(t *testing.T) {
	policy, err := LoadRejectPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRejectPolicy(), policy)
}

func TestLoadRejectPolicyOverride(t *testing.T) {
	path := writePolicy(t, `
BAC_DOCUMENT:
  PENDING_APPROVAL: DRAFT
`)
	policy, err := LoadRejectPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, models.BACStatusDraft, policy[models.DocumentTypeBACDocument][models.BACStatusPendingApproval])
	assert.Equal(t, models.PRStatusUnderReview, policy[models.DocumentTypePurchaseRequest][models.PRStatusUnderReview])

	graphs, err := BuildGraphs(policy)
	require.NoError(t, err)
	bac, _ := graphs.For(models.DocumentTypeBACDocument)
	edge, ok := bac.Next(models.BACStatusPendingApproval, models.TriggerChainRejected)
	require.True(t, ok)
	assert.Equal(t, models.BACStatusDraft, edge.To)
}

func TestLoadRejectPolicyToCancelled(t *testing.T) {
	path := writePolicy(t, `
PURCHASE_ORDER:
  PENDING: CANCELLED
`)
	policy, err := LoadRejectPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, models.POStatusCancelled, policy[models.DocumentTypePurchaseOrder][models.POStatusPending])
}

func TestLoadRejectPolicyRejectsBadRules(t *testing.T) {
	tests := map[string]string{
		"forward move": `
PURCHASE_REQUEST:
  PR_UNDER_REVIEW: RFQ_READY
`,
		"unknown type": `
INVOICE:
  PENDING: PENDING
`,
		"not approvable": `
CANVASS:
  PENDING: PENDING
`,
		"wrong source status": `
RFQ:
  ACTIVE: PENDING
`,
		"unknown target": `
RFQ:
  PENDING: ARCHIVED
`,
		"missing active rule": `
BAC_DOCUMENT: {}
`,
		"not yaml": `::: nope`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRejectPolicy(writePolicy(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectPolicyMissingFile(t *testing.T) {
	_, err := LoadRejectPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
