// Package guard serializes work on a single document. Operations on different
// documents never wait on each other.
package guard

import (
	"context"

	"procurement-backend/db/models"
)

// Guard grants exclusive access to one document until unlock is called.
type Guard interface {
	Lock(ctx context.Context, ref models.DocumentRef) (unlock func(), err error)
}

func lockKey(ref models.DocumentRef) string {
	return "workflow:lock:" + ref.String()
}
