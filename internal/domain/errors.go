package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrQuotaExceeded     = errors.New("block quota exceeded")
	ErrKindMismatch      = errors.New("patch does not match block kind")
	ErrUnknownKind       = errors.New("unknown block kind")
	ErrFeatureLocked     = errors.New("feature not available on current plan")
	ErrAssetTooLarge     = errors.New("asset too large")
	ErrUploadFailed      = errors.New("asset upload failed")
	ErrNoLatestPage      = errors.New("no published page for user")
	ErrNotSignedIn       = errors.New("not signed in")
	ErrPublishInProgress = errors.New("publish already in progress")
	ErrUnknownPlatform   = errors.New("unknown social platform")
	ErrInvalidValue      = errors.New("invalid value")
)

// QuotaError is returned when an insert would exceed the plan's block quota.
// UpgradeURL is where the editor sends the user after the notice.
type QuotaError struct {
	Plan       PlanTier
	Limit      int
	UpgradeURL string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("plan %s allows at most %d blocks", e.Plan, e.Limit)
}

func (e *QuotaError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
