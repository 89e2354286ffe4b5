package payments

import (
	"math"
	"time"

	"carelink-service/internal/pkg/constvars"
)

// RefundAmount computes the tiered cancellation refund against the
// appointment start. Doctor-initiated cancellations always refund in
// full; the patient should not pay for the doctor's change of plans.
//
// Patient tiers, measured in hours before the start:
//
//	more than 24h  -> full refund
//	6h to 24h      -> half, rounded up to the nearest whole unit
//	6h or less     -> nothing
func RefundAmount(cancellerRole string, fee float64, start, now time.Time) float64 {
	if cancellerRole == constvars.RoleDoctor {
		return fee
	}

	hours := start.Sub(now).Hours()
	switch {
	case hours > constvars.RefundFullTierHours:
		return fee
	case hours > constvars.RefundHalfTierHours:
		return math.Ceil(fee / 2)
	default:
		return 0
	}
}
