package cancellation

import "strings"

// Policy names the guest-facing refund rule set attached to a listing.
type Policy string

const (
	PolicyFlexible      Policy = "flexible"
	PolicyModerate      Policy = "moderate"
	PolicyStrict        Policy = "strict"
	PolicyNonRefundable Policy = "non_refundable"
)

// Terms holds the thresholds and percentages of one policy.
type Terms struct {
	Policy Policy
	// FullRefundHours is the minimum lead time for a full refund, in hours.
	FullRefundHours float64
	// FullRefundDays is the minimum lead time for a full refund, in days.
	FullRefundDays int
	// PartialRefundDays is the minimum lead time for FlatRefundPercent.
	PartialRefundDays int
	// NightlyRefundPercent applies to the unconsumed nightly amount; fees are
	// refunded pro rata on top.
	NightlyRefundPercent int64
	// FlatRefundPercent applies to the whole total price.
	FlatRefundPercent int64
	Refundable        bool
}

var policyTable = map[Policy]Terms{
	PolicyFlexible: {
		Policy:               PolicyFlexible,
		FullRefundHours:      24,
		NightlyRefundPercent: 80,
		Refundable:           true,
	},
	PolicyModerate: {
		Policy:               PolicyModerate,
		FullRefundDays:       5,
		NightlyRefundPercent: 50,
		Refundable:           true,
	},
	PolicyStrict: {
		Policy:            PolicyStrict,
		FullRefundDays:    28,
		PartialRefundDays: 7,
		FlatRefundPercent: 50,
		Refundable:        true,
	},
	PolicyNonRefundable: {
		Policy: PolicyNonRefundable,
	},
}

// ParsePolicy normalizes a stored policy name. Unknown or empty names
// resolve to flexible.
func ParsePolicy(raw string) Policy {
	p := Policy(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := policyTable[p]; ok {
		return p
	}
	return PolicyFlexible
}

// Lookup returns the terms for p, falling back to flexible.
func Lookup(p Policy) Terms {
	if t, ok := policyTable[p]; ok {
		return t
	}
	return policyTable[PolicyFlexible]
}

// Policies lists every known policy in a stable order.
func Policies() []Policy {
	return []Policy{PolicyFlexible, PolicyModerate, PolicyStrict, PolicyNonRefundable}
}
