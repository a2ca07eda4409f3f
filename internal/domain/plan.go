package domain

import "strings"

type PlanTier string

const (
	PlanFree    PlanTier = "free"
	PlanBasic   PlanTier = "basic"
	PlanPremium PlanTier = "premium"
)

// Unlimited is the quota value meaning no block limit.
const Unlimited = -1

type Feature string

const (
	FeatureTracking      Feature = "tracking"
	FeatureViewCount     Feature = "viewCount"
	FeatureNoAttribution Feature = "noAttribution"
	FeaturePublish       Feature = "publish"
	FeatureExport        Feature = "export"
)

// ParsePlan maps a stored plan string to a tier. Anything unknown is free.
func ParsePlan(s string) PlanTier {
	switch PlanTier(strings.ToLower(strings.TrimSpace(s))) {
	case PlanBasic:
		return PlanBasic
	case PlanPremium:
		return PlanPremium
	default:
		return PlanFree
	}
}

// BlockQuota returns the maximum number of blocks, or Unlimited.
func (p PlanTier) BlockQuota() int {
	switch p {
	case PlanPremium:
		return Unlimited
	case PlanBasic:
		return 16
	default:
		return 5
	}
}

func (p PlanTier) Allows(f Feature) bool {
	switch f {
	case FeaturePublish, FeatureExport:
		return true
	case FeatureTracking, FeatureViewCount, FeatureNoAttribution:
		return p == PlanPremium
	}
	return false
}
