// Package plan holds the subscription catalog and the usage limits
// enforced around uploads and transcription.
package plan

import (
	"fmt"
	"time"
)

// Plan describes one subscription tier. A nil limit means unlimited.
type Plan struct {
	ID                 string
	Name               string
	PriceCents         int
	MinuteLimitDaily   *int
	MinuteLimitMonthly *int
	ProjectLimit       *int
	StorageDays        *int
}

func limit(n int) *int { return &n }

// Catalog lists the available tiers.
var Catalog = []Plan{
	{
		ID:               "free",
		Name:             "Free",
		PriceCents:       0,
		MinuteLimitDaily: limit(3),
		ProjectLimit:     limit(1),
		StorageDays:      limit(0), // not saved in the cloud
	},
	{
		ID:               "starter",
		Name:             "Starter",
		PriceCents:       1999,
		MinuteLimitDaily: limit(20),
		ProjectLimit:     limit(5),
		StorageDays:      limit(5),
	},
	{
		ID:                 "plus",
		Name:               "Plus",
		PriceCents:         6999,
		MinuteLimitMonthly: limit(1500),
		ProjectLimit:       limit(30),
		StorageDays:        limit(15),
	},
	{
		ID:                 "pro",
		Name:               "Pro",
		PriceCents:         19900,
		MinuteLimitMonthly: limit(5000),
		ProjectLimit:       limit(100),
		StorageDays:        limit(90),
	},
}

// ByID returns the plan for id, falling back to the free tier.
func ByID(id string) Plan {
	for _, p := range Catalog {
		if p.ID == id {
			return p
		}
	}
	return Catalog[0]
}

// Expiry computes when a project's audio expires under this plan. The
// zero time means the project never expires (or is never stored).
func (p Plan) Expiry(createdAt time.Time) time.Time {
	if p.StorageDays == nil || *p.StorageDays <= 0 {
		return time.Time{}
	}
	return createdAt.Add(time.Duration(*p.StorageDays) * 24 * time.Hour)
}

// CheckProjectCount refuses project creation over the plan limit.
func (p Plan) CheckProjectCount(existing int) error {
	if p.ProjectLimit != nil && existing >= *p.ProjectLimit {
		return fmt.Errorf("plan %s allows at most %d projects", p.Name, *p.ProjectLimit)
	}
	return nil
}

// CheckMinutes refuses a transcription that would exceed the plan's
// daily or monthly minute budget.
func (p Plan) CheckMinutes(usedToday, usedThisMonth, requested int) error {
	if p.MinuteLimitDaily != nil && usedToday+requested > *p.MinuteLimitDaily {
		return fmt.Errorf("plan %s allows %d transcription minutes per day", p.Name, *p.MinuteLimitDaily)
	}
	if p.MinuteLimitMonthly != nil && usedThisMonth+requested > *p.MinuteLimitMonthly {
		return fmt.Errorf("plan %s allows %d transcription minutes per month", p.Name, *p.MinuteLimitMonthly)
	}
	return nil
}
