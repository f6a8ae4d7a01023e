// Package quota gates page creation and edits by the owner's plan.
package quota

import (
	"time"
)

// Plan types as stored in wallets.plan_type.
const (
	PlanFree             = "free"
	PlanFirstCrush       = "first-crush"
	PlanTrueLove         = "true-love"
	PlanForeverValentine = "forever-valentine"
)

// Unlimited marks a plan without a template cap.
const Unlimited = -1

// MaxEdits is the per page edit allowance, the same on every plan.
const MaxEdits = 3

// PlanValidity is how long a purchased plan stays active.
const PlanValidity = 365 * 24 * time.Hour

// Plan describes the limits of a tier.
type Plan struct {
	Type         string `json:"type"`
	Name         string `json:"name"`
	MaxTemplates int    `json:"maxTemplates"`
}

var plans = map[string]Plan{
	PlanFree:             {Type: PlanFree, Name: "Free", MaxTemplates: 0},
	PlanFirstCrush:       {Type: PlanFirstCrush, Name: "First Crush", MaxTemplates: 5},
	PlanTrueLove:         {Type: PlanTrueLove, Name: "True Love", MaxTemplates: 10},
	PlanForeverValentine: {Type: PlanForeverValentine, Name: "Forever Valentine", MaxTemplates: Unlimited},
}

// LookupPlan returns the plan for planType.
func LookupPlan(planType string) (Plan, bool) {
	p, ok := plans[planType]
	return p, ok
}

// effectivePlan resolves the plan in force at now. Unknown and expired plans
// fall back to free.
func effectivePlan(planType string, expiresAt *time.Time, now time.Time) Plan {
	p, ok := plans[planType]
	if !ok {
		return plans[PlanFree]
	}
	if p.Type != PlanFree && expiresAt != nil && !now.Before(*expiresAt) {
		return plans[PlanFree]
	}
	return p
}
