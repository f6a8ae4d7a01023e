package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectivePlan(t *testing.T) {
	now := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	assert.Equal(t, PlanTrueLove, effectivePlan(PlanTrueLove, &later, now).Type)
	assert.Equal(t, PlanFree, effectivePlan(PlanTrueLove, &earlier, now).Type)
	assert.Equal(t, PlanFree, effectivePlan(PlanTrueLove, &now, now).Type)
	assert.Equal(t, PlanFirstCrush, effectivePlan(PlanFirstCrush, nil, now).Type)
	assert.Equal(t, PlanFree, effectivePlan("gold", nil, now).Type)
}

func TestLookupPlan(t *testing.T) {
	p, ok := LookupPlan(PlanForeverValentine)
	assert.True(t, ok)
	assert.Equal(t, Unlimited, p.MaxTemplates)

	p, _ = LookupPlan(PlanFree)
	assert.Zero(t, p.MaxTemplates)

	_, ok = LookupPlan("gold")
	assert.False(t, ok)
}
