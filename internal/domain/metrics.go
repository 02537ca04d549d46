package domain

// EarnedValue holds the earned-value figures derived from a store.
type EarnedValue struct {
	PlannedValue         float64 `json:"planned_value"`
	ActualCost           float64 `json:"actual_cost"`
	CompletionPercentage float64 `json:"completion_percentage"`
	EarnedValue          float64 `json:"earned_value"`
	SPI                  float64 `json:"spi"`
	SV                   float64 `json:"sv"`
	CPI                  float64 `json:"cpi"`
	CV                   float64 `json:"cv"`
	LeafCount            int     `json:"leaf_count"`
	DoneCount            int     `json:"done_count"`
}

// PlannedValue returns the root's rolled-up planned value.
func (t *Tasks) PlannedValue() float64 {
	return t.root().PlannedValue
}

// ActualCost returns the root's rolled-up actual cost.
func (t *Tasks) ActualCost() float64 {
	return t.root().ActualCost
}

// CompletionPercentage is the share of leaves that are done, as a fraction.
// A store without leaves reports 0.
func (t *Tasks) CompletionPercentage() float64 {
	leaves, done := t.leafCounts()
	if leaves == 0 {
		return 0
	}
	return float64(done) / float64(leaves)
}

// EarnedValue is the planned value scaled by completion.
func (t *Tasks) EarnedValue() float64 {
	return t.PlannedValue() * t.CompletionPercentage()
}

// SPI is earned value over planned value, 0 when undefined.
func (t *Tasks) SPI() float64 {
	return ratio(t.EarnedValue(), t.PlannedValue())
}

// SV is earned value minus planned value.
func (t *Tasks) SV() float64 {
	return t.EarnedValue() - t.PlannedValue()
}

// CPI is earned value over actual cost, 0 when undefined.
func (t *Tasks) CPI() float64 {
	return ratio(t.EarnedValue(), t.ActualCost())
}

// CV is earned value minus actual cost.
func (t *Tasks) CV() float64 {
	return t.EarnedValue() - t.ActualCost()
}

// Metrics computes every figure in one pass over the store.
func (t *Tasks) Metrics() EarnedValue {
	leaves, done := t.leafCounts()
	pv := t.PlannedValue()
	ac := t.ActualCost()
	completion := 0.0
	if leaves > 0 {
		completion = float64(done) / float64(leaves)
	}
	ev := pv * completion
	return EarnedValue{
		PlannedValue:         pv,
		ActualCost:           ac,
		CompletionPercentage: completion,
		EarnedValue:          ev,
		SPI:                  ratio(ev, pv),
		SV:                   ev - pv,
		CPI:                  ratio(ev, ac),
		CV:                   ev - ac,
		LeafCount:            leaves,
		DoneCount:            done,
	}
}

// leafCounts counts all leaves and the done ones. An empty store has none.
func (t *Tasks) leafCounts() (leaves, done int) {
	for _, task := range t.store {
		if !task.isWorkLeaf() {
			continue
		}
		leaves++
		if task.Status == StatusDone {
			done++
		}
	}
	return leaves, done
}

// ratio divides and substitutes 0 for any non-finite result.
func ratio(num, den float64) float64 {
	res := num / den
	if !isFinite(res) {
		return 0
	}
	return res
}
