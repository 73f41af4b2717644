package service

type emaState struct {
	span  int
	alpha float64
	value float64
	seen  int
}

func newEMA(span int) emaState {
	if span < 1 {
		span = 1
	}
	return emaState{
		span:  span,
		alpha: 2.0 / (float64(span) + 1),
	}
}

// Update seeds with the first price, then ema = price*a + ema*(1-a).
func (e *emaState) Update(price float64) {
	if e.seen == 0 {
		e.value = price
		e.seen = 1
		return
	}
	e.value = e.alpha*price + (1-e.alpha)*e.value
	e.seen++
}

func (e *emaState) Value() float64 { return e.value }

// emaSeries returns the EMA at every point of closes.
func emaSeries(closes []float64, span int) []float64 {
	e := newEMA(span)
	out := make([]float64, len(closes))
	for i, c := range closes {
		e.Update(c)
		out[i] = e.Value()
	}
	return out
}
