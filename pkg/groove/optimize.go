package groove

// Optimizer limits
const (
	MaxOptimizeIterations = 100

	// importantPenalty outweighs any possible sum of proximity costs, so a
	// marker sitting on an important frame is always the first one moved.
	importantPenalty = 1000
)

// markerOptimizer spreads adjustment markers over a frame sequence, keeping
// them off important frames and away from each other.
type markerOptimizer struct {
	important []bool
	markers   []bool
	window    int
}

func newMarkerOptimizer(important, markers []bool, window int) *markerOptimizer {
	return &markerOptimizer{important: important, markers: markers, window: window}
}

// cost of frame i: zero unless it holds a marker. Markers pay for sitting on
// an important frame and for every other marker within the window, closer
// ones costing more.
func (o *markerOptimizer) cost(i int) int {
	if !o.markers[i] {
		return 0
	}
	c := 0
	if o.important[i] {
		c += importantPenalty
	}
	for d := 1; d <= o.window; d++ {
		if i-d >= 0 && o.markers[i-d] {
			c += o.window + 1 - d
		}
		if i+d < len(o.markers) && o.markers[i+d] {
			c += o.window + 1 - d
		}
	}
	return c
}

func (o *markerOptimizer) totalCost() int {
	total := 0
	for i := range o.markers {
		total += o.cost(i)
	}
	return total
}

// tryMove moves the marker at from to to, keeping the move only when the
// marker's cost drops below current.
func (o *markerOptimizer) tryMove(from, to, current int) bool {
	if to < 0 || to >= len(o.markers) || o.markers[to] || o.important[to] {
		return false
	}
	o.markers[from] = false
	o.markers[to] = true
	if o.cost(to) < current {
		return true
	}
	o.markers[to] = false
	o.markers[from] = true
	return false
}

// costliest returns the frame with the highest cost, the lowest index
// winning ties.
func (o *markerOptimizer) costliest() (frame, cost int) {
	frame = -1
	for i := range o.markers {
		if c := o.cost(i); c > cost {
			frame, cost = i, c
		}
	}
	return frame, cost
}

// step tries to move the costliest marker one frame left, then right. It
// reports false when the costliest frame is free or its marker cannot move.
func (o *markerOptimizer) step() bool {
	i, c := o.costliest()
	if c == 0 {
		return false
	}
	return o.tryMove(i, i-1, c) || o.tryMove(i, i+1, c)
}

// run refines the marker placement for at most MaxOptimizeIterations
// iterations and stops early once the highest cost is zero. A stuck
// costliest marker ends the run, since later iterations would retry the
// same move. The returned history holds the total cost before the first
// and after each iteration.
func (o *markerOptimizer) run() []int {
	history := []int{o.totalCost()}

	for iter := 0; iter < MaxOptimizeIterations; iter++ {
		if _, c := o.costliest(); c == 0 {
			break
		}
		moved := o.step()
		history = append(history, o.totalCost())
		if !moved {
			break
		}
	}

	return history
}
