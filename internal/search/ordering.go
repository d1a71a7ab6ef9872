package search

// Ordering names how the three probe samples compare under a strict order.
type Ordering int

const (
	// OrderingUnordered covers ties and anything that is not a strict order,
	// NaN included.
	OrderingUnordered Ordering = iota
	OrderingMidLeftRight
	OrderingLeftMidRight
	OrderingMidRightLeft
	OrderingRightMidLeft
	OrderingLeftRightMid
	OrderingRightLeftMid
)

func (o Ordering) String() string {
	switch o {
	case OrderingMidLeftRight:
		return "mid<left<right"
	case OrderingLeftMidRight:
		return "left<mid<right"
	case OrderingMidRightLeft:
		return "mid<right<left"
	case OrderingRightMidLeft:
		return "right<mid<left"
	case OrderingLeftRightMid:
		return "left<right<mid"
	case OrderingRightLeftMid:
		return "right<left<mid"
	default:
		return "unordered"
	}
}

// Move is how the window is narrowed after an iteration.
type Move int

const (
	// MoveInward keeps only the levels strictly between the left and right probes.
	MoveInward Move = iota
	// MoveUp drops every level up to and including mid.
	MoveUp
	// MoveDown drops every level from mid upwards.
	MoveDown
)

func (m Move) String() string {
	switch m {
	case MoveUp:
		return "up"
	case MoveDown:
		return "down"
	default:
		return "inward"
	}
}

// Classify returns the strict ordering of the samples.
func Classify(s Samples) Ordering {
	l, m, r := s.Left, s.Mid, s.Right
	switch {
	case m < l && l < r:
		return OrderingMidLeftRight
	case l < m && m < r:
		return OrderingLeftMidRight
	case m < r && r < l:
		return OrderingMidRightLeft
	case r < m && m < l:
		return OrderingRightMidLeft
	case l < r && r < m:
		return OrderingLeftRightMid
	case r < l && l < m:
		return OrderingRightLeftMid
	default:
		return OrderingUnordered
	}
}

// Move returns the narrowing step for the ordering.
func (o Ordering) Move() Move {
	switch o {
	case OrderingMidLeftRight, OrderingLeftMidRight:
		return MoveUp
	case OrderingMidRightLeft, OrderingRightMidLeft:
		return MoveDown
	case OrderingLeftRightMid, OrderingRightLeftMid:
		return MoveInward
	default:
		return MoveInward
	}
}

// Apply narrows w according to the move.
func (m Move) Apply(w Window, p Probes) Window {
	switch m {
	case MoveUp:
		w.Low = p.Mid + 1
	case MoveDown:
		w.High = p.Mid - 1
	default:
		w.Low = p.Left + 1
		w.High = p.Right - 1
	}
	return w
}

// Narrow is the pure decision step of one iteration.
func Narrow(w Window, p Probes, s Samples) (Window, Ordering) {
	o := Classify(s)
	return o.Move().Apply(w, p), o
}
