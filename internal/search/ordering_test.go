package search

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		samples Samples
		want    Ordering
		move    Move
	}{
		{"mid<left<right", Samples{Left: 10, Mid: 5, Right: 20}, OrderingMidLeftRight, MoveUp},
		{"left<mid<right", Samples{Left: 5, Mid: 10, Right: 20}, OrderingLeftMidRight, MoveUp},
		{"mid<right<left", Samples{Left: 20, Mid: 5, Right: 10}, OrderingMidRightLeft, MoveDown},
		{"right<mid<left", Samples{Left: 20, Mid: 10, Right: 5}, OrderingRightMidLeft, MoveDown},
		{"left<right<mid", Samples{Left: 5, Mid: 20, Right: 10}, OrderingLeftRightMid, MoveInward},
		{"right<left<mid", Samples{Left: 10, Mid: 20, Right: 5}, OrderingRightLeftMid, MoveInward},
		{"all equal", Samples{Left: 7, Mid: 7, Right: 7}, OrderingUnordered, MoveInward},
		{"mid ties right", Samples{Left: 91, Mid: 99, Right: 99}, OrderingUnordered, MoveInward},
		{"left ties right", Samples{Left: 3, Mid: 1, Right: 3}, OrderingUnordered, MoveInward},
		{"NaN", Samples{Left: math.NaN(), Mid: 1, Right: 2}, OrderingUnordered, MoveInward},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.samples)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.move, got.Move())
		})
	}
}

func TestNarrow(t *testing.T) {
	w := Window{Low: 1, High: 1000}
	p := w.Probes()
	assert.Equal(t, Probes{Left: 250, Mid: 500, Right: 750}, p)

	tests := []struct {
		name    string
		samples Samples
		want    Window
	}{
		{"peak above mid", Samples{Left: 10, Mid: 5, Right: 20}, Window{Low: 501, High: 1000}},
		{"rising", Samples{Left: 5, Mid: 10, Right: 20}, Window{Low: 501, High: 1000}},
		{"peak below mid", Samples{Left: 20, Mid: 5, Right: 10}, Window{Low: 1, High: 499}},
		{"falling", Samples{Left: 20, Mid: 10, Right: 5}, Window{Low: 1, High: 499}},
		{"peak near mid, right heavier", Samples{Left: 5, Mid: 20, Right: 10}, Window{Low: 251, High: 749}},
		{"peak near mid, left heavier", Samples{Left: 10, Mid: 20, Right: 5}, Window{Low: 251, High: 749}},
		{"tie falls through", Samples{Left: 1, Mid: 1, Right: 1}, Window{Low: 251, High: 749}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Narrow(w, p, tt.samples)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWindowProbes(t *testing.T) {
	tests := []struct {
		window Window
		want   Probes
	}{
		{Window{Low: 1, High: 8}, Probes{Left: 2, Mid: 4, Right: 6}},
		{Window{Low: 3, High: 5}, Probes{Left: 3, Mid: 4, Right: 4}},
		{Window{Low: 1, High: 2}, Probes{Left: 1, Mid: 1, Right: 1}},
		{Window{Low: 10, High: 10}, Probes{Left: 10, Mid: 10, Right: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.window.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.window.Probes())
		})
	}
}

func TestOrderingString(t *testing.T) {
	assert.Equal(t, "unordered", OrderingUnordered.String())
	assert.Equal(t, "left<right<mid", OrderingLeftRightMid.String())
	assert.Equal(t, "inward", MoveInward.String())
	assert.Equal(t, "up", MoveUp.String())
}
