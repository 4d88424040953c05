package services

import (
	"testing"

	"github.com/velolift/VeloLiftBack/internal/models"
)

func rep(depth, velocity *float64) models.Rep {
	return models.Rep{Depth: depth, Velocity: velocity}
}

func TestRecomputeAggregatesAveragesAndExtremes(t *testing.T) {
	reps := []models.Rep{
		rep(ptr(5), ptr(10)),
		rep(nil, ptr(20)),
	}

	agg := RecomputeAggregates(reps)

	if agg.RepsCompleted != 2 {
		t.Fatalf("expected 2 reps completed, got %d", agg.RepsCompleted)
	}
	if agg.AvgVelocity == nil || *agg.AvgVelocity != 15 {
		t.Fatalf("expected avg velocity 15, got %v", agg.AvgVelocity)
	}
	if agg.MinVelocity == nil || *agg.MinVelocity != 10 {
		t.Fatalf("expected min velocity 10, got %v", agg.MinVelocity)
	}
	if agg.MaxVelocity == nil || *agg.MaxVelocity != 20 {
		t.Fatalf("expected max velocity 20, got %v", agg.MaxVelocity)
	}
	if agg.AvgDepth == nil || *agg.AvgDepth != 5 {
		t.Fatalf("expected avg depth 5 from the single reading, got %v", agg.AvgDepth)
	}
}

func TestRecomputeAggregatesEmptySetIsAllNil(t *testing.T) {
	agg := RecomputeAggregates(nil)

	if agg.RepsCompleted != 0 {
		t.Fatalf("expected 0 reps completed, got %d", agg.RepsCompleted)
	}
	if agg.AvgDepth != nil || agg.AvgVelocity != nil || agg.MinVelocity != nil ||
		agg.MaxVelocity != nil || agg.FatigueDrop != nil {
		t.Fatalf("expected all aggregate fields nil, got %+v", agg)
	}
}

func TestRecomputeAggregatesZeroReadingIsASample(t *testing.T) {
	agg := RecomputeAggregates([]models.Rep{rep(ptr(0), ptr(0))})

	if agg.AvgDepth == nil || *agg.AvgDepth != 0 {
		t.Fatalf("expected avg depth 0, got %v", agg.AvgDepth)
	}
	if agg.AvgVelocity == nil || *agg.AvgVelocity != 0 {
		t.Fatalf("expected avg velocity 0, got %v", agg.AvgVelocity)
	}
	if agg.MinVelocity == nil || *agg.MinVelocity != 0 {
		t.Fatalf("expected min velocity 0, got %v", agg.MinVelocity)
	}
}

func TestRecomputeAggregatesSkipsMissingReadings(t *testing.T) {
	reps := []models.Rep{
		rep(nil, nil),
		rep(ptr(12), nil),
		rep(nil, nil),
	}

	agg := RecomputeAggregates(reps)

	if agg.RepsCompleted != 3 {
		t.Fatalf("expected 3 reps completed, got %d", agg.RepsCompleted)
	}
	if agg.AvgDepth == nil || *agg.AvgDepth != 12 {
		t.Fatalf("expected avg depth 12, got %v", agg.AvgDepth)
	}
	if agg.AvgVelocity != nil || agg.FatigueDrop != nil {
		t.Fatalf("expected nil velocity aggregates, got %+v", agg)
	}
}

func TestFatigueDropDeclineFromFirstReading(t *testing.T) {
	reps := []models.Rep{
		rep(nil, ptr(10)),
		rep(nil, ptr(9)),
		rep(nil, ptr(6)),
		rep(nil, ptr(8)),
	}

	drop := fatigueDrop(reps)
	if drop == nil || *drop != 40 {
		t.Fatalf("expected 40%% drop, got %v", drop)
	}
}

func TestFatigueDropNeedsTwoReadings(t *testing.T) {
	if drop := fatigueDrop([]models.Rep{rep(nil, ptr(10))}); drop != nil {
		t.Fatalf("expected nil drop with one reading, got %v", drop)
	}
	if drop := fatigueDrop([]models.Rep{rep(nil, nil), rep(nil, nil)}); drop != nil {
		t.Fatalf("expected nil drop with no readings, got %v", drop)
	}
}

func TestFatigueDropZeroBaseline(t *testing.T) {
	reps := []models.Rep{
		rep(nil, ptr(0)),
		rep(nil, ptr(5)),
	}
	if drop := fatigueDrop(reps); drop != nil {
		t.Fatalf("expected nil drop with zero baseline, got %v", drop)
	}
}

func TestFatigueDropGetsFasterIsNegative(t *testing.T) {
	reps := []models.Rep{
		rep(nil, ptr(10)),
		rep(nil, ptr(12)),
	}
	drop := fatigueDrop(reps)
	if drop == nil || *drop != -20 {
		t.Fatalf("expected -20%% drop when the lifter speeds up, got %v", drop)
	}
}

func TestSpeedScore(t *testing.T) {
	if got := SpeedScore(ptr(15), ptr(0.5)); got == nil || *got != 30 {
		t.Fatalf("expected speed score 30, got %v", got)
	}
	if got := SpeedScore(nil, ptr(0.5)); got != nil {
		t.Fatalf("expected nil without depth, got %v", got)
	}
	if got := SpeedScore(ptr(15), nil); got != nil {
		t.Fatalf("expected nil without time, got %v", got)
	}
	if got := SpeedScore(ptr(15), ptr(0)); got != nil {
		t.Fatalf("expected nil with zero time, got %v", got)
	}
}

func TestClassifyDepthBands(t *testing.T) {
	cases := []struct {
		depth float64
		want  string
	}{
		{16, "deep"},
		{15, "deep"},
		{13.5, "parallel"},
		{12, "parallel"},
		{10, "high"},
		{8, "high"},
		{7.9, "shallow"},
		{0, "shallow"},
	}
	for _, tc := range cases {
		got := ClassifyDepth(ptr(tc.depth))
		if got == nil || *got != tc.want {
			t.Fatalf("depth %.1f: expected %q, got %v", tc.depth, tc.want, got)
		}
	}
	if got := ClassifyDepth(nil); got != nil {
		t.Fatalf("expected nil classification for nil depth, got %v", got)
	}
}
