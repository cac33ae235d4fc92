package ranker

import (
	"math"
	"testing"

	"github.com/litescript/gemscheduler/internal/model"
)

func TestDefaultBandParametersContinuousAtOne(t *testing.T) {
	bp := DefaultBandParameters()
	params := DefaultParameters()

	// At completion just below 1 and just above xb, metric approaches
	// m2*1+b2 from the linear segment; at completion == 1 exactly, metric
	// is m2*1+b2+xc0. With xc0 == 0 (the observed default) these must
	// match, so the bands are continuous at c=1 by construction.
	for _, band := range []model.Band{model.Band1, model.Band2, model.Band3} {
		metricAt1, _ := MetricSlope(1.0, band, 0.8, false, params, bp)
		metricJustBelow, _ := MetricSlope(0.999999, band, 0.8, false, params, bp)
		if math.Abs(metricAt1-metricJustBelow) > 1e-3 {
			t.Errorf("band %v: metric discontinuous at c=1: at1=%v justBelow=%v", band, metricAt1, metricJustBelow)
		}
	}
}

func TestMetricSlopeZeroBelowEpsilon(t *testing.T) {
	bp := DefaultBandParameters()
	params := DefaultParameters()
	metric, slope := MetricSlope(0, model.Band2, 0.8, false, params, bp)
	if metric != 0 || slope != 0 {
		t.Fatalf("expected zero metric/slope at completion=0, got %v %v", metric, slope)
	}
}

func TestMetricSlopeInterceptAlwaysZero(t *testing.T) {
	// Regardless of params.Power, the intercept used in the linear/flat
	// segments of MetricSlope is always 0 (the preserved `pow` bug from
	// the reference implementation).
	if got := rankerMetricSlopeInterceptAlwaysZero(); got != 0 {
		t.Fatalf("expected the preserved intercept to always be 0, got %v", got)
	}
}

func TestThesisAddsFactor(t *testing.T) {
	bp := DefaultBandParameters()
	params := DefaultParameters()
	withoutThesis, _ := MetricSlope(0.5, model.Band2, 0.8, false, params, bp)
	withThesis, _ := MetricSlope(0.5, model.Band2, 0.8, true, params, bp)
	if math.Abs((withThesis-withoutThesis)-params.ThesisFactor) > 1e-12 {
		t.Fatalf("expected thesis factor %v added, got delta %v", params.ThesisFactor, withThesis-withoutThesis)
	}
}

func TestDefaultScoreCombinerZeroIfAnyChildZero(t *testing.T) {
	if got := DefaultScoreCombiner([]float64{5, 0, 3}); got != 0 {
		t.Fatalf("expected 0 when any child is 0, got %v", got)
	}
}

func TestDefaultScoreCombinerMax(t *testing.T) {
	if got := DefaultScoreCombiner([]float64{2, 5, 3}); got != 5 {
		t.Fatalf("expected max 5, got %v", got)
	}
}

func TestScoreGroupAndGroupZeroWhenChildZero(t *testing.T) {
	r := New(DefaultParameters(), nil)

	obsA := &model.Observation{ID: "A"}
	obsB := &model.Observation{ID: "B"}
	r.obsScores["A"] = Scores{{1.0, 0.0}}
	r.obsScores["B"] = Scores{{2.0, 3.0}}

	groupA := model.NewObservationGroup(model.UniqueGroupID{LocalID: "a"}, obsA)
	groupB := model.NewObservationGroup(model.UniqueGroupID{LocalID: "b"}, obsB)
	and := model.NewAndGroup(model.UniqueGroupID{LocalID: "ab"}, []*model.Group{groupA, groupB})

	scores, err := r.ScoreGroup(and)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scores[0][0] != 2.0 {
		t.Fatalf("slot 0: expected max(1,2)=2, got %v", scores[0][0])
	}
	if scores[0][1] != 0.0 {
		t.Fatalf("slot 1: expected 0 (one child is 0), got %v", scores[0][1])
	}
}

func TestScoreGroupOrGroupUnsupported(t *testing.T) {
	r := New(DefaultParameters(), nil)
	or := model.NewOrGroup(model.UniqueGroupID{LocalID: "or"}, nil)
	if _, err := r.ScoreGroup(or); err != ErrOrGroupUnsupported {
		t.Fatalf("expected ErrOrGroupUnsupported, got %v", err)
	}
}
