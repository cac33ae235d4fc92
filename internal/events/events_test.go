package events

import (
	"testing"
	"time"

	"github.com/litescript/gemscheduler/internal/model"
)

func TestQueueOrdersByStartThenKind(t *testing.T) {
	site := model.Site{Name: "CP"}
	t0 := time.Date(2018, 10, 1, 23, 0, 0, 0, time.UTC)

	var q Queue
	q.Push(NewMorningTwilight(site, t0.Add(9*time.Hour)))
	q.Push(NewFault(site, t0.Add(4*time.Hour+30*time.Minute), nil, "instrument fault"))
	q.Push(NewEveningTwilight(site, t0))
	q.Push(NewResumeNight(site, t0.Add(5*time.Hour)))

	var order []Kind
	for {
		e, ok := q.Pop()
		if !ok {
			break
		}
		order = append(order, e.Kind)
	}

	want := []Kind{KindEveningTwilight, KindFault, KindResumeNight, KindMorningTwilight}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("position %d: got %v, want %v (full: %v)", i, order[i], want[i], order)
		}
	}
}

func TestTieBreakOrdersByKind(t *testing.T) {
	site := model.Site{Name: "CP"}
	same := time.Date(2018, 10, 1, 23, 0, 0, 0, time.UTC)

	weather := NewWeatherChange(site, same, model.Conditions{})
	resume := NewResumeNight(site, same)

	if !Less(resume, weather) {
		t.Fatal("expected ResumeNight to sort before WeatherChange at equal timestamps")
	}
}

func TestToTimeslotIdxCeilsUp(t *testing.T) {
	site := model.Site{Name: "CP"}
	twi := time.Date(2018, 10, 1, 23, 0, 0, 0, time.UTC)
	fault := NewFault(site, twi.Add(270*time.Minute+30*time.Second), nil, "fault")

	idx := fault.ToTimeslotIdx(twi, time.Minute)
	if idx != 271 {
		t.Fatalf("expected ceil(270.5) = 271, got %d", idx)
	}
}

func TestTimeLossRequiresEnd(t *testing.T) {
	site := model.Site{Name: "CP"}
	fault := NewFault(site, time.Now(), nil, "fault")

	defer func() {
		if recover() == nil {
			t.Fatal("expected TimeLoss to panic before End is set")
		}
	}()
	_ = fault.TimeLoss()
}
