package timewindow

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

var base = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return base.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func TestNew_RejectsInvalid(t *testing.T) {
	if _, err := New(at(10, 0), at(10, 0)); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow for empty window, got %v", err)
	}
	if _, err := New(at(11, 0), at(10, 0)); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow for reversed window, got %v", err)
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b TimeWindow
		want bool
	}{
		{"partial", MustNew(at(9, 0), at(11, 0)), MustNew(at(10, 0), at(12, 0)), true},
		{"contained", MustNew(at(9, 0), at(17, 0)), MustNew(at(10, 0), at(11, 0)), true},
		{"identical", MustNew(at(9, 0), at(11, 0)), MustNew(at(9, 0), at(11, 0)), true},
		{"touching", MustNew(at(9, 0), at(11, 0)), MustNew(at(11, 0), at(13, 0)), false},
		{"disjoint", MustNew(at(9, 0), at(10, 0)), MustNew(at(12, 0), at(13, 0)), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.a, tc.b); got != tc.want {
				t.Errorf("Overlaps(a, b) = %v, want %v", got, tc.want)
			}
			if Overlaps(tc.a, tc.b) != Overlaps(tc.b, tc.a) {
				t.Errorf("Overlaps is not symmetric for %s / %s", tc.a, tc.b)
			}
		})
	}
}

func TestOverlaps_Self(t *testing.T) {
	for i := 1; i < 48; i++ {
		w := MustNew(at(0, 0), at(0, i*30))
		if !w.Overlaps(w) {
			t.Fatalf("window %s should overlap itself", w)
		}
	}
}

func TestContains(t *testing.T) {
	w := MustNew(at(9, 0), at(11, 0))
	if !w.Contains(at(9, 0)) {
		t.Error("start instant should be contained")
	}
	if !w.Contains(at(10, 59)) {
		t.Error("inner instant should be contained")
	}
	if w.Contains(at(11, 0)) {
		t.Error("end instant is exclusive")
	}
	if w.Contains(at(8, 59)) {
		t.Error("instant before start should not be contained")
	}
}

func TestIntersectionAndGap(t *testing.T) {
	a := MustNew(at(9, 0), at(11, 0))
	b := MustNew(at(10, 0), at(12, 0))
	if got := Intersection(a, b); got != time.Hour {
		t.Errorf("Intersection = %v, want 1h", got)
	}
	c := MustNew(at(11, 20), at(12, 0))
	if got := Gap(a, c); got != 20*time.Minute {
		t.Errorf("Gap = %v, want 20m", got)
	}
	if Gap(c, a) != Gap(a, c) {
		t.Error("Gap should be symmetric")
	}
	if Gap(a, b) != 0 {
		t.Error("overlapping windows have no gap")
	}
}

func TestDay(t *testing.T) {
	d := Day(at(15, 30))
	if !d.Start().Equal(base) || d.Duration() != 24*time.Hour {
		t.Errorf("unexpected day window %s", d)
	}
}

func TestJSON(t *testing.T) {
	w := MustNew(at(9, 0), at(11, 0))
	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back TimeWindow
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(w) {
		t.Errorf("got %s, want %s", back, w)
	}

	bad := []byte(`{"start":"2025-03-10T11:00:00Z","end":"2025-03-10T09:00:00Z"}`)
	if err := json.Unmarshal(bad, &back); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
}
