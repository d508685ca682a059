package clock

import (
	"testing"
	"time"
)

func TestSystemIsMonotonic(t *testing.T) {
	c := NewSystem()
	prev := c.Nanos()
	for i := 0; i < 1000; i++ {
		now := c.Nanos()
		if now < prev {
			t.Fatalf("clock went backwards: %d after %d", now, prev)
		}
		prev = now
	}
}

func TestManual(t *testing.T) {
	c := NewManual(100)
	c.Advance(-time.Second)
	if c.Nanos() != 100 {
		t.Errorf("expected negative advance to be ignored, got %d", c.Nanos())
	}
	if got := c.Advance(time.Millisecond); got != 100+int64(time.Millisecond) {
		t.Errorf("unexpected reading %d", got)
	}
	c.Set(50)
	if c.Nanos() != 100+int64(time.Millisecond) {
		t.Errorf("expected Set to never move backwards, got %d", c.Nanos())
	}
}

func TestToMillis(t *testing.T) {
	cases := []struct {
		ns   int64
		want int64
	}{
		{0, 0},
		{-5, 0},
		{1, 1},
		{int64(time.Millisecond), 1},
		{int64(time.Millisecond) + 1, 2},
		{Millis(250), 250},
	}
	for _, c := range cases {
		if got := ToMillis(c.ns); got != c.want {
			t.Errorf("ToMillis(%d): expected %d, got %d", c.ns, c.want, got)
		}
	}
}

func TestConvert(t *testing.T) {
	cases := []struct {
		name   string
		unit   string
		native int64
		want   int64
	}{
		{"native", "native", 1234567891, 1234567891},
		{"second", "second", 1999999999, 1},
		{"millisecond", "millisecond", 1999999999, 1999},
		{"microsecond", "microsecond", 1999999999, 1999999},
		{"negative floors", "second", -1, -1},
		{"perf counter", "perf_counter", 42, 42},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			u, err := ParseUnit(c.unit)
			if err != nil {
				t.Fatal(err)
			}
			if got := u.Convert(c.native); got.Int64() != c.want {
				t.Errorf("expected %d, got %s", c.want, got)
			}
		})
	}

	if _, err := ParseUnit("fortnight"); err == nil {
		t.Error("expected an error for an unknown unit")
	}
	u, err := UnitFromParts(10)
	if err != nil {
		t.Fatal(err)
	}
	if got := u.Convert(int64(time.Second)); got.Int64() != 10 {
		t.Errorf("expected 10 tenths, got %s", got)
	}
	if _, err := UnitFromParts(0); err == nil {
		t.Error("expected an error for zero parts")
	}
}
