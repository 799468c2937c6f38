package services

import (
	"math"
	"testing"
)

func TestReverseScore(t *testing.T) {
	cases := []struct {
		raw, points, want int
	}{
		{1, 5, 5},
		{2, 5, 4},
		{3, 5, 3},
		{5, 5, 1},
		{0, 5, 5},
		{6, 5, 1},
		{1, 7, 7},
		{4, 1, 4},
	}
	for _, c := range cases {
		if got := ReverseScore(c.raw, c.points); got != c.want {
			t.Fatalf("ReverseScore(%d,%d)=%d, want %d", c.raw, c.points, got, c.want)
		}
	}
}

func TestAptitudeScore(t *testing.T) {
	cases := []struct {
		values []int
		want   float64
	}{
		{[]int{1, 1}, 0},
		{[]int{5, 5, 5}, 100},
		{[]int{3}, 50},
		{[]int{4, 5}, 87.5},
		{nil, 0},
	}
	for _, c := range cases {
		if got := AptitudeScore(c.values, 5); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("AptitudeScore(%v)=%f, want %f", c.values, got, c.want)
		}
	}
}

func TestCronbachAlpha(t *testing.T) {
	perfect := [][]float64{{1, 1, 1}, {2, 2, 2}, {3, 3, 3}, {4, 4, 4}}
	if got := CronbachAlpha(perfect); math.Abs(got-1) > 1e-3 {
		t.Fatalf("alpha expected ~1.0, got %f", got)
	}
	noisy := [][]float64{{1, 2, 3}, {2, 1, 4}, {3, 0, 5}, {4, -1, 6}}
	if got := CronbachAlpha(noisy); got < 0 || got > 1 {
		t.Fatalf("alpha out of bounds [0,1]: %f", got)
	}
	if got := CronbachAlpha([][]float64{{1, 2}, {3}}); got != 0 {
		t.Fatalf("ragged input should yield 0, got %f", got)
	}
	if got := CronbachAlpha(nil); got != 0 {
		t.Fatalf("empty input should yield 0, got %f", got)
	}
}
