package engine

import (
	"sort"
	"testing"
)

func sortCoordinates(cs []Coordinate) []Coordinate {
	out := append([]Coordinate(nil), cs...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

func equalCoordinates(a, b []Coordinate) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCoordinate_Neighbors(t *testing.T) {
	tests := []struct {
		point    Coordinate
		expected []Coordinate
	}{
		{Coordinate{0, 0}, []Coordinate{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}},
		{Coordinate{1, 1}, []Coordinate{{1, 2}, {1, 0}, {2, 1}, {0, 1}}},
		{Coordinate{-1, -1}, []Coordinate{{-1, 0}, {-1, -2}, {0, -1}, {-2, -1}}},
	}

	for _, test := range tests {
		t.Run(test.point.String(), func(t *testing.T) {
			got := sortCoordinates(test.point.Neighbors())
			want := sortCoordinates(test.expected)
			if !equalCoordinates(got, want) {
				t.Errorf("Neighbors(%v): expected %v, got %v", test.point, want, got)
			}
		})
	}
}

func TestCoordinate_NeighborsCanonicalOrder(t *testing.T) {
	got := Coordinate{3, 7}.Neighbors()
	want := []Coordinate{{3, 8}, {3, 6}, {4, 7}, {2, 7}}
	if !equalCoordinates(got, want) {
		t.Errorf("Expected north, south, east, west order %v, got %v", want, got)
	}
}

func TestCoordinate_NeighborsCountAndSymmetry(t *testing.T) {
	for x := -3; x <= 3; x++ {
		for y := -3; y <= 3; y++ {
			p := Coordinate{x, y}
			neighbors := p.Neighbors()

			if len(neighbors) != 4 {
				t.Fatalf("%v: expected 4 neighbors, got %d", p, len(neighbors))
			}

			seen := make(map[Coordinate]bool)
			for _, q := range neighbors {
				if seen[q] {
					t.Errorf("%v: duplicate neighbor %v", p, q)
				}
				seen[q] = true

				back := false
				for _, r := range q.Neighbors() {
					if r == p {
						back = true
					}
				}
				if !back {
					t.Errorf("%v is a neighbor of %v but not the reverse", q, p)
				}
			}
		}
	}
}

func TestCoordinate_Equals(t *testing.T) {
	tests := []struct {
		a, b     Coordinate
		expected bool
	}{
		{Coordinate{0, 0}, Coordinate{0, 0}, true},
		{Coordinate{1, 1}, Coordinate{1, 2}, false},
		{Coordinate{-1, -1}, Coordinate{-1, -1}, true},
		{Coordinate{1, 0}, Coordinate{0, 1}, false},
		{Coordinate{0, 0}, Coordinate{0, -1}, false},
	}

	for _, test := range tests {
		if got := test.a.Equals(test.b); got != test.expected {
			t.Errorf("%v.Equals(%v): expected %v, got %v", test.a, test.b, test.expected, got)
		}
		if got := test.a == test.b; got != test.expected {
			t.Errorf("%v == %v: expected %v, got %v", test.a, test.b, test.expected, got)
		}
	}
}

func TestCoordinate_IsAdjacent(t *testing.T) {
	origin := Coordinate{2, 2}
	tests := []struct {
		other    Coordinate
		expected bool
	}{
		{Coordinate{2, 3}, true},
		{Coordinate{1, 2}, true},
		{Coordinate{3, 3}, false},
		{Coordinate{2, 2}, false},
		{Coordinate{2, 4}, false},
	}

	for _, test := range tests {
		if got := origin.IsAdjacent(test.other); got != test.expected {
			t.Errorf("IsAdjacent(%v): expected %v, got %v", test.other, test.expected, got)
		}
	}
}

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		input    string
		expected Coordinate
		wantErr  bool
	}{
		{"0,0", Coordinate{0, 0}, false},
		{" 3, 4 ", Coordinate{3, 4}, false},
		{"(2,-1)", Coordinate{2, -1}, false},
		{"1", Coordinate{}, true},
		{"a,b", Coordinate{}, true},
		{"1,2,3", Coordinate{}, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got, err := ParseCoordinate(test.input)
			if test.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", test.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != test.expected {
				t.Errorf("Expected %v, got %v", test.expected, got)
			}
		})
	}
}
