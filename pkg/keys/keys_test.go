package keys

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestBuildQWERTY(t *testing.T) {
	nearby := Build(QWERTY())
	approx := cmpopts.EquateApprox(0, 0.01)

	testCases := []struct {
		description string
		a, b        rune
		want        float64
	}{
		{"same row neighbours", 'o', 'p', 0.70},
		{"row below", 'o', 'l', 0.25},
		{"two apart", 'o', 'u', 0.175},
		{"too far", 'o', 'y', 0},
		{"other side", 'q', 'p', 0},
		{"self", 'a', 'a', 0},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, nearby.Weight(tc.a, tc.b), approx); diff != "" {
				t.Errorf("Weight(%q, %q) mismatch (-want +got):\n%s", tc.a, tc.b, diff)
			}
		})
	}

	if diff := cmp.Diff([]rune{'w', 'a', 'e'}, nearby.Neighbors('q')); diff != "" {
		t.Errorf("Neighbors(q) mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSkipsSpecialKeys(t *testing.T) {
	nearby := Build(QWERTY())
	for _, code := range []rune{CodeSpace, CodeReturn, CodeBackspace, CodeShift} {
		if nearby.Has(code) {
			t.Errorf("special key %d has a nearby entry", code)
		}
		for key, near := range nearby {
			if _, ok := near[code]; ok {
				t.Errorf("special key %d listed near %q", code, key)
			}
		}
	}
}

func TestBuildLowercasesCodes(t *testing.T) {
	layout := Layout{Keys: []Key{
		{Code: 'A', X: 0, Y: 0, Width: 30, Height: 40},
		{Code: 'B', X: 30, Y: 0, Width: 30, Height: 40},
	}}
	nearby := Build(layout)
	if !nearby.Has('a') || nearby.Weight('a', 'b') == 0 {
		t.Errorf("Build did not lowercase key codes: %v", nearby)
	}
	if layout.Keys[0].Code != 'A' {
		t.Errorf("Build modified its input layout")
	}
}

func TestBuildOverlappingKeys(t *testing.T) {
	layout := Layout{Keys: []Key{
		{Code: 'a', X: 0, Y: 0, Width: 30, Height: 40},
		{Code: 'b', X: 5, Y: 0, Width: 30, Height: 40},
	}}
	nearby := Build(layout)
	if w := nearby.Weight('a', 'b'); w != 0 {
		t.Errorf("overlapping keys weight = %v, want 0", w)
	}
	if !nearby.Has('a') {
		t.Errorf("key without neighbours missing from map")
	}
}

func TestModelMemoizes(t *testing.T) {
	m := NewModel()

	first, changed, err := m.Update(QWERTY())
	if err != nil || !changed {
		t.Fatalf("first Update() = changed %v, err %v", changed, err)
	}

	again, changed, err := m.Update(QWERTY())
	if err != nil || changed {
		t.Errorf("Update with the same layout reported changed=%v err=%v", changed, err)
	}
	if diff := cmp.Diff(first, again); diff != "" {
		t.Errorf("memoized map mismatch (-first +again):\n%s", diff)
	}

	if _, changed, _ := m.Update(AZERTY()); !changed {
		t.Errorf("Update with a different layout reported unchanged")
	}
	if m.Current().Weight('a', 'z') == 0 {
		t.Errorf("Current() is not the AZERTY map")
	}

	m.Reset()
	if m.Current() != nil {
		t.Errorf("Current() after Reset = %v", m.Current())
	}
	if _, changed, _ := m.Update(AZERTY()); !changed {
		t.Errorf("Update after Reset reported unchanged")
	}
}

func TestNamed(t *testing.T) {
	if _, ok := Named("qwerty"); !ok {
		t.Errorf("Named(qwerty) not found")
	}
	if _, ok := Named("dvorak"); ok {
		t.Errorf("Named(dvorak) found")
	}
}

func TestCloneIsDeep(t *testing.T) {
	m := Build(QWERTY())
	c := m.Clone()
	c['q']['w'] = 0.01
	if m.Weight('q', 'w') == 0.01 {
		t.Errorf("Clone shares inner maps")
	}
	if NearbyMap(nil).Clone() != nil {
		t.Errorf("Clone of nil map is not nil")
	}
}
