package layers

import "testing"

func TestShouldCollide(t *testing.T) {
	tests := []struct {
		a, b ObjectLayer
		want bool
	}{
		{NonMoving, NonMoving, false},
		{NonMoving, Moving, true},
		{Moving, NonMoving, true},
		{Moving, Moving, true},
		{Moving, NumObjectLayers, false},
		{ObjectLayer(9), Moving, false},
	}

	for _, tt := range tests {
		t.Run(tt.a.String()+"/"+tt.b.String(), func(t *testing.T) {
			if got := ShouldCollide(tt.a, tt.b); got != tt.want {
				t.Errorf("ShouldCollide(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestShouldCollideSymmetric(t *testing.T) {
	for a := ObjectLayer(0); a < NumObjectLayers; a++ {
		for b := ObjectLayer(0); b < NumObjectLayers; b++ {
			if ShouldCollide(a, b) != ShouldCollide(b, a) {
				t.Errorf("policy not symmetric for %v, %v", a, b)
			}
		}
	}
}

func TestBroadPhase(t *testing.T) {
	if BroadPhaseLayerOf(NonMoving) != BroadPhaseNonMoving {
		t.Error("NON_MOVING should map to the non-moving tree")
	}
	if BroadPhaseLayerOf(Moving) != BroadPhaseMoving {
		t.Error("MOVING should map to the moving tree")
	}
	if BroadPhaseLayerOf(ObjectLayer(7)) != NumBroadPhaseLayers {
		t.Error("unknown layer should map out of range")
	}

	if ShouldCollideBroadPhase(NonMoving, BroadPhaseNonMoving) {
		t.Error("static objects must not query the static tree")
	}
	if !ShouldCollideBroadPhase(NonMoving, BroadPhaseMoving) {
		t.Error("static objects must query the moving tree")
	}
	if !ShouldCollideBroadPhase(Moving, BroadPhaseNonMoving) || !ShouldCollideBroadPhase(Moving, BroadPhaseMoving) {
		t.Error("moving objects must query every tree")
	}
}

func TestTableMatchesFunctions(t *testing.T) {
	tbl := NewTable()
	for a := ObjectLayer(0); a < NumObjectLayers; a++ {
		for b := ObjectLayer(0); b < NumObjectLayers; b++ {
			if tbl.ShouldCollide(a, b) != ShouldCollide(a, b) {
				t.Errorf("table disagrees for %v, %v", a, b)
			}
		}
	}
	if tbl.NumBroadPhaseLayers() != 2 {
		t.Errorf("expected 2 broad-phase layers, got %d", tbl.NumBroadPhaseLayers())
	}
}

func TestParseObjectLayer(t *testing.T) {
	for _, s := range []string{"MOVING", "moving"} {
		if l, err := ParseObjectLayer(s); err != nil || l != Moving {
			t.Errorf("ParseObjectLayer(%q) = %v, %v", s, l, err)
		}
	}
	if l, err := ParseObjectLayer("static"); err != nil || l != NonMoving {
		t.Errorf("ParseObjectLayer(static) = %v, %v", l, err)
	}
	if _, err := ParseObjectLayer("water"); err == nil {
		t.Error("expected error for unknown layer")
	}
}
