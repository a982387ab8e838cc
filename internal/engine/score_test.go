package engine

import "testing"

func TestValueToFromTTRoundTrip(t *testing.T) {
	for v := -Mate; v <= Mate; v++ {
		for _, ply := range []int{0, 1, 5, 42, MaxPly - 1} {
			stored := valueToTT(v, ply)
			got := valueFromTT(stored, ply, 0)

			// Mate scores far beyond the 50-move horizon are clamped; every
			// other score must survive the round trip bit-exact.
			if v >= TbWinInMaxPly && stored >= MateInMaxPly && Mate-stored > 99 {
				if got != MateInMaxPly-1 {
					t.Fatalf("v=%d ply=%d: expected clamp, got %d", v, ply, got)
				}
				continue
			}
			if v <= -TbWinInMaxPly && stored <= -MateInMaxPly && Mate+stored > 99 {
				if got != -MateInMaxPly+1 {
					t.Fatalf("v=%d ply=%d: expected clamp, got %d", v, ply, got)
				}
				continue
			}

			if got != v {
				t.Fatalf("round trip failed: v=%d ply=%d stored=%d got=%d", v, ply, stored, got)
			}
		}
	}
}

func TestValueFromTTClampsNearFiftyMoveRule(t *testing.T) {
	// A mate-in-8-plies score with 95 halfmoves on the clock cannot be
	// delivered before the draw claim; it must be clamped.
	v := Mate - 8
	stored := valueToTT(v, 0)
	got := valueFromTT(stored, 0, 95)
	if got != MateInMaxPly-1 {
		t.Errorf("expected clamp to %d, got %d", MateInMaxPly-1, got)
	}

	got = valueFromTT(valueToTT(-v, 0), 0, 95)
	if got != -MateInMaxPly+1 {
		t.Errorf("expected clamp to %d, got %d", -MateInMaxPly+1, got)
	}
}

func TestStatBonusShape(t *testing.T) {
	prev := statBonus(1)
	for d := 2; d <= 13; d++ {
		b := statBonus(d)
		if b <= prev {
			t.Errorf("statBonus not increasing at depth %d: %d <= %d", d, b, prev)
		}
		prev = b
	}
	for _, d := range []int{14, 20, 100} {
		if got := statBonus(d); got != 29 {
			t.Errorf("statBonus(%d) = %d, want 29", d, got)
		}
	}
}

func TestFutilityTables(t *testing.T) {
	if got := futilityMargin(3, false); got != 702 {
		t.Errorf("futilityMargin(3, false) = %d, want 702", got)
	}
	if got := futilityMargin(3, true); got != 468 {
		t.Errorf("futilityMargin(3, true) = %d, want 468", got)
	}
	if got := futilityMoveCount(false, 3); got != 6 {
		t.Errorf("futilityMoveCount(false, 3) = %d, want 6", got)
	}
	if got := futilityMoveCount(true, 3); got != 12 {
		t.Errorf("futilityMoveCount(true, 3) = %d, want 12", got)
	}
}

func TestMateHelpers(t *testing.T) {
	if mateIn(0) != Mate || matedIn(0) != -Mate {
		t.Error("mate helpers broken at ply 0")
	}
	if mateIn(5) >= mateIn(3) {
		t.Error("longer mates must score lower")
	}
	if matedIn(5) <= matedIn(3) {
		t.Error("longer mated-in must score higher")
	}
}
