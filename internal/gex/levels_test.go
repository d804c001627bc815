package gex

import (
	"math"
	"testing"

	"go.uber.org/zap"
)

func testExposure(entries ...StrikeExposure) StrikeMap {
	m := make(StrikeMap, len(entries))
	for _, e := range entries {
		e.NetGEX = e.CallGEX + e.PutGEX
		m[e.Strike] = e
	}
	return m
}

func TestFindLevels_EmptyExposure(t *testing.T) {
	finder := NewLevelFinder(0, zap.NewNop())

	levels := finder.FindLevels(StrikeMap{}, 100)
	if levels.CallWall != nil || levels.PutWall != nil || levels.ZeroGamma != nil {
		t.Error("empty exposure must yield nil walls and flip")
	}
	if levels.FlipZone != nil {
		t.Error("empty exposure must yield nil flip zone")
	}
	if len(levels.HighGammaStrikes) != 0 {
		t.Error("empty exposure must yield no high gamma strikes")
	}
}

func TestFindLevels_Walls(t *testing.T) {
	finder := NewLevelFinder(0, zap.NewNop())

	exposure := testExposure(
		StrikeExposure{Strike: 90, PutGEX: 5000},
		StrikeExposure{Strike: 95, PutGEX: 20000},
		StrikeExposure{Strike: 105, CallGEX: -15000},
		StrikeExposure{Strike: 110, CallGEX: -30000},
	)

	levels := finder.FindLevels(exposure, 100)
	if levels.CallWall == nil || *levels.CallWall != 110 {
		t.Errorf("expected call wall 110, got %v", levels.CallWall)
	}
	if levels.PutWall == nil || *levels.PutWall != 95 {
		t.Errorf("expected put wall 95, got %v", levels.PutWall)
	}

	// Walls are always on the correct side of spot.
	if *levels.CallWall <= 100 {
		t.Error("call wall must sit above spot")
	}
	if *levels.PutWall >= 100 {
		t.Error("put wall must sit below spot")
	}
}

func TestFindLevels_WallThreshold(t *testing.T) {
	finder := NewLevelFinder(50000, zap.NewNop())

	// Only candidate above spot falls below the inclusion floor.
	exposure := testExposure(
		StrikeExposure{Strike: 105, CallGEX: -10000},
		StrikeExposure{Strike: 95, PutGEX: 80000},
	)

	levels := finder.FindLevels(exposure, 100)
	if levels.CallWall != nil {
		t.Errorf("sub-threshold strike must not become a wall, got %v", *levels.CallWall)
	}
	if levels.PutWall == nil || *levels.PutWall != 95 {
		t.Errorf("expected put wall 95, got %v", levels.PutWall)
	}
}

func TestFindLevels_WallTieBreaksTowardSpot(t *testing.T) {
	finder := NewLevelFinder(0, zap.NewNop())

	exposure := testExposure(
		StrikeExposure{Strike: 105, CallGEX: -20000},
		StrikeExposure{Strike: 120, CallGEX: -20000},
	)

	levels := finder.FindLevels(exposure, 100)
	if levels.CallWall == nil || *levels.CallWall != 105 {
		t.Errorf("equal magnitudes must prefer the strike closer to spot, got %v", levels.CallWall)
	}
}

func TestFindLevels_ZeroGammaInterpolation(t *testing.T) {
	finder := NewLevelFinder(0, zap.NewNop())

	exposure := testExposure(
		StrikeExposure{Strike: 95, PutGEX: 20000},
		StrikeExposure{Strike: 105, CallGEX: -20000},
	)

	levels := finder.FindLevels(exposure, 100)
	if levels.ZeroGamma == nil {
		t.Fatal("expected an interpolated flip strike")
	}
	if math.Abs(*levels.ZeroGamma-100) > 1e-9 {
		t.Errorf("expected flip at 100, got %v", *levels.ZeroGamma)
	}
}

func TestFindLevels_NoSignChange(t *testing.T) {
	finder := NewLevelFinder(0, zap.NewNop())

	exposure := testExposure(
		StrikeExposure{Strike: 95, PutGEX: 10000},
		StrikeExposure{Strike: 105, PutGEX: 20000},
	)

	levels := finder.FindLevels(exposure, 100)
	if levels.ZeroGamma != nil {
		t.Errorf("no sign change must yield nil flip, got %v", *levels.ZeroGamma)
	}
}

func TestFindLevels_FlipZone(t *testing.T) {
	finder := NewLevelFinder(0, zap.NewNop())

	// Max |net| is 100000; the 20% threshold is 20000.
	exposure := testExposure(
		StrikeExposure{Strike: 90, PutGEX: 100000},
		StrikeExposure{Strike: 98, PutGEX: 15000},
		StrikeExposure{Strike: 102, CallGEX: -10000},
		StrikeExposure{Strike: 110, CallGEX: -90000},
	)

	levels := finder.FindLevels(exposure, 100)
	if levels.FlipZone == nil {
		t.Fatal("expected a flip zone")
	}
	zone := levels.FlipZone
	if zone.Lower != 98 || zone.Upper != 102 {
		t.Errorf("expected zone [98, 102], got [%v, %v]", zone.Lower, zone.Upper)
	}
	if zone.Lower > zone.Upper {
		t.Error("zone lower must not exceed upper")
	}
	if zone.Width != 4 {
		t.Errorf("expected width 4, got %v", zone.Width)
	}
	if !zone.SpotInZone {
		t.Error("spot 100 sits inside [98, 102]")
	}
}

func TestFindLevels_HighGammaStrikes(t *testing.T) {
	finder := NewLevelFinder(0, zap.NewNop())

	exposure := testExposure(
		StrikeExposure{Strike: 90, PutGEX: 1000},
		StrikeExposure{Strike: 95, PutGEX: 50000},
		StrikeExposure{Strike: 100, CallGEX: -2000, PutGEX: 1000},
		StrikeExposure{Strike: 105, CallGEX: -40000},
		StrikeExposure{Strike: 110, CallGEX: -3000},
		StrikeExposure{Strike: 115, CallGEX: -500},
	)

	levels := finder.FindLevels(exposure, 100)
	if len(levels.HighGammaStrikes) != 5 {
		t.Fatalf("expected top 5 strikes, got %d", len(levels.HighGammaStrikes))
	}
	if levels.HighGammaStrikes[0].Strike != 95 {
		t.Errorf("expected 95 first, got %v", levels.HighGammaStrikes[0].Strike)
	}
	if levels.HighGammaStrikes[0].DominantSide != "put" {
		t.Errorf("strike 95 is put-dominated, got %s", levels.HighGammaStrikes[0].DominantSide)
	}
	if levels.HighGammaStrikes[1].Strike != 105 {
		t.Errorf("expected 105 second, got %v", levels.HighGammaStrikes[1].Strike)
	}
	if levels.HighGammaStrikes[1].DominantSide != "call" {
		t.Errorf("strike 105 is call-dominated, got %s", levels.HighGammaStrikes[1].DominantSide)
	}

	// Descending by |net GEX|.
	for i := 1; i < len(levels.HighGammaStrikes); i++ {
		prev := math.Abs(levels.HighGammaStrikes[i-1].NetGEX)
		curr := math.Abs(levels.HighGammaStrikes[i].NetGEX)
		if curr > prev {
			t.Errorf("high gamma strikes out of order at %d", i)
		}
	}
}

func TestFindLevels_GammaProfile(t *testing.T) {
	finder := NewLevelFinder(0, zap.NewNop())

	// All exposure above spot: positive skew, nothing within 5% of spot.
	exposure := testExposure(
		StrikeExposure{Strike: 110, CallGEX: -20000},
		StrikeExposure{Strike: 120, CallGEX: -20000},
	)

	levels := finder.FindLevels(exposure, 100)
	if levels.Profile.Skew <= 0 {
		t.Errorf("call-heavy upside exposure must have positive skew, got %v", levels.Profile.Skew)
	}
	// Weighted average strike is 115; (115-100)/100 = 0.15.
	if math.Abs(levels.Profile.Skew-0.15) > 1e-9 {
		t.Errorf("expected skew 0.15, got %v", levels.Profile.Skew)
	}
	if levels.Profile.Concentration != 0 {
		t.Errorf("no exposure within 5%% of spot, got concentration %v", levels.Profile.Concentration)
	}
}
