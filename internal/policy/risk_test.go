package policy

import (
	"testing"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/model"
)

func TestYieldMultiplier(t *testing.T) {
	cases := []struct {
		tolerance model.RiskTolerance
		want      float64
	}{
		{model.RiskConservative, 0.8},
		{model.RiskModerate, 1.0},
		{model.RiskAggressive, 1.3},
	}
	for _, tc := range cases {
		if got := YieldMultiplier(tc.tolerance); got != tc.want {
			t.Errorf("YieldMultiplier(%s) = %v, want %v", tc.tolerance, got, tc.want)
		}
	}
}

func TestRiskScoreDiversificationCapAndFloor(t *testing.T) {
	// One chain held: 5 point drop.
	if got := RiskScore(45, 1); got != 40 {
		t.Fatalf("RiskScore(45, 1) = %v", got)
	}
	// Drop caps at 20 points no matter how many chains.
	if got := RiskScore(45, 10); got != 25 {
		t.Fatalf("RiskScore(45, 10) = %v", got)
	}
	// Score never drops below the floor.
	if got := RiskScore(12, 4); got != minRiskScore {
		t.Fatalf("RiskScore(12, 4) = %v", got)
	}
}

func TestSufficientCollateral(t *testing.T) {
	if !SufficientCollateral(1500, 1000) {
		t.Fatal("1500 should back a 1000 target at 1.5x")
	}
	if SufficientCollateral(1499, 1000) {
		t.Fatal("1499 should not back a 1000 target at 1.5x")
	}
}
