package registry

import "testing"

func TestLookupKnownChain(t *testing.T) {
	info, ok := Lookup(" Polygon ")
	if !ok {
		t.Fatal("expected polygon to be known")
	}
	if info.NativeToken != "MATIC" || info.EVMChainID != 137 {
		t.Fatalf("unexpected entry: %+v", info)
	}

	if _, ok := Lookup("solana"); ok {
		t.Fatal("solana must not be in the chain table")
	}
}

func TestNativeTokenPerChain(t *testing.T) {
	cases := map[string]string{
		"ethereum": "ETH",
		"polygon":  "MATIC",
		"arbitrum": "ETH",
		"base":     "ETH",
		"unknown":  "ETH",
	}
	for chain, want := range cases {
		if got := NativeToken(chain); got != want {
			t.Errorf("NativeToken(%s) = %s, want %s", chain, got, want)
		}
	}
}

func TestYieldAndRiskDefaults(t *testing.T) {
	if got := BaseYield("polygon"); got != 7.8 {
		t.Fatalf("BaseYield(polygon) = %v", got)
	}
	if got := BaseYield("nowhere"); got != defaultYieldPct {
		t.Fatalf("BaseYield default = %v", got)
	}
	if got := BaseRisk("ethereum"); got != 25 {
		t.Fatalf("BaseRisk(ethereum) = %v", got)
	}
	if got := BaseRisk("nowhere"); got != defaultRiskScore {
		t.Fatalf("BaseRisk default = %v", got)
	}
}

func TestStakingContractUnknownChain(t *testing.T) {
	if got := StakingContract("ethereum"); got == "" {
		t.Fatal("ethereum staking contract missing")
	}
	if got := StakingContract("solana"); got != "" {
		t.Fatalf("unknown chain should have no contract, got %s", got)
	}
}

func TestStaticCongestion(t *testing.T) {
	var model StaticCongestion
	if got := model.Multiplier("ethereum"); got != 1.5 {
		t.Fatalf("Multiplier(ethereum) = %v", got)
	}
	if got := model.Multiplier("base"); got != 1.0 {
		t.Fatalf("Multiplier(base) = %v", got)
	}
	if got := model.Multiplier("nowhere"); got != defaultCongestion {
		t.Fatalf("Multiplier default = %v", got)
	}
}
