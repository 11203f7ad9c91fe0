package fees

import (
	"math/big"
	"testing"
)

func TestApplyDeductsProportionalFee(t *testing.T) {
	result := Apply(big.NewInt(10_000), 450)
	if result.Fee.Cmp(big.NewInt(450)) != 0 {
		t.Fatalf("unexpected fee: %s", result.Fee)
	}
	if result.Net.Cmp(big.NewInt(9_550)) != 0 {
		t.Fatalf("unexpected net: %s", result.Net)
	}
}

func TestApplyZeroAndDustAmounts(t *testing.T) {
	if result := Apply(nil, 100); result.Fee.Sign() != 0 || result.Net.Sign() != 0 {
		t.Fatalf("nil gross should produce zero result: %+v", result)
	}
	if result := Apply(big.NewInt(0), 100); result.Fee.Sign() != 0 {
		t.Fatalf("zero gross should not charge a fee: %s", result.Fee)
	}
	// 9 * 10 / 10000 floors to zero, so the full amount passes through.
	result := Apply(big.NewInt(9), 10)
	if result.Fee.Sign() != 0 {
		t.Fatalf("dust fee should floor to zero: %s", result.Fee)
	}
	if result.Net.Cmp(big.NewInt(9)) != 0 {
		t.Fatalf("unexpected net: %s", result.Net)
	}
}

func TestApplyNeverExceedsGross(t *testing.T) {
	result := Apply(big.NewInt(5), PercentDivisor)
	if result.Fee.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("fee should cap at gross: %s", result.Fee)
	}
	if result.Net.Sign() != 0 {
		t.Fatalf("net should be zero when fee consumes gross: %s", result.Net)
	}
}

func TestHarvestSplitAdditivity(t *testing.T) {
	cfg := HarvestConfig{
		TotalFeeBps:      450,
		CallFeeBps:       1000,
		TreasuryFeeBps:   9000,
		StrategistFeeBps: 2500,
	}
	balance := big.NewInt(1_000_003) // deliberately indivisible
	split, err := HarvestSplit(balance, cfg)
	if err != nil {
		t.Fatalf("harvest split: %v", err)
	}

	expectedTotal := new(big.Int).Mul(balance, big.NewInt(450))
	expectedTotal.Quo(expectedTotal, big.NewInt(PercentDivisor))
	if split.TotalFee.Cmp(expectedTotal) != 0 {
		t.Fatalf("unexpected total fee: got %s want %s", split.TotalFee, expectedTotal)
	}

	sum := new(big.Int).Add(split.CallFee, split.Strategist)
	sum.Add(sum, split.Treasury)
	if sum.Cmp(split.TotalFee) != 0 {
		t.Fatalf("split parts do not reconcile: %s + %s + %s != %s",
			split.CallFee, split.Strategist, split.Treasury, split.TotalFee)
	}
}

func TestHarvestSplitRemainderFavoursTreasury(t *testing.T) {
	cfg := HarvestConfig{
		TotalFeeBps:      500,
		CallFeeBps:       3333,
		TreasuryFeeBps:   6667,
		StrategistFeeBps: 3333,
	}
	split, err := HarvestSplit(big.NewInt(999_999), cfg)
	if err != nil {
		t.Fatalf("harvest split: %v", err)
	}
	floorTreasury := new(big.Int).Mul(split.TotalFee, big.NewInt(6667))
	floorTreasury.Quo(floorTreasury, big.NewInt(PercentDivisor))
	floorTreasury.Sub(floorTreasury, split.Strategist)
	if split.Treasury.Cmp(floorTreasury) < 0 {
		t.Fatalf("treasury lost the rounding remainder: got %s floor %s", split.Treasury, floorTreasury)
	}
}

func TestHarvestSplitZeroBalance(t *testing.T) {
	split, err := HarvestSplit(big.NewInt(0), HarvestConfig{TotalFeeBps: 450, CallFeeBps: 1000, TreasuryFeeBps: 9000})
	if err != nil {
		t.Fatalf("harvest split: %v", err)
	}
	if split.TotalFee.Sign() != 0 || split.CallFee.Sign() != 0 || split.Treasury.Sign() != 0 {
		t.Fatalf("zero balance should charge nothing: %+v", split)
	}
}

func TestHarvestConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  HarvestConfig
		ok   bool
	}{
		{"valid", HarvestConfig{TotalFeeBps: 450, CallFeeBps: 1000, TreasuryFeeBps: 9000, StrategistFeeBps: 2500}, true},
		{"total over divisor", HarvestConfig{TotalFeeBps: 10_001}, false},
		{"call plus treasury over divisor", HarvestConfig{TotalFeeBps: 450, CallFeeBps: 6000, TreasuryFeeBps: 6000}, false},
		{"strategist over divisor", HarvestConfig{TotalFeeBps: 450, StrategistFeeBps: 10_001}, false},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected validation failure", tc.name)
		}
	}
}
