package indicators

import "testing"

func TestEvaluateAllSatisfied(t *testing.T) {
	prev := Row{MACD: 1, MACDSignal: 1, StochK: 10, StochD: 12, OBV: 100}
	curr := Row{
		Close: 120, BBUpper: 110,
		EMA50: 105, EMA200: 100,
		RSI14: 25, ADX14: 30,
		MACD: 2, MACDSignal: 1,
		StochK: 20, StochD: 15,
		OBV: 150,
	}

	conds := Evaluate(prev, curr)

	want := []string{CondTrend, CondRSI, CondMACDCross, CondBBBreakout, CondADX, CondOBVUp, CondStochCrossUp}
	if len(conds) != len(want) {
		t.Fatalf("expected %d conditions, got %d", len(want), len(conds))
	}
	for i, name := range want {
		if conds[i].Name != name {
			t.Fatalf("condition %d: expected %s, got %s", i, name, conds[i].Name)
		}
		if !conds[i].Satisfied {
			t.Fatalf("expected %s to be satisfied", name)
		}
	}
	if Score(conds) != 7 {
		t.Fatalf("expected score 7, got %d", Score(conds))
	}
}

func TestEvaluateNoneSatisfied(t *testing.T) {
	prev := Row{MACD: 2, MACDSignal: 1, StochK: 50, StochD: 40, OBV: 100}
	curr := Row{
		Close: 100, BBUpper: 110,
		EMA50: 95, EMA200: 100,
		RSI14: 55, ADX14: 10,
		MACD: 3, MACDSignal: 1,
		StochK: 60, StochD: 50,
		OBV: 100,
	}

	if got := Score(Evaluate(prev, curr)); got != 0 {
		t.Fatalf("expected score 0, got %d", got)
	}
}

func TestStochCrossNeedsOversold(t *testing.T) {
	prev := Row{StochK: 40, StochD: 45}
	curr := Row{StochK: 50, StochD: 45}

	for _, c := range Evaluate(prev, curr) {
		if c.Name == CondStochCrossUp && c.Satisfied {
			t.Fatal("cross above 25 must not count")
		}
	}
}
