package indicators

import "biosonar/internal/models"

// Condition names, in the order they are reported.
const (
	CondTrend        = "trend_ema50_gt_ema200"
	CondRSI          = "rsi14_lt_30"
	CondMACDCross    = "macd_crossover_up"
	CondBBBreakout   = "close_gt_bb_upper"
	CondADX          = "adx14_gt_25"
	CondOBVUp        = "obv_up"
	CondStochCrossUp = "stoch_crossover_up_20"
)

// Evaluate checks the seven buy conditions on the last two rows.
func Evaluate(prev, curr Row) models.Conditions {
	macdCross := prev.MACD <= prev.MACDSignal && curr.MACD > curr.MACDSignal
	stochCross := prev.StochK <= prev.StochD && curr.StochK > curr.StochD &&
		(curr.StochK < 25 || curr.StochD < 25)

	return models.Conditions{
		{Name: CondTrend, Satisfied: curr.EMA50 > curr.EMA200},
		{Name: CondRSI, Satisfied: curr.RSI14 < 30},
		{Name: CondMACDCross, Satisfied: macdCross},
		{Name: CondBBBreakout, Satisfied: curr.Close > curr.BBUpper},
		{Name: CondADX, Satisfied: curr.ADX14 > 25},
		{Name: CondOBVUp, Satisfied: curr.OBV > prev.OBV},
		{Name: CondStochCrossUp, Satisfied: stochCross},
	}
}

// Score is the number of satisfied conditions.
func Score(c models.Conditions) int {
	return c.Satisfied()
}
