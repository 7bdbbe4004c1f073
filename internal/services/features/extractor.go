// Package features computes the indicators the predictors vote on. Every
// function works on closes ordered oldest first and is pure.
package features

import (
	"math"
	"slices"
	"time"
)

// LogReturns computes r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(prices)-1, or nil if insufficient data.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over the latest
// window of log returns.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum, sum2 := 0.0, 0.0
	for _, r := range logReturns[len(logReturns)-window:] {
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// BarsPerYear returns how many bars of length interval fit in a year.
func BarsPerYear(interval time.Duration) float64 {
	if interval <= 0 {
		return 0
	}
	return float64(365*24*time.Hour) / float64(interval)
}

// EMA is the exponential moving average over the trailing period prices,
// seeded with the oldest of them. Shorter inputs use what is there.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 || period <= 0 {
		return 0
	}
	if len(prices) > period {
		prices = prices[len(prices)-period:]
	}
	k := 2 / float64(period+1)
	ema := prices[0]
	for _, p := range prices[1:] {
		ema = p*k + ema*(1-k)
	}
	return ema
}

// RSI is the simple-average relative strength index over the last period
// price changes. It needs period+1 prices and reports a neutral 50 otherwise.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}
	gains, losses := 0.0, 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		diff := prices[i] - prices[i-1]
		if diff >= 0 {
			gains += diff
		} else {
			losses -= diff
		}
	}
	if losses == 0 {
		if gains == 0 {
			return 50
		}
		return 100
	}
	rs := (gains / float64(period)) / (losses / float64(period))
	return 100 - 100/(1+rs)
}

// MACD returns EMA12 - EMA26 of prices.
func MACD(prices []float64) float64 {
	return EMA(prices, 12) - EMA(prices, 26)
}

// Regression is an ordinary least squares line through (i, prices[i]).
type Regression struct {
	Slope     float64
	Intercept float64
	N         int
}

// Fit computes the regression line; fewer than two points give a flat line.
func Fit(prices []float64) Regression {
	n := len(prices)
	if n == 0 {
		return Regression{}
	}
	if n == 1 {
		return Regression{Intercept: prices[0], N: 1}
	}
	var sx, sy, sxx, sxy float64
	for i, p := range prices {
		x := float64(i)
		sx += x
		sy += p
		sxx += x * x
		sxy += x * p
	}
	fn := float64(n)
	den := fn*sxx - sx*sx
	if den == 0 {
		return Regression{Intercept: sy / fn, N: n}
	}
	slope := (fn*sxy - sx*sy) / den
	return Regression{Slope: slope, Intercept: (sy - slope*sx) / fn, N: n}
}

// Extrapolate returns the fitted value steps bars after the last point.
func (r Regression) Extrapolate(steps int) float64 {
	return r.Intercept + r.Slope*float64(r.N-1+steps)
}

// MedianInterval returns the median gap between consecutive timestamps.
func MedianInterval(times []time.Time) time.Duration {
	if len(times) < 2 {
		return 0
	}
	gaps := make([]time.Duration, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		gaps = append(gaps, times[i].Sub(times[i-1]))
	}
	slices.Sort(gaps)
	return gaps[len(gaps)/2]
}
