package service

import (
	"fmt"
)

// StarPalette colors stars 1 through 5, palest to the brand red.
var StarPalette = [5]string{"#FFCCCC", "#FF9999", "#FF6666", "#FF3333", "#FF0000"}

var MonthLabels = [monthsPerYear]string{
	"Jan", "Fev", "Mar", "Abr", "Mai", "Jun",
	"Jul", "Ago", "Set", "Out", "Nov", "Dez",
}

func starLabel(star int) string {
	return fmt.Sprintf("%d★", star)
}

func starColor(star int) string {
	if star < 1 || star > len(StarPalette) {
		return ""
	}
	return StarPalette[star-1]
}

// BarSeries maps a distribution to one point per star, 1★ first, zero counts included.
func BarSeries(d Distribution) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(StarPalette))
	for star := 1; star <= len(StarPalette); star++ {
		b := d.Bucket(star)
		out = append(out, SeriesPoint{
			Label:      starLabel(star),
			Star:       star,
			Count:      b.Count,
			Percentage: b.Percentage,
			Color:      starColor(star),
		})
	}
	return out
}

// PieSeries is BarSeries without the zero-count slices.
func PieSeries(d Distribution) []SeriesPoint {
	bar := BarSeries(d)
	out := make([]SeriesPoint, 0, len(bar))
	for _, p := range bar {
		if p.Count > 0 {
			out = append(out, p)
		}
	}
	return out
}

// LineSeries labels monthly averages Jan..Dez. Missing months are 0.
func LineSeries(monthly []float64) []LinePoint {
	out := make([]LinePoint, monthsPerYear)
	for i := range out {
		out[i].Label = MonthLabels[i]
		if i < len(monthly) {
			out[i].Value = monthly[i]
		}
	}
	return out
}

func Charts(d Distribution, monthly []float64) ChartData {
	return ChartData{
		Bar:  BarSeries(d),
		Pie:  PieSeries(d),
		Line: LineSeries(monthly),
	}
}
