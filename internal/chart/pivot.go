// Package chart reshapes pivot counts into the axis/series/matrix form used
// by the dashboard charts.
package chart

import (
	"sort"

	"prospect-tracker-api/internal/model"
)

var (
	CategoryGeoFilterNames   = []string{"Categories", "Geo"}
	CategoryMonthFilterNames = []string{"Month", "Categories"}
)

var calendar = map[string]int{
	"January": 1, "February": 2, "March": 3, "April": 4,
	"May": 5, "June": 6, "July": 7, "August": 8,
	"September": 9, "October": 10, "November": 11, "December": 12,
}

// AxisOrder reports whether axis label a sorts before b.
type AxisOrder func(a, b string) bool

// Lexical orders labels as plain strings.
func Lexical(a, b string) bool { return a < b }

// Calendar orders month names January through December. Names outside the
// calendar sort after it, lexically among themselves.
func Calendar(a, b string) bool {
	ia, aok := calendar[a]
	ib, bok := calendar[b]
	switch {
	case aok && bok:
		return ia < ib
	case aok:
		return true
	case bok:
		return false
	default:
		return a < b
	}
}

// Empty is the response for a collection with nothing to chart.
func Empty() *model.ChartResponse {
	return &model.ChartResponse{
		XAxis:        []string{},
		SeriesLabels: []string{},
		Data:         map[string][]int{},
	}
}

// Build turns grouped counts into a chart. Every series gets one count per
// axis label, zero where the combination never occurred.
func Build(groups []model.PivotGroup, order AxisOrder, filterNames []string) *model.ChartResponse {
	if len(groups) == 0 {
		return Empty()
	}

	counts := make(map[string]map[string]int, len(groups))
	labelSet := map[string]struct{}{}
	series := make([]string, 0, len(groups))

	for _, g := range groups {
		byLabel, seen := counts[g.Series]
		if !seen {
			byLabel = map[string]int{}
			counts[g.Series] = byLabel
			series = append(series, g.Series)
		}
		for _, c := range g.Counts {
			byLabel[c.Label] += c.Count
			labelSet[c.Label] = struct{}{}
		}
	}

	xAxis := make([]string, 0, len(labelSet))
	for label := range labelSet {
		xAxis = append(xAxis, label)
	}
	sort.SliceStable(xAxis, func(i, j int) bool { return order(xAxis[i], xAxis[j]) })
	sort.Strings(series)

	data := make(map[string][]int, len(series))
	for _, s := range series {
		row := make([]int, len(xAxis))
		for i, label := range xAxis {
			row[i] = counts[s][label]
		}
		data[s] = row
	}

	return &model.ChartResponse{
		XAxis:        xAxis,
		SeriesLabels: series,
		Data:         data,
		FilterNames:  filterNames,
	}
}
