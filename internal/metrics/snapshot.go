package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/edgewise-labs/tradebook/internal/models"
)

// GroupBy 分组方式
type GroupBy string

const (
	GroupNone     GroupBy = "none"
	GroupDay      GroupBy = "day"
	GroupWeek     GroupBy = "week"
	GroupMonth    GroupBy = "month"
	GroupSymbol   GroupBy = "symbol"
	GroupStrategy GroupBy = "strategy"
)

// ParseGroupBy resolves a grouping directive; empty means none.
func ParseGroupBy(raw string) (GroupBy, bool) {
	switch GroupBy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", GroupNone:
		return GroupNone, true
	case GroupDay:
		return GroupDay, true
	case GroupWeek:
		return GroupWeek, true
	case GroupMonth:
		return GroupMonth, true
	case GroupSymbol:
		return GroupSymbol, true
	case GroupStrategy:
		return GroupStrategy, true
	}
	return "", false
}

// Group 某个分组键下的指标，公式与总表完全一致
type Group struct {
	Key string `json:"key"`
	Summary
}

// Snapshot 报表快照
//
// Derived on demand from a caller-supplied trade slice, never persisted.
// Every report view reads this one shape.
type Snapshot struct {
	Summary

	AvgHoldTime *HoldTime `json:"avg_hold_time"`

	MaxDailyDrawdown Ratio `json:"max_daily_drawdown"`
	AvgDailyDrawdown Ratio `json:"avg_daily_drawdown"`

	// R-multiples stay undefined until planned risk amounts are tracked
	// upstream; surfacing a fabricated number here is worse than none.
	PlannedRMultiple  Ratio `json:"planned_r_multiple"`
	RealizedRMultiple Ratio `json:"realized_r_multiple"`

	Daily              []DayPnL      `json:"daily"`
	BestDay            *DayPnL       `json:"best_day"`
	WorstDay           *DayPnL       `json:"worst_day"`
	MostActiveDay      *DayPnL       `json:"most_active_day"`
	ByWeekday          []WeekdayStat `json:"by_weekday"`
	BestWinRateWeekday string        `json:"best_win_rate_weekday"`

	GroupBy GroupBy `json:"group_by"`
	Groups  []Group `json:"groups,omitempty"`
}

// SnapshotOptions 快照选项
type SnapshotOptions struct {
	GroupBy  GroupBy
	Location *time.Location
}

func (o SnapshotOptions) location() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return time.UTC
}

// BuildSnapshot computes the full snapshot over a trade slice. The input is
// taken as-is; date-range and strategy selection are the caller's business.
func BuildSnapshot(trades []models.Trade, opts SnapshotOptions) *Snapshot {
	loc := opts.location()
	groupBy := opts.GroupBy
	if groupBy == "" {
		groupBy = GroupNone
	}

	days := DailyPnL(trades, loc)
	maxDD, avgDD := dailyDrawdown(days)
	weekdays := ByWeekday(trades, loc)

	snap := &Snapshot{
		Summary:            Compute(trades),
		AvgHoldTime:        AvgHoldTime(trades),
		MaxDailyDrawdown:   maxDD,
		AvgDailyDrawdown:   avgDD,
		PlannedRMultiple:   UndefinedRatio,
		RealizedRMultiple:  UndefinedRatio,
		Daily:              days,
		ByWeekday:          weekdays,
		BestWinRateWeekday: bestWinRateWeekday(weekdays),
		GroupBy:            groupBy,
	}

	for i := range days {
		d := &days[i]
		if snap.BestDay == nil || d.Profit > snap.BestDay.Profit {
			snap.BestDay = d
		}
		if snap.WorstDay == nil || d.Profit < snap.WorstDay.Profit {
			snap.WorstDay = d
		}
		if snap.MostActiveDay == nil || d.Trades > snap.MostActiveDay.Trades {
			snap.MostActiveDay = d
		}
	}

	if groupBy != GroupNone {
		snap.Groups = buildGroups(trades, groupBy, loc)
	}
	return snap
}

// buildGroups buckets the trades by the grouping key and runs the one
// shared Compute per bucket.
func buildGroups(trades []models.Trade, groupBy GroupBy, loc *time.Location) []Group {
	buckets := make(map[string][]models.Trade)
	for i := range trades {
		key := groupKey(&trades[i], groupBy, loc)
		buckets[key] = append(buckets[key], trades[i])
	}

	groups := make([]Group, 0, len(buckets))
	for key, subset := range buckets {
		groups = append(groups, Group{Key: key, Summary: Compute(subset)})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

func groupKey(t *models.Trade, groupBy GroupBy, loc *time.Location) string {
	switch groupBy {
	case GroupDay:
		return tradeDay(t, loc).Format("2006-01-02")
	case GroupWeek:
		year, week := tradeDay(t, loc).ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case GroupMonth:
		return tradeDay(t, loc).Format("2006-01")
	case GroupSymbol:
		return t.Symbol
	case GroupStrategy:
		if t.StrategyTag == "" {
			return "untagged"
		}
		return t.StrategyTag
	}
	return ""
}
