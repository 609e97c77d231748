package metrics

import (
	"sort"
	"time"

	"github.com/edgewise-labs/tradebook/internal/models"
)

// DayPnL 单个日历日的汇总
type DayPnL struct {
	Date    string  `json:"date"` // 2006-01-02, account-local
	Profit  float64 `json:"profit"`
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"win_rate"`
}

// tradeDay picks the calendar date a trade counts towards: the close when
// it exists, otherwise the open.
func tradeDay(t *models.Trade, loc *time.Location) time.Time {
	ts := t.OpenedAt
	if t.ClosedAt != nil {
		ts = *t.ClosedAt
	}
	return ts.In(loc)
}

// DailyPnL groups trades by account-local calendar date and sums profit per
// date. Sorted ascending by date.
func DailyPnL(trades []models.Trade, loc *time.Location) []DayPnL {
	byDate := make(map[string]*DayPnL)
	for i := range trades {
		t := &trades[i]
		key := tradeDay(t, loc).Format("2006-01-02")
		day, ok := byDate[key]
		if !ok {
			day = &DayPnL{Date: key}
			byDate[key] = day
		}
		day.Profit += t.Profit
		day.Trades++
		if t.Profit > 0 {
			day.Wins++
		}
	}

	days := make([]DayPnL, 0, len(byDate))
	for _, day := range byDate {
		day.WinRate = round2(float64(day.Wins) / float64(day.Trades) * 100)
		days = append(days, *day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

// Drawdown figures over the daily sums. Only losing days participate; when
// no day closed negative both figures are undefined rather than 0, so a
// flawless week does not render as "0 drawdown measured".
func dailyDrawdown(days []DayPnL) (maxDD, avgDD Ratio) {
	worst := 0.0
	sum := 0.0
	losing := 0
	for _, d := range days {
		if d.Profit >= 0 {
			continue
		}
		losing++
		sum += d.Profit
		if d.Profit < worst {
			worst = d.Profit
		}
	}
	if losing == 0 {
		return UndefinedRatio, UndefinedRatio
	}
	return DefinedRatio(worst), DefinedRatio(sum / float64(losing))
}

// WeekdayStat 按星期几的汇总
type WeekdayStat struct {
	Weekday string `json:"weekday"`
	Summary
}

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// ByWeekday reuses Compute per day-of-week bucket, Monday first. Weekdays
// without trades are omitted.
func ByWeekday(trades []models.Trade, loc *time.Location) []WeekdayStat {
	buckets := make(map[time.Weekday][]models.Trade)
	for i := range trades {
		wd := tradeDay(&trades[i], loc).Weekday()
		buckets[wd] = append(buckets[wd], trades[i])
	}

	stats := make([]WeekdayStat, 0, len(buckets))
	for _, wd := range weekdayOrder {
		subset, ok := buckets[wd]
		if !ok {
			continue
		}
		stats = append(stats, WeekdayStat{Weekday: wd.String(), Summary: Compute(subset)})
	}
	return stats
}

// bestWinRateWeekday picks the trading weekday with the highest win rate.
func bestWinRateWeekday(stats []WeekdayStat) string {
	best := ""
	bestRate := -1.0
	for _, s := range stats {
		if s.TradeCount == 0 {
			continue
		}
		if s.WinPercentage > bestRate {
			bestRate = s.WinPercentage
			best = s.Weekday
		}
	}
	return best
}
