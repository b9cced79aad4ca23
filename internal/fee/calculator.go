package fee

import (
	"math"
	"time"

	"github.com/langchou/parkmeter/internal/models"
)

// 星期索引 (周一为 0)
const (
	Monday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

const secondsPerWeek = 7 * 24 * 60 * 60

// DailyRates 按星期展开的每小时费率, 下标 0 为周一
type DailyRates [7]float64

// Expand 将四档费率展开为七天费率表
func Expand(s *models.RateSchedule) DailyRates {
	return DailyRates{
		Monday:    s.WeekdayRate,
		Tuesday:   s.WeekdayRate,
		Wednesday: s.WeekdayRate,
		Thursday:  s.WeekdayRate,
		Friday:    s.FridayRate,
		Saturday:  s.SaturdayRate,
		Sunday:    s.SundayRate,
	}
}

// DayIndex 返回 UTC 星期索引 (周一=0 ... 周日=6)
func DayIndex(t time.Time) int {
	return (int(t.UTC().Weekday()) + 6) % 7
}

// Compute 计算停车费用
// 从入场时刻起按整小时步进, 每步按步起点所在日的费率收费。
// 每步收费为 rate * min(1, 总停车小时数)：总时长不足一小时时只有一步且按比例收费。
// 满一周的部分每天正好 24 步，直接按周累加，只逐步遍历剩余不足一周的部分。
func Compute(entry, exit time.Time, rates DailyRates) float64 {
	if !entry.Before(exit) {
		return 0
	}
	hours := exit.Sub(entry).Hours()
	fraction := math.Min(1, hours)

	var total float64
	step := entry.UTC()
	if weeks := (exit.Unix() - entry.Unix()) / secondsPerWeek; weeks > 0 {
		var weekly float64
		for _, rate := range rates {
			weekly += rate * 24
		}
		total = float64(weeks) * weekly
		step = step.AddDate(0, 0, int(weeks*7))
	}

	for ; step.Before(exit); step = step.Add(time.Hour) {
		total += rates[DayIndex(step)] * fraction
	}

	return Round(total)
}

// Round 四舍五入到两位小数
func Round(amount float64) float64 {
	return math.Round(amount*100) / 100
}
