package domain

import (
	"slices"
	"strconv"
)

// ReturnPeriods are the storm recurrence intervals, in years, tabulated by the
// NRCC precipitation export and carried through every runoff table.
var ReturnPeriods = []int{1, 2, 5, 10, 25, 50, 100, 200, 500}

// ReturnPeriod is a storm recurrence interval in years.
type ReturnPeriod int

// FailsSmallestStorm marks a crossing whose capacity is exceeded by the
// smallest tabulated storm.
const FailsSmallestStorm ReturnPeriod = 0

func (p ReturnPeriod) String() string {
	if p == FailsSmallestStorm {
		return "fails_smallest"
	}
	return strconv.Itoa(int(p))
}

// StormRunoff is the peak discharge (m³/s) for one return period.
type StormRunoff struct {
	Period int
	Q      float64
}

// MaxSafeReturnPeriod scans storms in ascending period order and returns the
// largest period passed before the first storm whose runoff exceeds capacity.
// A NaN capacity passes nothing.
func MaxSafeReturnPeriod(capacity float64, storms []StormRunoff) ReturnPeriod {
	sorted := slices.Clone(storms)
	slices.SortStableFunc(sorted, func(a, b StormRunoff) int { return a.Period - b.Period })

	best := FailsSmallestStorm
	for _, s := range sorted {
		if !(s.Q <= capacity) {
			break
		}
		best = ReturnPeriod(s.Period)
	}
	return best
}
