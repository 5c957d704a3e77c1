package domain

import (
	"fmt"
	"math"
)

// Ku is the unit conversion constant for the SI form of the inlet-control
// equation.
const Ku = 1.811

// Culvert is one physical culvert barrel as read from the geometry table.
type Culvert struct {
	// Row is the culvert's data row in the field survey. Adjacency grouping
	// warns when a group spans a gap in it.
	Row       int
	BarrierID string
	NAACCID   int
	Lat       float64
	Long      float64
	HW        float64 // headwater depth, m
	Area      float64 // cross-sectional area, m²
	Length    float64 // m
	D         float64 // culvert rise, m
	C         float64
	Y         float64
	Ks        float64
	Slope     float64 // m/m
	County    string
	Flags     int
}

// InletControlCapacity returns the single-culvert inlet-control capacity in
// m³/s:
//
//	Qc = A·sqrt(D·(HW/D − Y − ks·S)/c) / Ku
//
// Out-of-range inputs are not rejected. A negative radicand yields NaN, which
// is carried into the crossing total.
func InletControlCapacity(c Culvert) float64 {
	return c.Area * math.Sqrt(c.D*((c.HW/c.D)-c.Y-c.Ks*c.Slope)/c.C) / Ku
}

// Crossing is the aggregate of every culvert at one road-stream crossing.
// Identity and area come from the first culvert of the group.
type Crossing struct {
	BarrierID string
	NAACCID   int
	Lat       float64
	Long      float64
	Qf        float64
	Flags     int
	County    string
	Area      float64
	Culverts  int
	FirstRow  int
}

// GroupingMode selects how culvert records are folded into crossings.
type GroupingMode string

const (
	// GroupByAdjacency reads Flags as the number of consecutive records that
	// belong to one crossing, starting at the current record.
	GroupByAdjacency GroupingMode = "adjacency"
	// GroupByCrossingKey groups every record sharing a BarrierID.
	GroupByCrossingKey GroupingMode = "crossing"
)

// ParseGroupingMode validates a grouping mode name.
func ParseGroupingMode(s string) (GroupingMode, error) {
	switch GroupingMode(s) {
	case GroupByAdjacency, GroupByCrossingKey:
		return GroupingMode(s), nil
	default:
		return "", fmt.Errorf("unknown grouping mode %q (want %q or %q)", s, GroupByAdjacency, GroupByCrossingKey)
	}
}

// GroupingError means the culvert table cannot be grouped without guessing.
type GroupingError struct {
	Row    int
	Flags  int
	Reason string
}

func (e *GroupingError) Error() string {
	return fmt.Sprintf("grouping culverts at row %d (Flags=%d): %s", e.Row, e.Flags, e.Reason)
}

// AggregateResult is the output of AggregateCrossings.
type AggregateResult struct {
	Crossings []Crossing
	// FlagsOneRows lists rows where Flags=1 was read as a single culvert.
	FlagsOneRows []int
	Warnings     []string
}

// AggregateCrossings computes Qc for every culvert and folds the culverts into
// crossings.
//
// In adjacency mode the records must already be ordered so that every grouped
// culvert directly follows the record that starts its group. This is not
// checked beyond a BarrierID consistency warning. A group that would run past
// the end of the table, or a negative Flags value, is a *GroupingError.
func AggregateCrossings(culverts []Culvert, mode GroupingMode) (AggregateResult, error) {
	switch mode {
	case GroupByAdjacency, "":
		return aggregateAdjacent(culverts)
	case GroupByCrossingKey:
		return aggregateByKey(culverts)
	default:
		return AggregateResult{}, fmt.Errorf("unknown grouping mode %q", mode)
	}
}

func aggregateAdjacent(culverts []Culvert) (AggregateResult, error) {
	var res AggregateResult
	for i := 0; i < len(culverts); {
		first := culverts[i]
		if first.Flags < 0 {
			return AggregateResult{}, &GroupingError{Row: first.Row, Flags: first.Flags, Reason: "negative culvert count"}
		}
		size := first.Flags
		if size <= 1 {
			if size == 1 {
				res.FlagsOneRows = append(res.FlagsOneRows, first.Row)
			}
			size = 1
		}
		if i+size > len(culverts) {
			return AggregateResult{}, &GroupingError{
				Row:   first.Row,
				Flags: first.Flags,
				Reason: fmt.Sprintf("group of %d culverts reads past the end of the table (%d records remain)",
					size, len(culverts)-i),
			}
		}

		var qf float64
		for j := i; j < i+size; j++ {
			qf += InletControlCapacity(culverts[j])
			if j == i {
				continue
			}
			if prev := culverts[j-1].Row; culverts[j].Row != prev+1 {
				res.Warnings = append(res.Warnings, fmt.Sprintf(
					"group at row %d skips rows %d-%d; row %d was grouped in their place",
					first.Row, prev+1, culverts[j].Row-1, culverts[j].Row))
			}
			if culverts[j].BarrierID != first.BarrierID {
				res.Warnings = append(res.Warnings, fmt.Sprintf(
					"row %d (BarrierID %q) grouped with row %d (BarrierID %q)",
					culverts[j].Row, culverts[j].BarrierID, first.Row, first.BarrierID))
			}
		}
		res.Crossings = append(res.Crossings, newCrossing(first, qf, size))
		i += size
	}
	return res, nil
}

func aggregateByKey(culverts []Culvert) (AggregateResult, error) {
	var (
		res   AggregateResult
		order []string
		group = make(map[string][]Culvert)
	)
	for _, c := range culverts {
		if c.BarrierID == "" {
			return AggregateResult{}, &GroupingError{Row: c.Row, Flags: c.Flags, Reason: "empty BarrierID in crossing grouping mode"}
		}
		if c.Flags < 0 {
			return AggregateResult{}, &GroupingError{Row: c.Row, Flags: c.Flags, Reason: "negative culvert count"}
		}
		if _, ok := group[c.BarrierID]; !ok {
			order = append(order, c.BarrierID)
		}
		group[c.BarrierID] = append(group[c.BarrierID], c)
	}

	for _, id := range order {
		members := group[id]
		first := members[0]
		if first.Flags == 1 {
			res.FlagsOneRows = append(res.FlagsOneRows, first.Row)
		}
		if want := max(first.Flags, 1); want != len(members) {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"crossing %q has %d culvert records but Flags=%d at row %d",
				id, len(members), first.Flags, first.Row))
		}
		var qf float64
		for _, c := range members {
			qf += InletControlCapacity(c)
		}
		res.Crossings = append(res.Crossings, newCrossing(first, qf, len(members)))
	}
	return res, nil
}

func newCrossing(first Culvert, qf float64, size int) Crossing {
	return Crossing{
		BarrierID: first.BarrierID,
		NAACCID:   first.NAACCID,
		Lat:       first.Lat,
		Long:      first.Long,
		Qf:        qf,
		Flags:     first.Flags,
		County:    first.County,
		Area:      first.Area,
		Culverts:  size,
		FirstRow:  first.Row,
	}
}
