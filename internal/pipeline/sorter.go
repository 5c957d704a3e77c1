package pipeline

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/culvert-eval/internal/table"
)

const stageSort = "sort"

// SortStage writes the watershed table in canonical BarrierID order.
type SortStage struct{}

func (SortStage) Name() string { return stageSort }

func (SortStage) Run(_ context.Context, rc *RunContext) error {
	n, err := SortWatersheds(rc.Region.Watershed, rc.Region.Tag, rc.Path(SortedWatershedFile))
	if err != nil {
		return fail(stageSort, rc.Region.Watershed, err)
	}
	rc.record(StageReport{Stage: stageSort, File: rc.Region.Watershed, RowsIn: n, RowsValid: n})
	return nil
}

type sortKey struct {
	numeric bool
	num     float64
	text    string
	index   int
}

func (k sortKey) rank() int {
	switch {
	case k.numeric:
		return 0
	case k.text != "":
		return 1
	default:
		return 2
	}
}

func compareKeys(a, b sortKey) int {
	if c := cmp.Compare(a.rank(), b.rank()); c != 0 {
		return c
	}
	switch a.rank() {
	case 0:
		if c := cmp.Compare(a.num, b.num); c != 0 {
			return c
		}
	case 1:
		if c := strings.Compare(a.text, b.text); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.index, b.index)
}

// barrierKey strips the region tag and separators from a BarrierID and parses
// what remains as a number when possible.
func barrierKey(id, region string, index int) sortKey {
	s := strings.TrimSpace(id)
	if region != "" {
		if len(s) >= len(region) && strings.EqualFold(s[:len(region)], region) {
			s = s[len(region):]
		} else if len(s) >= len(region) && strings.EqualFold(s[len(s)-len(region):], region) {
			s = s[:len(s)-len(region)]
		}
	}
	s = strings.Trim(s, "_- ")
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return sortKey{numeric: true, num: n, text: s, index: index}
	}
	return sortKey{text: s, index: index}
}

// SortWatersheds copies the watershed table at input to output with rows
// ordered by BarrierID: numeric identifiers ascending, then non-numeric
// identifiers lexically, then rows with an empty identifier. Ties keep their
// input order. Every row is written unchanged. It returns the number of data
// rows.
func SortWatersheds(input, region, output string) (int, error) {
	records, err := table.ReadAll(input)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, &table.StructureError{Path: input, Reason: "missing header row"}
	}
	header, rows := records[0], records[1:]

	col := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "BarrierID") {
			col = i
			break
		}
	}
	if col < 0 {
		return 0, &table.StructureError{Path: input, Reason: "no BarrierID column"}
	}

	keys := make([]sortKey, len(rows))
	for i, row := range rows {
		id := ""
		if col < len(row) {
			id = row[col]
		}
		keys[i] = barrierKey(id, region, i)
	}
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int { return compareKeys(keys[a], keys[b]) })

	sorted := make([][]any, len(rows))
	for i, idx := range order {
		rec := make([]any, len(rows[idx]))
		for j, v := range rows[idx] {
			rec[j] = v
		}
		sorted[i] = rec
	}
	if err := table.WriteFile(output, header, sorted); err != nil {
		return 0, fmt.Errorf("write sorted watersheds: %w", err)
	}
	return len(rows), nil
}
