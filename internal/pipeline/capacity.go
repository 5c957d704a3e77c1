package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/culvert-eval/internal/domain"
	"github.com/couchcryptid/culvert-eval/internal/table"
)

const stageCapacity = "capacity"

// CapacityStage rates every culvert and folds culverts into crossings.
type CapacityStage struct{}

func (CapacityStage) Name() string { return stageCapacity }

func (CapacityStage) Run(_ context.Context, rc *RunContext) error {
	in := rc.Path(GeometryFile)
	res, err := rc.load(stageCapacity, in, geometrySchema, table.Options{HeaderRows: 1, CheckHeader: true})
	if err != nil {
		return err
	}
	rep := reportFrom(stageCapacity, res)
	rc.record(rep)

	rows := res.Valid()
	culverts := make([]domain.Culvert, len(rows))
	for i, row := range rows {
		culverts[i] = culvertFromRow(row)
		culverts[i].Row = rc.fieldRow(row.Number)
	}

	agg, err := domain.AggregateCrossings(culverts, rc.Grouping)
	if err != nil {
		return fail(stageCapacity, in, err)
	}
	for _, w := range agg.Warnings {
		rc.Logger.Warn("culvert grouping", "stage", stageCapacity, "detail", w)
	}
	rc.warnings = append(rc.warnings, agg.Warnings...)
	if len(agg.FlagsOneRows) > 0 {
		rc.flagsOneRows = append(rc.flagsOneRows, agg.FlagsOneRows...)
		rc.Metrics.FlagsOneAssumed.Add(float64(len(agg.FlagsOneRows)))
		rc.Logger.Warn("Flags=1 read as a single culvert; confirm with field data",
			"stage", stageCapacity,
			"rows", fmt.Sprint(agg.FlagsOneRows),
		)
	}

	records := make([][]any, len(agg.Crossings))
	for i, c := range agg.Crossings {
		records[i] = []any{c.BarrierID, c.NAACCID, c.Lat, c.Long, c.Qf, c.Flags, c.County, c.Area}
	}
	out := rc.Path(CapacityFile)
	if err := table.WriteFile(out, capacitySchema.Names(), records); err != nil {
		return fail(stageCapacity, out, err)
	}
	rc.Logger.Info("crossings aggregated",
		"stage", stageCapacity,
		"culverts", len(culverts),
		"crossings", len(agg.Crossings),
		"grouping", string(rc.Grouping),
	)
	return nil
}

func culvertFromRow(row table.Row) domain.Culvert {
	return domain.Culvert{
		Row:       row.Number,
		BarrierID: row.Text("BarrierID"),
		NAACCID:   row.Int("NAACC_ID"),
		Lat:       row.Real("Lat"),
		Long:      row.Real("Long"),
		HW:        row.Real("HW_m"),
		Area:      row.Real("xArea_sqm"),
		Length:    row.Real("length_m"),
		D:         row.Real("D_m"),
		C:         row.Real("c"),
		Y:         row.Real("Y"),
		Ks:        row.Real("ks"),
		Slope:     row.Real("Culvert_Sl"),
		County:    row.Text("County"),
		Flags:     row.Int("Flags"),
	}
}
