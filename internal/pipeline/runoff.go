package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/culvert-eval/internal/domain"
	"github.com/couchcryptid/culvert-eval/internal/table"
)

// RunoffStage computes peak discharge for every sorted watershed under one
// rainfall scenario.
type RunoffStage struct {
	Scenario domain.Scenario
	Output   string
}

func (s RunoffStage) Name() string { return "runoff_" + s.Scenario.Name }

func (s RunoffStage) Run(_ context.Context, rc *RunContext) error {
	stage := s.Name()

	storms, err := loadStorms(rc, stage)
	if err != nil {
		return err
	}

	in := rc.Path(SortedWatershedFile)
	res, err := rc.load(stage, in, watershedSchema, table.Options{HeaderRows: 1, CheckHeader: true, AllowExtraColumns: true})
	if err != nil {
		return err
	}

	out := rc.Path(s.Output)
	var records [][]any
	for _, row := range res.Valid() {
		ws := watershedFromRow(row)
		rec := []any{ws.BarrierID, ws.Area, ws.Tc, ws.CN}
		for _, q := range domain.Runoff(ws, storms, s.Scenario) {
			rec = append(rec, q.Q)
		}
		records = append(records, rec)
	}
	if err := table.WriteFile(out, runoffSchema.Names(), records); err != nil {
		return fail(stage, out, err)
	}
	rc.record(reportFrom(stage, res))
	return nil
}

// loadStorms reads the NRCC export. Storm depths are positional, so any
// rejected row leaves the table unusable.
func loadStorms(rc *RunContext, stage string) ([]domain.Storm, error) {
	path := rc.Region.Precipitation
	res, err := rc.load(stage, path, precipitationSchema(), precipitationOptions)
	if err != nil {
		return nil, err
	}
	rep := reportFrom(stage, res)
	rc.record(rep)
	if len(rep.Invalid) > 0 {
		return nil, fail(stage, path, fmt.Errorf("%d of %d storm rows are invalid", len(rep.Invalid), rep.RowsIn))
	}

	rows := res.Valid()
	storms := make([]domain.Storm, 0, len(rows))
	for i, row := range rows {
		if i >= len(domain.ReturnPeriods) {
			break
		}
		storms = append(storms, domain.Storm{Period: domain.ReturnPeriods[i], DepthIn: row.Real("Depth24h")})
	}
	if err := domain.ValidateStorms(storms); err != nil {
		return nil, fail(stage, path, err)
	}
	return storms, nil
}

func watershedFromRow(row table.Row) domain.Watershed {
	return domain.Watershed{
		Row:       row.Number,
		BarrierID: row.Text("BarrierID"),
		Area:      row.Real("WS_area"),
		Tc:        row.Real("Tc"),
		CN:        row.Real("CN"),
	}
}
