package pipeline

import (
	"context"
	"errors"

	"github.com/couchcryptid/culvert-eval/internal/domain"
	"github.com/couchcryptid/culvert-eval/internal/table"
)

const stageGeometry = "geometry"

// GeometryStage converts NAACC field data into the capacity input table.
type GeometryStage struct{}

func (GeometryStage) Name() string { return stageGeometry }

func (GeometryStage) Run(_ context.Context, rc *RunContext) error {
	in := rc.Region.FieldData
	res, err := rc.load(stageGeometry, in, fieldSchema, table.Options{HeaderRows: 1, CheckHeader: true})
	if err != nil {
		return err
	}

	rep := reportFrom(stageGeometry, res)
	rc.fieldRows = rc.fieldRows[:0]
	var records [][]any
	for _, row := range res.Valid() {
		c, err := domain.PrepareGeometry(fieldCulvertFromRow(row))
		if err != nil {
			re := table.RowError{Row: row.Number, Line: row.Line, Reason: err.Error()}
			var ge *domain.GeometryError
			if errors.As(err, &ge) {
				re.Field, re.Value = ge.Field, ge.Value
			}
			rep.reject(re)
			continue
		}
		rc.fieldRows = append(rc.fieldRows, row.Number)
		records = append(records, []any{
			c.BarrierID, c.NAACCID, c.Lat, c.Long, c.HW, c.Area, c.Length, c.D,
			c.C, c.Y, c.Ks, c.Slope, c.County, c.Flags,
		})
	}
	if len(records) == 0 && rep.RowsIn > 0 {
		rc.record(rep)
		return fail(stageGeometry, in, ErrNoValidRows)
	}

	out := rc.Path(GeometryFile)
	if err := table.WriteFile(out, geometrySchema.Names(), records); err != nil {
		return fail(stageGeometry, out, err)
	}
	rc.record(rep)
	return nil
}

func fieldCulvertFromRow(row table.Row) domain.FieldCulvert {
	return domain.FieldCulvert{
		Row:       row.Number,
		BarrierID: row.Text("BarrierID"),
		NAACCID:   row.Int("NAACC_ID"),
		Lat:       row.Real("Lat"),
		Long:      row.Real("Long"),
		RoadName:  row.Text("Rd_Name"),
		Material:  row.Text("Culv_Mat"),
		InletType: row.Text("In_Type"),
		Shape:     row.Text("In_Shape"),
		InletA:    row.Real("In_A"),
		InletB:    row.Real("In_B"),
		HW:        row.Real("HW"),
		SlopePct:  row.Real("Slope"),
		Length:    row.Real("Length"),
		County:    row.Text("County"),
		Flags:     row.Int("Flags"),
	}
}
