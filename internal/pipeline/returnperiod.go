package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/culvert-eval/internal/domain"
	"github.com/couchcryptid/culvert-eval/internal/table"
)

const stageReturnPeriod = "return_period"

// ReturnPeriodStage joins crossing capacity with both runoff tables and finds
// each crossing's maximum safe return period.
type ReturnPeriodStage struct{}

func (ReturnPeriodStage) Name() string { return stageReturnPeriod }

type runoffRecord struct {
	ws     domain.Watershed
	storms []domain.StormRunoff
}

func (ReturnPeriodStage) Run(_ context.Context, rc *RunContext) error {
	current, err := loadRunoff(rc, CurrentRunoffFile)
	if err != nil {
		return err
	}
	future, err := loadRunoff(rc, FutureRunoffFile)
	if err != nil {
		return err
	}

	in := rc.Path(CapacityFile)
	res, err := rc.load(stageReturnPeriod, in, capacitySchema, table.Options{HeaderRows: 1, CheckHeader: true})
	if err != nil {
		return err
	}
	rep := reportFrom(stageReturnPeriod, res)

	var results []domain.CrossingResult
	for _, row := range res.Valid() {
		id := row.Text("BarrierID")
		cur, okCur := current[id]
		fut, okFut := future[id]
		if !okCur || !okFut {
			missing := CurrentRunoffFile
			if okCur {
				missing = FutureRunoffFile
			}
			rep.reject(table.RowError{
				Row:    row.Number,
				Line:   row.Line,
				Field:  "BarrierID",
				Value:  id,
				Reason: fmt.Sprintf("BarrierID %q has no row in %s", id, missing),
			})
			continue
		}

		q := row.Real("Q")
		results = append(results, domain.CrossingResult{
			BarrierID: id,
			NAACCID:   row.Int("NAACC_ID"),
			Lat:       row.Real("Lat"),
			Long:      row.Real("Long"),
			County:    row.Text("County"),
			Flags:     row.Int("Flags"),
			Area:      row.Real("Culvert_Area"),
			Capacity:  q,
			WSArea:    cur.ws.Area,
			Tc:        cur.ws.Tc,
			CN:        cur.ws.CN,
			RPCurrent: domain.MaxSafeReturnPeriod(q, cur.storms),
			RPFuture:  domain.MaxSafeReturnPeriod(q, fut.storms),
		})
	}
	if len(results) == 0 && rep.RowsIn > 0 {
		rc.record(rep)
		return fail(stageReturnPeriod, in, ErrNoValidRows)
	}

	rpRecords := make([][]any, len(results))
	modelRecords := make([][]any, len(results))
	for i, r := range results {
		rpRecords[i] = []any{r.BarrierID, r.NAACCID, r.Lat, r.Long, r.Capacity, r.RPCurrent, r.RPFuture}
		modelRecords[i] = []any{
			r.BarrierID, r.NAACCID, r.Lat, r.Long, r.County, r.Flags, r.Area, r.Capacity,
			r.WSArea, r.Tc, r.CN, r.RPCurrent, r.RPFuture,
		}
	}
	if err := table.WriteFile(rc.Path(ReturnPeriodFile), returnPeriodHeader, rpRecords); err != nil {
		return fail(stageReturnPeriod, rc.Path(ReturnPeriodFile), err)
	}
	if err := table.WriteFile(rc.Path(ModelOutputFile), modelOutputHeader, modelRecords); err != nil {
		return fail(stageReturnPeriod, rc.Path(ModelOutputFile), err)
	}

	rc.record(rep)
	rc.results = results
	rc.Metrics.CrossingsEvaluated.Add(float64(len(results)))
	return nil
}

// loadRunoff indexes a runoff table by BarrierID. The first row for an ID
// wins; later duplicates are rejected.
func loadRunoff(rc *RunContext, name string) (map[string]runoffRecord, error) {
	stage := stageReturnPeriod
	path := rc.Path(name)
	res, err := rc.load(stage, path, runoffSchema, table.Options{HeaderRows: 1, CheckHeader: true})
	if err != nil {
		return nil, err
	}
	rep := reportFrom(stage, res)

	out := make(map[string]runoffRecord, rep.RowsValid)
	for _, row := range res.Valid() {
		id := row.Text("BarrierID")
		if _, dup := out[id]; dup {
			rep.reject(table.RowError{
				Row:    row.Number,
				Line:   row.Line,
				Field:  "BarrierID",
				Value:  id,
				Reason: fmt.Sprintf("duplicate BarrierID %q", id),
			})
			continue
		}
		storms := make([]domain.StormRunoff, len(domain.ReturnPeriods))
		for i, p := range domain.ReturnPeriods {
			storms[i] = domain.StormRunoff{Period: p, Q: row.Real(runoffColumn(p))}
		}
		out[id] = runoffRecord{ws: watershedFromRow(row), storms: storms}
	}
	rc.record(rep)
	return out, nil
}
