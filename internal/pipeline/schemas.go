package pipeline

import (
	"fmt"

	"github.com/couchcryptid/culvert-eval/internal/domain"
	"github.com/couchcryptid/culvert-eval/internal/table"
)

// Output file names inside a run directory.
const (
	SortedWatershedFile = "sorted_ws.csv"
	CurrentRunoffFile   = "current_runoff.csv"
	FutureRunoffFile    = "future_runoff.csv"
	GeometryFile        = "culv_geom.csv"
	CapacityFile        = "capacity_output.csv"
	ReturnPeriodFile    = "return_periods.csv"
	ModelOutputFile     = "model_output.csv"
	ValidationFile      = "validation_report.csv"
)

var watershedSchema = table.Schema{
	{Name: "BarrierID", Type: table.Text},
	{Name: "WS_area", Type: table.Real, Check: table.AtLeast(0)},
	{Name: "Tc", Type: table.Real, Check: table.Positive()},
	{Name: "CN", Type: table.Real, Check: table.Between(0, 100)},
}

// NRCC exports carry ten lines of station metadata above the storm table and
// the 24-hour depth in column K.
var (
	precipitationOptions  = table.Options{HeaderRows: 10, MaxRows: len(domain.ReturnPeriods), AllowExtraColumns: true}
	precipitationDepthCol = 10
)

func precipitationSchema() table.Schema {
	s := make(table.Schema, precipitationDepthCol+1)
	for i := range s {
		s[i] = table.Field{Name: fmt.Sprintf("col%d", i+1), Type: table.Text}
	}
	s[0] = table.Field{Name: "Period", Type: table.Text}
	s[precipitationDepthCol] = table.Field{Name: "Depth24h", Type: table.Real, Check: table.AtLeast(0)}
	return s
}

var fieldSchema = table.Schema{
	{Name: "BarrierID", Type: table.Text},
	{Name: "NAACC_ID", Type: table.Integer},
	{Name: "Lat", Type: table.Real},
	{Name: "Long", Type: table.Real},
	{Name: "Rd_Name", Type: table.Text},
	{Name: "Culv_Mat", Type: table.Text},
	{Name: "In_Type", Type: table.Text},
	{Name: "In_Shape", Type: table.Text},
	{Name: "In_A", Type: table.Real, Check: table.AtLeast(0)},
	{Name: "In_B", Type: table.Real, Check: table.AtLeast(0)},
	{Name: "HW", Type: table.Real, Check: table.AtLeast(0)},
	{Name: "Slope", Type: table.Real},
	{Name: "Length", Type: table.Real, Check: table.AtLeast(0)},
	{Name: "County", Type: table.Text},
	{Name: "Flags", Type: table.Integer, Check: table.AtLeast(0)},
}

// geometrySchema is both the geometry stage output and the capacity stage input.
var geometrySchema = table.Schema{
	{Name: "BarrierID", Type: table.Text},
	{Name: "NAACC_ID", Type: table.Integer},
	{Name: "Lat", Type: table.Real},
	{Name: "Long", Type: table.Real},
	{Name: "HW_m", Type: table.Real},
	{Name: "xArea_sqm", Type: table.Real},
	{Name: "length_m", Type: table.Real},
	{Name: "D_m", Type: table.Real},
	{Name: "c", Type: table.Real},
	{Name: "Y", Type: table.Real},
	{Name: "ks", Type: table.Real},
	{Name: "Culvert_Sl", Type: table.Real},
	{Name: "County", Type: table.Text},
	{Name: "Flags", Type: table.Integer},
}

var capacitySchema = table.Schema{
	{Name: "BarrierID", Type: table.Text},
	{Name: "NAACC_ID", Type: table.Integer},
	{Name: "Lat", Type: table.Real},
	{Name: "Long", Type: table.Real},
	{Name: "Q", Type: table.Real},
	{Name: "Flags", Type: table.Integer},
	{Name: "County", Type: table.Text},
	{Name: "Culvert_Area", Type: table.Real},
}

// runoffSchema is the runoff stage output: watershed columns then one peak
// discharge column per return period.
var runoffSchema = func() table.Schema {
	s := append(table.Schema{}, watershedSchema...)
	for _, p := range domain.ReturnPeriods {
		s = append(s, table.Field{Name: runoffColumn(p), Type: table.Real})
	}
	return s
}()

func runoffColumn(period int) string { return fmt.Sprintf("Q%d", period) }

var returnPeriodHeader = []string{"BarrierID", "NAACC_ID", "Lat", "Long", "Q", "RP_current", "RP_future"}

var modelOutputHeader = []string{
	"BarrierID", "NAACC_ID", "Lat", "Long", "County", "Flags", "Culvert_Area", "Q",
	"WS_area", "Tc", "CN", "RP_current", "RP_future",
}

var validationHeader = []string{"stage", "file", "row", "line", "field", "value", "reason"}
