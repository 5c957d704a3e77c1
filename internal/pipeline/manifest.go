package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/culvert-eval/internal/table"
)

var manifestSchema = table.Schema{
	{Name: "region_tag", Type: table.Text, Check: table.NotEmpty()},
	{Name: "watershed_data_filename", Type: table.Text, Check: table.NotEmpty()},
	{Name: "watershed_precipitation_tablename", Type: table.Text, Check: table.NotEmpty()},
	{Name: "field_data_filename", Type: table.Text, Check: table.NotEmpty()},
}

// ManifestError lists every invalid manifest row. Any invalid row rejects the
// whole manifest.
type ManifestError struct {
	Path string
	Rows []table.RowError
}

func (e *ManifestError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "manifest %s has %d invalid rows:", e.Path, len(e.Rows))
	for _, r := range e.Rows {
		fmt.Fprintf(&b, "\n  row number %d was invalid because %s", r.Row, r.Reason)
	}
	return b.String()
}

// LoadManifest reads a batch manifest. A path without an extension gets
// ".csv" appended.
func LoadManifest(path string) ([]Region, error) {
	if filepath.Ext(path) == "" {
		path += ".csv"
	}
	res, err := table.Load(path, manifestSchema, table.Options{HeaderRows: 1, CheckHeader: true})
	if err != nil {
		return nil, err
	}
	if invalid := res.Invalid(); len(invalid) > 0 {
		return nil, &ManifestError{Path: path, Rows: invalid}
	}

	rows := res.Valid()
	regions := make([]Region, len(rows))
	for i, row := range rows {
		regions[i] = Region{
			Tag:           row.Text("region_tag"),
			Watershed:     row.Text("watershed_data_filename"),
			Precipitation: row.Text("watershed_precipitation_tablename"),
			FieldData:     row.Text("field_data_filename"),
		}
	}
	return regions, nil
}
