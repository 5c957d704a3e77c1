package pipeline_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/culvert-eval/internal/pipeline"
	"github.com/couchcryptid/culvert-eval/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortWatersheds(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "ws.csv")
	out := filepath.Join(dir, "sorted.csv")
	writeFile(t, in, "Name,BarrierID,WS_area\n"+
		"a,lake_10,1\n"+
		"b,LAKE-2,2\n"+
		"c,beaver,3\n"+
		"d,,4\n"+
		"e,1_lake,5\n"+
		"f,alder,6\n"+
		"g,lake_2,7\n")

	n, err := pipeline.SortWatersheds(in, "lake", out)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "Name,BarrierID,WS_area\n"+
		"e,1_lake,5\n"+
		"b,LAKE-2,2\n"+
		"g,lake_2,7\n"+
		"a,lake_10,1\n"+
		"f,alder,6\n"+
		"c,beaver,3\n"+
		"d,,4\n", string(b))
}

func TestSortWatersheds_NoRegionTag(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "ws.csv")
	out := filepath.Join(dir, "sorted.csv")
	writeFile(t, in, "BarrierID\n30\n4.5\n0.5\n")

	_, err := pipeline.SortWatersheds(in, "", out)
	require.NoError(t, err)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "BarrierID\n0.5\n4.5\n30\n", string(b))
}

func TestSortWatersheds_Errors(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "sorted.csv")

	t.Run("missing file", func(t *testing.T) {
		_, err := pipeline.SortWatersheds(filepath.Join(dir, "nope.csv"), "lake", out)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("no BarrierID column", func(t *testing.T) {
		in := filepath.Join(dir, "nobid.csv")
		writeFile(t, in, "ID,WS_area\n1,2\n")
		_, err := pipeline.SortWatersheds(in, "lake", out)
		var se *table.StructureError
		require.ErrorAs(t, err, &se)
		assert.Contains(t, se.Reason, "BarrierID")
	})

	t.Run("empty file", func(t *testing.T) {
		in := filepath.Join(dir, "empty.csv")
		writeFile(t, in, "")
		_, err := pipeline.SortWatersheds(in, "lake", out)
		var se *table.StructureError
		require.ErrorAs(t, err, &se)
	})
}
