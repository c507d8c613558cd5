package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/s0_data"
	"github.com/wonny/ifrs9-ccf/pkg/logger"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func sources(t *testing.T) Sources {
	dir := t.TempDir()
	return Sources{
		SegmentFile: writeFile(t, dir, "segments.csv",
			"note_ref;cod_prd_ref;Indicateur_moyen_Brut\n1;2010T1;0,5\n1;2010T2;0,6\n2;2010T1;0,4\n"),
		MacroFile: writeFile(t, dir, "macro.csv",
			"date,PIB,IPL,TCH,Inflation\n2010-03-31,100,50,9,1.2\n2010-06-30,101,51,8.9,1.3\n"),
		ScenarioFile: writeFile(t, dir, "scenarios.csv",
			"date,PIB_CENT,IPL_CENT,TCH_CENT,Inflation_CENT\n2025-03-31,120,60,7,2\n"),
	}
}

func TestCollector_Collect(t *testing.T) {
	c := NewCollector(sources(t), logger.Nop())

	snap, err := c.Collect(context.Background(), s0_data.TableSegments, s0_data.TableMacro, s0_data.TableScenario)
	require.NoError(t, err)

	assert.Len(t, snap.Segments, 3)
	assert.Len(t, snap.Macro, 2)
	assert.Len(t, snap.Scenarios.Dates, 1)

	require.Len(t, snap.Results, 3)
	assert.Equal(t, s0_data.TableSegments, snap.Results[0].Table, "results keep request order")
	assert.Equal(t, 3, snap.Results[0].Rows)
	assert.Equal(t, s0_data.TableScenario, snap.Results[2].Table)
}

func TestCollector_RejectedRows(t *testing.T) {
	src := sources(t)
	src.MacroFile = writeFile(t, t.TempDir(), "macro.csv",
		"date,PIB,IPL,TCH,Inflation\n2010-03-31,100,50,9,1.2\nnot-a-date,1,1,1,1\n2010-06-30,101,51,8.9,1.3\n")
	c := NewCollector(src, logger.Nop())

	snap, err := c.Collect(context.Background(), s0_data.TableMacro)
	require.NoError(t, err, "row-level data quality errors do not fail the table")
	assert.Len(t, snap.Macro, 2)
	assert.Equal(t, 2, snap.Results[0].Rows)

	rejected := snap.Rejected()
	require.Len(t, rejected, 1)
	assert.ErrorIs(t, rejected[0], contracts.ErrDataQuality)
}

func TestCollector_PartialFailure(t *testing.T) {
	src := sources(t)
	src.MacroFile = filepath.Join(t.TempDir(), "missing.csv")
	c := NewCollector(src, logger.Nop())

	snap, err := c.Collect(context.Background(), s0_data.TableSegments, s0_data.TableMacro)
	require.Error(t, err)
	assert.Contains(t, err.Error(), s0_data.TableMacro)

	assert.Len(t, snap.Segments, 3, "successful tables are kept")
	assert.NoError(t, snap.Results[0].Error)
	assert.Error(t, snap.Results[1].Error)
}

func TestCollector_Canceled(t *testing.T) {
	c := NewCollector(sources(t), logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Collect(ctx, s0_data.TableSegments)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollector_UnknownTable(t *testing.T) {
	c := NewCollector(sources(t), logger.Nop())
	_, err := c.Collect(context.Background(), "prices")
	assert.ErrorContains(t, err, "unknown table")
}
