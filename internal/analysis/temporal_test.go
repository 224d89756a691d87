package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalens/internal/dataset"
)

var seriesStart = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

func TestTimeSeries(t *testing.T) {
	e := newTestEngine(t,
		dailyColumn("ts", seriesStart, 3),
		dataset.Column{Name: "v", Cells: []dataset.Cell{
			dataset.NumberCell(10), dataset.Missing(), dataset.NumberCell(30),
		}},
	)

	result, err := e.TimeSeries("ts", []string{"v"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2023-01-01T00:00:00", "2023-01-02T00:00:00", "2023-01-03T00:00:00",
	}, result.Timestamps)

	series := result.Data["v"]
	require.Len(t, series, 3)
	assert.False(t, series[0].IsNull())
	assert.True(t, series[1].IsNull(), "missing value must serialize as null, not be dropped")
	assert.False(t, series[2].IsNull())

	assert.Equal(t, "2023-01-01T00:00:00", result.TimeRange.Min)
	assert.Equal(t, "2023-01-03T00:00:00", result.TimeRange.Max)
}

func TestTimeSeriesSortsByTime(t *testing.T) {
	e := newTestEngine(t,
		dataset.Column{Name: "ts", Cells: []dataset.Cell{
			dataset.TimeCell(seriesStart.AddDate(0, 0, 2)),
			dataset.TimeCell(seriesStart),
			dataset.TimeCell(seriesStart.AddDate(0, 0, 1)),
		}},
		numberColumn("v", 3, 1, 2),
	)

	result, err := e.TimeSeries("ts", []string{"v"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2023-01-01T00:00:00", "2023-01-02T00:00:00", "2023-01-03T00:00:00",
	}, result.Timestamps)
	for i, want := range []float64{1, 2, 3} {
		got, ok := result.Data["v"][i].Float()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestTimeSeriesValidation(t *testing.T) {
	e := newTestEngine(t,
		dailyColumn("ts", seriesStart, 2),
		numberColumn("v", 1, 2),
	)

	_, err := e.TimeSeries("v", []string{"v"})
	kind, _ := KindOf(err)
	assert.Equal(t, KindColumnNotDatetime, kind)

	_, err = e.TimeSeries("ts", []string{"nope"})
	kind, _ = KindOf(err)
	assert.Equal(t, KindColumnNotFound, kind)
}

func TestTrendRollingMean(t *testing.T) {
	e := newTestEngine(t,
		dailyColumn("ts", seriesStart, 4),
		numberColumn("v", 10, 20, 30, 40),
	)

	result, err := e.Trend("ts", "v", 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 15, 20, 30}, result.RollingMean)
	assert.Equal(t, []float64{10, 20, 30, 40}, result.OriginalData)
	assert.Equal(t, 3, result.WindowSize)
}

func TestTrendDropsMissingRows(t *testing.T) {
	e := newTestEngine(t,
		dailyColumn("ts", seriesStart, 4),
		dataset.Column{Name: "v", Cells: []dataset.Cell{
			dataset.NumberCell(10), dataset.Missing(), dataset.NumberCell(30), dataset.NumberCell(50),
		}},
	)

	result, err := e.Trend("ts", "v", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 30, 50}, result.OriginalData)
	assert.Equal(t, []float64{10, 20, 40}, result.RollingMean)
}

func TestTrendInvalidRoles(t *testing.T) {
	e := newTestEngine(t,
		dailyColumn("ts", seriesStart, 2),
		numberColumn("v", 1, 2),
		dataset.Column{Name: "label", Cells: []dataset.Cell{dataset.TextCell("a"), dataset.TextCell("b")}},
	)

	_, err := e.Trend("ts", "label", 7)
	kind, _ := KindOf(err)
	assert.Equal(t, KindColumnNotNumeric, kind)
}

func TestPeriodicAnalysisMonthly(t *testing.T) {
	cells := []dataset.Cell{
		dataset.TimeCell(time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)),
		dataset.TimeCell(time.Date(2023, 1, 20, 0, 0, 0, 0, time.UTC)),
		dataset.TimeCell(time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC)),
	}
	e := newTestEngine(t,
		dataset.Column{Name: "ts", Cells: cells},
		numberColumn("v", 10, 30, 5),
	)

	result, err := e.PeriodicAnalysis("ts", "v", PeriodMonthly)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, result.Periods)
	assert.Equal(t, []float64{20, 5}, result.MeanValues)
	assert.Equal(t, []float64{10, 5}, result.MinValues)
	assert.Equal(t, []float64{30, 5}, result.MaxValues)
	// Singleton bucket std normalizes to 0.
	assert.Equal(t, 0.0, result.StdValues[1])
	assert.Equal(t, "Month", result.PeriodName)
}

func TestPeriodicAnalysisInvalidPeriodType(t *testing.T) {
	e := newTestEngine(t,
		dailyColumn("ts", seriesStart, 2),
		numberColumn("v", 1, 2),
	)

	_, err := e.PeriodicAnalysis("ts", "v", "weekly")
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, KindInvalidPeriodType, kind)
}

func TestComparePeriodsSplitsAtMidpoint(t *testing.T) {
	// 2023-01-01 .. 2023-01-11: midpoint is 2023-01-06, inclusive on the
	// first half.
	e := newTestEngine(t,
		dailyColumn("ts", seriesStart, 11),
		numberColumn("v", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11),
	)

	result, err := e.ComparePeriods("ts", "v")
	require.NoError(t, err)

	require.Len(t, result.FirstHalf.Timestamps, 6)
	require.Len(t, result.SecondHalf.Timestamps, 5)
	assert.Equal(t, "2023-01-06T00:00:00", result.FirstHalf.Timestamps[5])
	assert.Equal(t, "2023-01-07T00:00:00", result.SecondHalf.Timestamps[0])

	assert.InDelta(t, 3.5, result.FirstHalf.Stats.Mean, 1e-9)
	assert.InDelta(t, 9.0, result.SecondHalf.Stats.Mean, 1e-9)
	assert.Equal(t, 1.0, result.FirstHalf.Stats.Min)
	assert.Equal(t, 11.0, result.SecondHalf.Stats.Max)
}

func TestCleanSeriesNoValidData(t *testing.T) {
	// No row carries both a timestamp and a value, so nothing survives
	// cleaning.
	e := newTestEngine(t,
		dataset.Column{Name: "ts", Cells: []dataset.Cell{
			dataset.TimeCell(seriesStart), dataset.Missing(),
		}},
		dataset.Column{Name: "v", Cells: []dataset.Cell{
			dataset.Missing(), dataset.NumberCell(1),
		}},
	)

	_, err := e.Trend("ts", "v", 7)
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, KindNoValidData, kind)
}
