package ingest

import (
	"math"
	"math/rand"
	"time"

	"datalens/internal/dataset"
)

const sampleDays = 365

// GenerateSample builds a year of synthetic daily sensor readings: seasonal
// waves with noise plus a uniform quality score, starting 2023-01-01. It
// gives the dashboard something to explore without an upload.
func GenerateSample() dataset.Table {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	timestamps := make([]dataset.Cell, sampleDays)
	efficiency := make([]dataset.Cell, sampleDays)
	temperature := make([]dataset.Cell, sampleDays)
	pressure := make([]dataset.Cell, sampleDays)
	flowRate := make([]dataset.Cell, sampleDays)
	quality := make([]dataset.Cell, sampleDays)

	for i := 0; i < sampleDays; i++ {
		x := float64(i) / float64(sampleDays-1)
		timestamps[i] = dataset.TimeCell(start.AddDate(0, 0, i))
		efficiency[i] = dataset.NumberCell(math.Sin(x*10)*10 + 80 + rng.NormFloat64()*3)
		temperature[i] = dataset.NumberCell(math.Cos(x*8)*15 + 150 + rng.NormFloat64()*5)
		pressure[i] = dataset.NumberCell(math.Sin(x*6)*8 + 50 + rng.NormFloat64()*2)
		flowRate[i] = dataset.NumberCell(math.Cos(x*12)*20 + 100 + rng.NormFloat64()*8)
		quality[i] = dataset.NumberCell(0.7 + rng.Float64()*0.3)
	}

	return dataset.Table{Columns: []dataset.Column{
		{Name: "Timestamp", Cells: timestamps},
		{Name: "Efficiency", Cells: efficiency},
		{Name: "Temperature", Cells: temperature},
		{Name: "Pressure", Cells: pressure},
		{Name: "Flow_Rate", Cells: flowRate},
		{Name: "Quality_Score", Cells: quality},
	}}
}
