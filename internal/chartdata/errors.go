package chartdata

import "errors"

// ErrChartNotFound indicates the chart ID is unknown to the catalog.
var ErrChartNotFound = errors.New("chart not found")

// ErrChartDataUnavailable indicates the chart exists but has no CSV data.
var ErrChartDataUnavailable = errors.New("chart data unavailable")
