package scraper

import (
	"strconv"

	"github.com/goodmetrics/metricsink/internal/metricsmodel"
	dto "github.com/prometheus/client_model/go"
)

// datumsFromFamilies flattens a set of scraped metric families into
// datums, one per time series. Every label on the series becomes a
// StringDimension; bonusDimensions are stamped onto every datum produced
// by this scrape, and every metric name is prefixed so scraped metrics
// live in their own tables.
func datumsFromFamilies(families map[string]*dto.MetricFamily, unixNanos uint64, prefix string, bonusDimensions map[string]string) []metricsmodel.Datum {
	var datums []metricsmodel.Datum
	for name, family := range families {
		for _, m := range family.GetMetric() {
			dims := make(map[string]metricsmodel.Dimension, len(m.GetLabel())+len(bonusDimensions))
			for _, lbl := range m.GetLabel() {
				dims[lbl.GetName()] = metricsmodel.NewStringDimension(lbl.GetValue())
			}
			for k, v := range bonusDimensions {
				dims[k] = metricsmodel.NewStringDimension(v)
			}

			measurements := measurementsFromMetric(family.GetType(), m)
			if len(measurements) == 0 {
				continue
			}

			datums = append(datums, metricsmodel.Datum{
				Metric:       prefix + name,
				UnixNanos:    unixNanos,
				Dimensions:   dims,
				Measurements: measurements,
			})
		}
	}
	return datums
}

func measurementsFromMetric(family dto.MetricType, m *dto.Metric) map[string]metricsmodel.Measurement {
	switch family {
	case dto.MetricType_COUNTER:
		if c := m.GetCounter(); c != nil {
			return map[string]metricsmodel.Measurement{"value": metricsmodel.NewF64Measurement(c.GetValue())}
		}
	case dto.MetricType_GAUGE:
		if g := m.GetGauge(); g != nil {
			return map[string]metricsmodel.Measurement{"value": metricsmodel.NewF64Measurement(g.GetValue())}
		}
	case dto.MetricType_SUMMARY:
		if s := m.GetSummary(); s != nil {
			return map[string]metricsmodel.Measurement{
				"sum":   metricsmodel.NewF64Measurement(s.GetSampleSum()),
				"count": metricsmodel.NewI64Measurement(int64(s.GetSampleCount())),
			}
		}
	case dto.MetricType_HISTOGRAM:
		if h := m.GetHistogram(); h != nil {
			buckets := make(map[string]int64, len(h.GetBucket()))
			for _, b := range h.GetBucket() {
				buckets[formatBound(b.GetUpperBound())] = int64(b.GetCumulativeCount())
			}
			return map[string]metricsmodel.Measurement{
				"histogram": metricsmodel.Histogram{Buckets: buckets},
				"sum":       metricsmodel.NewF64Measurement(h.GetSampleSum()),
			}
		}
	case dto.MetricType_UNTYPED:
		if u := m.GetUntyped(); u != nil {
			return map[string]metricsmodel.Measurement{"value": metricsmodel.NewF64Measurement(u.GetValue())}
		}
	}
	return nil
}

func formatBound(upperBound float64) string {
	return "le_" + strconv.FormatFloat(upperBound, 'g', -1, 64)
}
