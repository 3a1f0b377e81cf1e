package scraper

import (
	"strings"
	"testing"

	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExposition = `
# HELP http_requests_total Total HTTP requests
# TYPE http_requests_total counter
http_requests_total{method="get",code="200"} 1027
# HELP latency_seconds Request latency
# TYPE latency_seconds gauge
latency_seconds{route="/v1"} 0.42
`

func TestDatumsFromFamilies_ConvertsCountersAndGauges(t *testing.T) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(sampleExposition))
	require.NoError(t, err)

	datums := datumsFromFamilies(families, 1000, "scraped_", map[string]string{"job": "node"})
	require.Len(t, datums, 2)

	byMetric := make(map[string]bool)
	for _, d := range datums {
		byMetric[d.Metric] = true
		assert.Contains(t, d.Dimensions, "job")
		assert.True(t, strings.HasPrefix(d.Metric, "scraped_"))
	}
	assert.True(t, byMetric["scraped_http_requests_total"])
	assert.True(t, byMetric["scraped_latency_seconds"])
}

func TestDatumsFromFamilies_LabelsBecomeDimensions(t *testing.T) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(sampleExposition))
	require.NoError(t, err)

	datums := datumsFromFamilies(families, 1000, "", nil)
	for _, d := range datums {
		if d.Metric == "http_requests_total" {
			assert.Contains(t, d.Dimensions, "method")
			assert.Contains(t, d.Dimensions, "code")
		}
	}
}
