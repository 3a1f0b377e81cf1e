package metricsmodel

// Measurement is a sum type over the measurement kinds a Datum can carry.
// StatisticSet and Histogram are pre-aggregated shapes; everything else is
// a single scalar sample.
type Measurement interface {
	isMeasurement()
}

type I64Measurement struct{ Value int64 }

func (I64Measurement) isMeasurement() {}

func NewI64Measurement(v int64) Measurement { return I64Measurement{Value: v} }

type I32Measurement struct{ Value int32 }

func (I32Measurement) isMeasurement() {}

func NewI32Measurement(v int32) Measurement { return I32Measurement{Value: v} }

type F64Measurement struct{ Value float64 }

func (F64Measurement) isMeasurement() {}

func NewF64Measurement(v float64) Measurement { return F64Measurement{Value: v} }

type F32Measurement struct{ Value float32 }

func (F32Measurement) isMeasurement() {}

func NewF32Measurement(v float32) Measurement { return F32Measurement{Value: v} }

// StatisticSet is a pre-aggregated min/max/sum/count over some window.
type StatisticSet struct {
	Min   float64
	Max   float64
	Sum   float64
	Count int64
}

func (StatisticSet) isMeasurement() {}

// Histogram buckets counts by an opaque bucket label (e.g. "le_0.5"),
// stored as JSONB since its shape varies per metric.
type Histogram struct {
	Buckets map[string]int64
}

func (Histogram) isMeasurement() {}
