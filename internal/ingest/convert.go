package ingest

import (
	"fmt"

	"github.com/goodmetrics/metricsink/internal/metricsmodel"
	"google.golang.org/protobuf/types/known/structpb"
)

// datumFromStruct decodes one wire datum. The expected shape is:
//
//	{
//	  "metric": "http.request",
//	  "unix_nanos": 1700000000000000000,
//	  "dimensions": {"host": "a", "status": 200, "ok": true},
//	  "measurements": {"latency_ms": 12.5, "count": 1}
//	}
//
// Dimension values become StringDimension/NumberDimension/BoolDimension by
// their structpb kind; every measurement value becomes an F64Measurement
// read as a number (a non-number value reads as 0), since structpb
// carries no integer distinction of its own.
func datumFromStruct(s *structpb.Struct) (metricsmodel.Datum, error) {
	if s == nil {
		return metricsmodel.Datum{}, fmt.Errorf("datum is nil")
	}
	fields := s.GetFields()

	metric := fields["metric"].GetStringValue()
	if metric == "" {
		return metricsmodel.Datum{}, fmt.Errorf("missing metric name")
	}

	d := metricsmodel.Datum{
		Metric:    metric,
		UnixNanos: uint64(fields["unix_nanos"].GetNumberValue()),
	}

	if dims := fields["dimensions"].GetStructValue(); dims != nil {
		d.Dimensions = make(map[string]metricsmodel.Dimension, len(dims.GetFields()))
		for name, v := range dims.GetFields() {
			dim, err := dimensionFromValue(v)
			if err != nil {
				return metricsmodel.Datum{}, fmt.Errorf("dimension %q: %w", name, err)
			}
			d.Dimensions[name] = dim
		}
	}

	if meas := fields["measurements"].GetStructValue(); meas != nil {
		d.Measurements = make(map[string]metricsmodel.Measurement, len(meas.GetFields()))
		for name, v := range meas.GetFields() {
			d.Measurements[name] = metricsmodel.NewF64Measurement(v.GetNumberValue())
		}
	}

	return d, nil
}

func dimensionFromValue(v *structpb.Value) (metricsmodel.Dimension, error) {
	switch v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return metricsmodel.NewStringDimension(v.GetStringValue()), nil
	case *structpb.Value_NumberValue:
		return metricsmodel.NewNumberDimension(int64(v.GetNumberValue())), nil
	case *structpb.Value_BoolValue:
		return metricsmodel.NewBoolDimension(v.GetBoolValue()), nil
	default:
		return nil, fmt.Errorf("unsupported dimension kind %T", v.GetKind())
	}
}
