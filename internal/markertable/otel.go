package markertable

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/seismotools/markereditor/internal/markertable"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
