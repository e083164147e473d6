package artifact

import (
	"github.com/speechcoach/coach/internal/telemetry"
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/speechcoach/coach/internal/artifact"

var (
	tracer = otel.Tracer(scopeName)
	logger = telemetry.NewLogger(scopeName)
)
