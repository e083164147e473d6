package service

import (
	"github.com/speechcoach/coach/internal/telemetry"
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/speechcoach/coach/internal/service"

var (
	tracer = otel.Tracer(scopeName)
	logger = telemetry.NewLogger(scopeName)
)
