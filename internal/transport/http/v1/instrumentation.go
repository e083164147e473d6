package v1

import "github.com/speechcoach/coach/internal/telemetry"

const scopeName = "github.com/speechcoach/coach/internal/transport/http/v1"

var logger = telemetry.NewLogger(scopeName)
