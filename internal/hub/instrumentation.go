package hub

import "github.com/speechcoach/coach/internal/telemetry"

const scopeName = "github.com/speechcoach/coach/internal/hub"

var logger = telemetry.NewLogger(scopeName)
