package ws

import "github.com/speechcoach/coach/internal/telemetry"

const scopeName = "github.com/speechcoach/coach/internal/transport/ws"

var logger = telemetry.NewLogger(scopeName)
