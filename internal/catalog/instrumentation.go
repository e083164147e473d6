package catalog

import "github.com/speechcoach/coach/internal/telemetry"

const scopeName = "github.com/speechcoach/coach/internal/catalog"

var logger = telemetry.NewLogger(scopeName)
