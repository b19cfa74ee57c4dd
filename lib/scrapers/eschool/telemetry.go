package eschool

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("scrapers/eschool")
