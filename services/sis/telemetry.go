package sis

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("services/sis")
