// Package tracing contains the tracing logic for pincore, including configuring the tracer and
// helping keep consistent naming conventions across the stack.
//
// Tracing is configured through environment variables, as consistent with the OpenTelemetry spec as possible:
//
// https://github.com/open-telemetry/opentelemetry-specification/blob/main/specification/sdk-environment-variables.md
//
//   - OTEL_TRACES_EXPORTER: a comma-separated list of exporters
//   - otlp
//   - zipkin
//   - file
//
// OTLP HTTP/gRPC:
//
//   - OTEL_EXPORTER_OTLP_PROTOCOL
//   - one of [grpc, http/protobuf]
//   - default: http/protobuf
//   - OTEL_EXPORTER_OTLP_ENDPOINT
//
// Zipkin:
//
//   - OTEL_EXPORTER_ZIPKIN_ENDPOINT
//
// File:
//
//   - OTEL_EXPORTER_FILE_PATH
//   - file path to write JSON traces
//   - default: `$PWD/traces.json`
//
// # Implementer Notes
//
// Span names follow a convention of <Component>.<Span>, some examples:
//
//   - component=Pinner + span=Pin -> Pinner.Pin
//   - component=CoreAPI.PinAPI + span=Verify.CheckPin -> CoreAPI.PinAPI.Verify.CheckPin
//
// We follow the OpenTelemetry convention of using whatever TracerProvider is registered globally.
package tracing
