// Package observability configures logging and metrics for the process.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Log formats accepted by Instrument.
const (
	FormatText       = "text"
	FormatJSON       = "json"
	FormatOTLP       = "otlp"
	FormatStdoutOTel = "stdout-otel"
)

// instrumentationName identifies this service's logger in exported records.
const instrumentationName = "github.com/florianilch/jolt-auth"

var _ otellog.LoggerProvider = (*sdklog.LoggerProvider)(nil)

// ShutdownFunc flushes and stops whatever Instrument started.
type ShutdownFunc func(context.Context) error

// Instrument installs the default slog logger for the given level and format.
//
// text and json write to stderr. otlp bridges slog into OpenTelemetry logs and
// exports them over OTLP; the transport follows OTEL_EXPORTER_OTLP_PROTOCOL
// (grpc or http/protobuf, default http). stdout-otel exports OTel records to
// stdout, mainly for local debugging of the otlp pipeline.
func Instrument(ctx context.Context, level slog.Level, format string) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	switch format {
	case "", FormatText:
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return noop, nil
	case FormatJSON:
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return noop, nil
	case FormatOTLP, FormatStdoutOTel:
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}

	exporter, err := newExporter(ctx, format)
	if err != nil {
		return nil, fmt.Errorf("creating log exporter: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(level))),
	)

	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		// Exporter failures must not recurse into the bridged logger
		fmt.Fprintf(os.Stderr, "otel: %v\n", err)
	}))

	slog.SetDefault(otelslog.NewLogger(instrumentationName, otelslog.WithLoggerProvider(provider)))

	return func(ctx context.Context) error {
		return errors.Join(provider.ForceFlush(ctx), provider.Shutdown(ctx))
	}, nil
}

func newExporter(ctx context.Context, format string) (sdklog.Exporter, error) {
	if format == FormatStdoutOTel {
		return stdoutlog.New()
	}

	protocol := os.Getenv("OTEL_EXPORTER_OTLP_LOGS_PROTOCOL")
	if protocol == "" {
		protocol = os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL")
	}

	switch strings.ToLower(protocol) {
	case "grpc":
		return otlploggrpc.New(ctx)
	case "", "http/protobuf", "http/json":
		return otlploghttp.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol: %s", protocol)
	}
}

// severity maps a slog level onto the minimum OTel severity to export.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level < slog.LevelInfo:
		return minsev.SeverityDebug
	case level < slog.LevelWarn:
		return minsev.SeverityInfo
	case level < slog.LevelError:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
