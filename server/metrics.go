// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: server/metrics.go
// Summary: OpenTelemetry counters for the control socket.
// Usage: Instruments are no-ops until a MeterProvider is registered.

package server

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "texelsplit/server"

// unknownCommand is the command attribute for types missing from the handler
// table, keeping the attribute's value set bounded.
const unknownCommand = "unknown"

// Metrics holds the server's instruments. A nil *Metrics records nothing.
type Metrics struct {
	Connections   metric.Int64Counter
	Commands      metric.Int64Counter
	FramingErrors metric.Int64Counter
	Violations    metric.Int64Counter
}

// NewMetrics creates the instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return newMetrics(otel.Meter(meterName))
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.Connections, err = meter.Int64Counter("control.connections",
		metric.WithDescription("Connections accepted on the control socket"))
	if err != nil {
		return nil, err
	}
	m.Commands, err = meter.Int64Counter("control.commands",
		metric.WithDescription("Commands handled, partitioned by command and result kind"))
	if err != nil {
		return nil, err
	}
	m.FramingErrors, err = meter.Int64Counter("control.framing_errors",
		metric.WithDescription("Connections closed because of a malformed frame"))
	if err != nil {
		return nil, err
	}
	m.Violations, err = meter.Int64Counter("layout.invariant_violations",
		metric.WithDescription("Split tree edits rejected by validation"))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordConnection counts an accepted connection.
func (m *Metrics) RecordConnection(ctx context.Context) {
	if m == nil {
		return
	}
	m.Connections.Add(ctx, 1)
}

// RecordCommand counts a handled command. result is "ok" or an error kind.
func (m *Metrics) RecordCommand(ctx context.Context, cmd, result string) {
	if m == nil {
		return
	}
	m.Commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", cmd),
		attribute.String("result", result),
	))
}

// RecordFramingError counts a connection dropped for a bad frame.
func (m *Metrics) RecordFramingError(ctx context.Context) {
	if m == nil {
		return
	}
	m.FramingErrors.Add(ctx, 1)
}

// RecordViolation counts a rejected tree edit.
func (m *Metrics) RecordViolation(ctx context.Context) {
	if m == nil {
		return
	}
	m.Violations.Add(ctx, 1)
}
