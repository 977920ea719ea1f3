package tracer

import "github.com/rs/zerolog"

// LogTracer logs every scheduling event at the configured level, with
// structured fields for node kind/index/name matching the
// CreateSystemLogger/loadSystemIntoEvent field-naming style.
type LogTracer struct {
	Logger zerolog.Logger
	Level  zerolog.Level
}

// NewLogTracer builds a LogTracer logging at level.
func NewLogTracer(logger zerolog.Logger, level zerolog.Level) *LogTracer {
	return &LogTracer{Logger: logger, Level: level}
}

func (t *LogTracer) event() *zerolog.Event {
	return t.Logger.WithLevel(t.Level)
}

func (t *LogTracer) nodeEvent(node Node) *zerolog.Event {
	return t.event().
		Str("node_kind", node.Kind.String()).
		Int("node_index", node.Index).
		Str("node_name", node.Name)
}

func (t *LogTracer) TickStart() { t.event().Msg("tick start") }

func (t *LogTracer) SystemStart(node Node) { t.nodeEvent(node).Msg("system start") }

func (t *LogTracer) SystemEnd(node Node) { t.nodeEvent(node).Msg("system end") }

func (t *LogTracer) PartitionComplete(node Node) { t.nodeEvent(node).Msg("partition complete") }

func (t *LogTracer) ReconcileStart() { t.event().Msg("reconcile start") }

func (t *LogTracer) ReconcileEnd() { t.event().Msg("reconcile end") }

var _ Tracer = (*LogTracer)(nil)
