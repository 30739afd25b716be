package common

import (
	"github.com/hashicorp/go-metrics"
)

var (
	MetricRequestOutCount          = []string{"asyncsock", "request", "out", "count"}
	MetricRequestOutErrorCount     = []string{"asyncsock", "request", "out", "error", "count"}
	MetricRequestInCount           = []string{"asyncsock", "request", "in", "count"}
	MetricRequestUnhandledCount    = []string{"asyncsock", "request", "in", "unhandled", "count"}
	MetricResponseOutCount         = []string{"asyncsock", "response", "out", "count"}
	MetricResponseOutErrorCount    = []string{"asyncsock", "response", "out", "error", "count"}
	MetricResponseInCount          = []string{"asyncsock", "response", "in", "count"}
	MetricResponseUnmatchedCount   = []string{"asyncsock", "response", "in", "unmatched", "count"}
	MetricHandlerErrorCount        = []string{"asyncsock", "handler", "error", "count"}
	MetricHandlerDurationMs        = []string{"asyncsock", "handler", "duration", "ms"}
	MetricNonProtocolCount         = []string{"asyncsock", "frame", "nonprotocol", "count"}
	MetricPendingRequests          = []string{"asyncsock", "pending", "requests"}
	MetricAttachedSockets          = []string{"asyncsock", "sockets", "attached"}
	MetricPeerDisconnectFailCount  = []string{"asyncsock", "pending", "disconnect", "failed", "count"}
	MetricSocketAttachRefusedCount = []string{"asyncsock", "sockets", "attach", "refused", "count"}
)

type TelemetryLabel string

var (
	LabelEngine      TelemetryLabel = "engine"
	LabelRequestType TelemetryLabel = "request_type"
	LabelStatusCode  TelemetryLabel = "status_code"
	LabelTransport   TelemetryLabel = "transport"
)

// M builds a metric label
func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}
