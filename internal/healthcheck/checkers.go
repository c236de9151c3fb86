package healthcheck

import (
	"context"
	"fmt"

	"github.com/clipbotio/clipbot/internal/transport"
)

// ToolChecker reports whether the external download tool is invocable.
type ToolChecker struct {
	name      string
	available func() bool
}

// NewToolChecker creates a checker around an availability probe.
func NewToolChecker(name string, available func() bool) *ToolChecker {
	return &ToolChecker{name: name, available: available}
}

func (c *ToolChecker) ListChecks(_ context.Context) []CheckResult {
	result := CheckResult{ID: "download-tool", Status: StatusOK, Summary: c.name + " available"}
	if c.available == nil || !c.available() {
		result.Status = StatusError
		result.Summary = c.name + " not found on PATH"
	}
	return []CheckResult{result}
}

// TransportChecker reports how many transport connections are live.
type TransportChecker struct {
	registry *transport.Registry
}

// NewTransportChecker creates a checker over the connection registry.
func NewTransportChecker(registry *transport.Registry) *TransportChecker {
	return &TransportChecker{registry: registry}
}

func (c *TransportChecker) ListChecks(_ context.Context) []CheckResult {
	names := c.registry.Names()
	running := c.registry.Running()
	result := CheckResult{
		ID:      "transports",
		Status:  StatusOK,
		Summary: fmt.Sprintf("%d/%d connections running", running, len(names)),
	}
	if running == 0 {
		result.Status = StatusError
	} else if running < len(names) {
		result.Status = StatusWarn
	}
	return []CheckResult{result}
}
