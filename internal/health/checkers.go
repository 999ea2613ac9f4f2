// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ManuGH/diyepg/internal/resilience"
)

// BreakerChecker reports the circuit breaker of an upstream source.
type BreakerChecker struct {
	name  string
	state func() resilience.State
}

// NewBreakerChecker creates a checker reading state on every check.
func NewBreakerChecker(name string, state func() resilience.State) *BreakerChecker {
	return &BreakerChecker{name: name, state: state}
}

func (c *BreakerChecker) Name() string { return c.name }

func (c *BreakerChecker) Check(context.Context) CheckResult {
	switch st := c.state(); st {
	case resilience.StateOpen:
		return CheckResult{Status: StatusUnhealthy, Message: "circuit breaker open"}
	case resilience.StateHalfOpen:
		return CheckResult{Status: StatusDegraded, Message: "circuit breaker probing"}
	default:
		return CheckResult{Status: StatusHealthy, Message: "circuit breaker " + string(st)}
	}
}

// FileChecker checks that a local guide file exists and is not empty.
type FileChecker struct {
	name string
	path string
}

// NewFileChecker creates a checker for file existence
func NewFileChecker(name, path string) *FileChecker {
	return &FileChecker{name: name, path: path}
}

func (c *FileChecker) Name() string { return c.name }

func (c *FileChecker) Check(context.Context) CheckResult {
	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Status: StatusUnhealthy, Error: "file not found", Message: c.path}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected file, got directory"}
	}
	if info.Size() == 0 {
		return CheckResult{Status: StatusUnhealthy, Message: "file is empty"}
	}
	return CheckResult{Status: StatusHealthy, Message: "file exists and readable"}
}

// PingChecker wraps a connectivity probe such as a Redis PING. A failing
// probe only degrades the service.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker creates a checker calling ping.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// AnyChecker groups alternatives, e.g. fallback sources: it is unhealthy
// only when every member is, and degraded when some member is not healthy.
type AnyChecker struct {
	name    string
	members []Checker
}

// NewAnyChecker groups members under name.
func NewAnyChecker(name string, members ...Checker) *AnyChecker {
	return &AnyChecker{name: name, members: members}
}

func (c *AnyChecker) Name() string { return c.name }

func (c *AnyChecker) Check(ctx context.Context) CheckResult {
	if len(c.members) == 0 {
		return CheckResult{Status: StatusUnhealthy, Message: "nothing configured"}
	}
	usable := 0
	var failing []string
	for _, m := range c.members {
		res := m.Check(ctx)
		if res.Status != StatusUnhealthy {
			usable++
		}
		if res.Status != StatusHealthy {
			failing = append(failing, fmt.Sprintf("%s: %s", m.Name(), describe(res)))
		}
	}
	sort.Strings(failing)

	result := CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d of %d usable", usable, len(c.members)),
	}
	switch {
	case usable == 0:
		result.Status = StatusUnhealthy
	case len(failing) > 0:
		result.Status = StatusDegraded
	}
	if len(failing) > 0 {
		result.Error = strings.Join(failing, "; ")
	}
	return result
}

func describe(res CheckResult) string {
	parts := []string{string(res.Status)}
	if res.Message != "" {
		parts = append(parts, res.Message)
	}
	if res.Error != "" {
		parts = append(parts, res.Error)
	}
	return strings.Join(parts, ", ")
}
