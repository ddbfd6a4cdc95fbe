package thimble

import (
	"context"
	"sort"
	"sync"
	"time"
)

type HealthStatus string

const (
	HealthStatusUp      HealthStatus = "up"
	HealthStatusDown    HealthStatus = "down"
	HealthStatusUnknown HealthStatus = "unknown"
)

type HealthReport struct {
	Name    string
	Status  HealthStatus
	Error   error
	Latency time.Duration
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type ReadinessChecker interface {
	ReadinessCheck(ctx context.Context) error
}

func (c *Container) Live(ctx context.Context) error {
	reports := c.checkHealth(ctx)
	for _, r := range reports {
		if r.Status == HealthStatusDown {
			return errHealthCheckFailed(r.Name, r.Error)
		}
	}
	return nil
}

func (c *Container) Ready(ctx context.Context) error {
	reports := c.checkReadiness(ctx)
	for _, r := range reports {
		if r.Status == HealthStatusDown {
			return errHealthCheckFailed(r.Name, r.Error)
		}
	}
	return nil
}

func (c *Container) Health(ctx context.Context) []HealthReport {
	return c.checkHealth(ctx)
}

func (c *Container) checkHealth(ctx context.Context) []HealthReport {
	return c.runChecks(ctx, func(instance any) (func(context.Context) error, bool) {
		hc, ok := instance.(HealthChecker)
		if !ok {
			return nil, false
		}
		return hc.HealthCheck, true
	})
}

func (c *Container) checkReadiness(ctx context.Context) []HealthReport {
	return c.runChecks(ctx, func(instance any) (func(context.Context) error, bool) {
		rc, ok := instance.(ReadinessChecker)
		if !ok {
			return nil, false
		}
		return rc.ReadinessCheck, true
	})
}

// runChecks runs check concurrently on every finished singleton that
// supports it. Components that were never built are not checked.
func (c *Container) runChecks(
	ctx context.Context,
	checkerOf func(instance any) (func(context.Context) error, bool),
) []HealthReport {
	var reports []HealthReport
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, instance := range c.internal.Instances() {
		check, ok := checkerOf(instance)
		if !ok {
			continue
		}

		wg.Add(1)
		go func(name string, check func(context.Context) error) {
			defer wg.Done()

			start := time.Now()
			err := check(ctx)

			report := HealthReport{
				Name:    name,
				Latency: time.Since(start),
				Status:  HealthStatusUp,
			}
			if err != nil {
				report.Status = HealthStatusDown
				report.Error = err
			}

			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
		}(name, check)
	}

	wg.Wait()
	sort.Slice(reports, func(i, j int) bool { return reports[i].Name < reports[j].Name })
	return reports
}
