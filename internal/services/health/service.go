package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/shared/server/respond"
)

const checkTimeout = 2 * time.Second

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// Service runs readiness checks against the service's dependencies.
type Service struct {
	mu     sync.RWMutex
	checks map[string]Check
}

// NewService constructs a health service with no checks.
func NewService() *Service {
	return &Service{checks: map[string]Check{}}
}

// Add registers a named readiness check.
func (s *Service) Add(name string, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// Report is the readiness result. Checks maps each check name to "ok" or the
// failure message.
type Report struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks"`
}

// Ready runs every check concurrently, each bounded by checkTimeout.
func (s *Service) Ready(ctx context.Context) Report {
	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]Check, len(names))
	for i, name := range names {
		checks[i] = s.checks[name]
	}
	s.mu.RUnlock()

	results := make([]error, len(names))
	var wg sync.WaitGroup
	for i := range checks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			results[i] = checks[i](cctx)
		}(i)
	}
	wg.Wait()

	report := Report{OK: true, Checks: make(map[string]string, len(names))}
	for i, name := range names {
		if results[i] != nil {
			report.OK = false
			report.Checks[name] = results[i].Error()
			continue
		}
		report.Checks[name] = "ok"
	}
	return report
}

// RegisterRoutes mounts liveness and readiness probes.
func (s *Service) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", func(c *gin.Context) {
		respond.OK(c, gin.H{"ok": true})
	})
	rg.GET("/health/ready", func(c *gin.Context) {
		report := s.Ready(c.Request.Context())
		if !report.OK {
			respond.JSON(c, http.StatusServiceUnavailable, report)
			return
		}
		respond.OK(c, report)
	})
}
