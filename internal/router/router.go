package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nidhogg/praximous/internal/provider"
)

// Request is one model call to be routed across the provider pool.
type Request struct {
	TaskType string
	Prompt   string
	Provider string // explicit override, empty for priority order
	Params   map[string]string
}

// Result is a successful routing outcome.
type Result struct {
	Data         map[string]interface{}
	ProviderUsed string
	Attempts     int
}

// AttemptFailure records why one candidate was skipped over.
type AttemptFailure struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

// AllProvidersFailedError is returned when every candidate in a routing
// attempt failed. It carries the ordered per-candidate failure trail so
// the caller and the audit record can see which providers were tried.
type AllProvidersFailedError struct {
	Failures []AttemptFailure
}

func (e *AllProvidersFailedError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %s", f.Provider, f.Reason)
	}
	return "all providers failed: [" + strings.Join(parts, "; ") + "]"
}

// Router executes model calls against an ordered candidate list with
// bounded, deterministic failover: each candidate is tried at most once
// per routing attempt, in priority order, under its configured timeout.
type Router struct {
	registry *provider.Registry
	logger   *zap.Logger
}

// New creates a Router over the given provider registry.
func New(registry *provider.Registry, logger *zap.Logger) *Router {
	return &Router{registry: registry, logger: logger}
}

// Route runs one failover pass. It returns the first successful
// candidate's result, or an *AllProvidersFailedError once the list is
// exhausted or the inbound context deadline is hit.
func (r *Router) Route(ctx context.Context, req *Request) (*Result, error) {
	candidates, err := r.registry.CandidatesFor(req.Provider)
	if err != nil {
		return nil, err
	}

	var failures []AttemptFailure
	for i, cand := range candidates {
		// The overall request deadline trumps remaining candidates.
		if ctx.Err() != nil {
			failures = append(failures, AttemptFailure{
				Provider: cand.Name,
				Reason:   "not attempted: " + ctx.Err().Error(),
			})
			r.logger.Warn("routing aborted by request deadline",
				zap.String("task_type", req.TaskType),
				zap.Int("attempts", i))
			return nil, &AllProvidersFailedError{Failures: failures}
		}

		result, callErr := r.callCandidate(ctx, cand, req)
		if callErr == nil {
			r.logger.Info("provider call succeeded",
				zap.String("task_type", req.TaskType),
				zap.String("provider", cand.Name),
				zap.Int("attempts", i+1))
			return &Result{
				Data:         result,
				ProviderUsed: cand.Name,
				Attempts:     i + 1,
			}, nil
		}

		failures = append(failures, AttemptFailure{
			Provider: cand.Name,
			Reason:   callErr.Error(),
		})
		r.logger.Warn("provider call failed, trying next candidate",
			zap.String("task_type", req.TaskType),
			zap.String("provider", cand.Name),
			zap.Error(callErr))
	}

	r.logger.Error("all provider candidates exhausted",
		zap.String("task_type", req.TaskType),
		zap.Int("candidates", len(candidates)))
	return nil, &AllProvidersFailedError{Failures: failures}
}

// callCandidate invokes one provider under its configured timeout.
// A timeout is indistinguishable from a transport failure for failover
// purposes.
func (r *Router) callCandidate(ctx context.Context, cand *provider.Entry, req *Request) (map[string]interface{}, error) {
	callCtx, cancel := context.WithTimeout(ctx, cand.Timeout)
	defer cancel()

	params := make(map[string]string, len(cand.Params)+len(req.Params))
	for k, v := range cand.Params {
		params[k] = v
	}
	for k, v := range req.Params {
		params[k] = v
	}

	start := time.Now()
	resp, err := cand.Client.Generate(callCtx, &provider.GenerateRequest{
		Model:  cand.Model,
		Prompt: req.Prompt,
		Params: params,
	})
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"provider":   resp.Provider,
		"model":      resp.Model,
		"text":       resp.Text,
		"latency_ms": time.Since(start).Milliseconds(),
	}, nil
}
