package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nidhogg/praximous/internal/audit"
	"github.com/nidhogg/praximous/internal/provider"
	"github.com/nidhogg/praximous/internal/router"
	"github.com/nidhogg/praximous/internal/skill"
)

// Error kinds surfaced in the response envelope. ValidationError comes
// from the skill layer (skill.ErrKindValidation); the rest are assigned
// here.
const (
	ErrKindSkillNotFound      = "SkillNotFound"
	ErrKindProviderError      = "ProviderError"
	ErrKindAllProvidersFailed = "AllProvidersFailed"
	ErrKindInternal           = "InternalError"
)

// Request is the inbound task shape handed over by the API layer.
// Params carries any extra fields beyond the well-known ones.
type Request struct {
	TaskType     string
	Operation    string
	Prompt       string
	ProviderName string
	Params       map[string]interface{}
}

// Response is the external envelope. Every response, success or failure,
// carries the request id correlating to exactly one audit record.
type Response struct {
	Success         bool                   `json:"success"`
	Data            map[string]interface{} `json:"data,omitempty"`
	Error           string                 `json:"error,omitempty"`
	Details         string                 `json:"details,omitempty"`
	RequestID       string                 `json:"request_id"`
	ExecutionTimeMS int64                  `json:"execution_time_ms"`
	ProviderUsed    string                 `json:"provider_used,omitempty"`
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithAllowedSkills restricts dispatch to the given skill names. Skills
// outside the set resolve as SkillNotFound. An external license layer
// supplies the set; the dispatcher only honors it.
func WithAllowedSkills(names []string) Option {
	return func(d *Dispatcher) {
		d.allowed = make(map[string]struct{}, len(names))
		for _, n := range names {
			d.allowed[n] = struct{}{}
		}
	}
}

// WithRequestTimeout bounds the whole pipeline for one request,
// including all provider failover attempts.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// Dispatcher is the single entry point composing the skill registry, the
// failover router and the audit sink. It owns request-id generation,
// timing and error translation; no fault escapes unstructured.
type Dispatcher struct {
	skills  *skill.Registry
	sink    *audit.Sink
	logger  *zap.Logger
	allowed map[string]struct{} // nil means all skills permitted
	timeout time.Duration
}

// New creates a Dispatcher.
func New(skills *skill.Registry, sink *audit.Sink, logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{skills: skills, sink: sink, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Process runs one request through resolve → execute → audit and returns
// a well-formed envelope in every case.
func (d *Dispatcher) Process(ctx context.Context, req *Request) *Response {
	requestID := uuid.NewString()
	start := time.Now()

	resp := d.run(ctx, requestID, req)
	resp.RequestID = requestID
	resp.ExecutionTimeMS = time.Since(start).Milliseconds()

	d.record(req, resp)
	return resp
}

func (d *Dispatcher) run(ctx context.Context, requestID string, req *Request) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic in dispatch pipeline",
				zap.String("request_id", requestID),
				zap.String("task_type", req.TaskType),
				zap.Any("panic", r))
			resp = &Response{
				Success: false,
				Error:   ErrKindInternal,
				Details: "An unexpected internal error occurred.",
			}
		}
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if d.allowed != nil {
		if _, ok := d.allowed[req.TaskType]; !ok {
			d.logger.Warn("skill outside permitted capability set",
				zap.String("request_id", requestID),
				zap.String("task_type", req.TaskType))
			return &Response{
				Success: false,
				Error:   ErrKindSkillNotFound,
				Details: "Skill '" + req.TaskType + "' not found.",
			}
		}
	}

	sk, err := d.skills.Resolve(req.TaskType)
	if err != nil {
		d.logger.Warn("skill not found",
			zap.String("request_id", requestID),
			zap.String("task_type", req.TaskType))
		return &Response{
			Success: false,
			Error:   ErrKindSkillNotFound,
			Details: "Skill '" + req.TaskType + "' not found.",
		}
	}

	d.logger.Info("dispatching request",
		zap.String("request_id", requestID),
		zap.String("task_type", req.TaskType),
		zap.String("operation", req.Operation))

	skResp, execErr := sk.Execute(ctx, &skill.Input{
		TaskType:  req.TaskType,
		Operation: req.Operation,
		Prompt:    req.Prompt,
		Provider:  req.ProviderName,
		Params:    req.Params,
	})
	if execErr != nil {
		return d.classify(requestID, req, execErr)
	}

	return &Response{
		Success:      skResp.Success,
		Data:         skResp.Data,
		Error:        skResp.Error,
		Details:      skResp.Details,
		ProviderUsed: skResp.Provider,
	}
}

// classify translates pipeline errors into the envelope taxonomy.
func (d *Dispatcher) classify(requestID string, req *Request, err error) *Response {
	var exhausted *router.AllProvidersFailedError
	switch {
	case errors.As(err, &exhausted):
		details, _ := json.Marshal(exhausted.Failures)
		d.logger.Error("all providers failed",
			zap.String("request_id", requestID),
			zap.String("task_type", req.TaskType),
			zap.Int("candidates_tried", len(exhausted.Failures)))
		return &Response{
			Success: false,
			Error:   ErrKindAllProvidersFailed,
			Details: string(details),
		}
	case errors.Is(err, provider.ErrNoProviderAvailable):
		d.logger.Error("no provider available",
			zap.String("request_id", requestID),
			zap.String("task_type", req.TaskType))
		return &Response{
			Success: false,
			Error:   ErrKindAllProvidersFailed,
			Details: "No enabled AI provider is available.",
		}
	default:
		d.logger.Error("unexpected dispatch error",
			zap.String("request_id", requestID),
			zap.String("task_type", req.TaskType),
			zap.Error(err))
		return &Response{
			Success: false,
			Error:   ErrKindInternal,
			Details: "An unexpected internal error occurred.",
		}
	}
}

// record appends the audit entry for a finished request. Failures are
// logged, never surfaced: the response has already been produced.
func (d *Dispatcher) record(req *Request, resp *Response) {
	status := audit.StatusSuccess
	var payload []byte
	if resp.Success {
		payload, _ = json.Marshal(resp.Data)
	} else {
		status = audit.StatusError
		payload, _ = json.Marshal(map[string]string{
			"error":   resp.Error,
			"details": resp.Details,
		})
	}

	rec := &audit.Record{
		RequestID:    resp.RequestID,
		Timestamp:    time.Now().UTC(),
		TaskType:     req.TaskType,
		Operation:    req.Operation,
		Provider:     resp.ProviderUsed,
		Status:       status,
		LatencyMS:    resp.ExecutionTimeMS,
		Prompt:       req.Prompt,
		ResponseData: string(payload),
	}

	// Audit writes use a fresh context: the request deadline may already
	// be spent and the trail still has to be written.
	auditCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.sink.Append(auditCtx, rec); err != nil {
		d.logger.Warn("audit append failed",
			zap.String("request_id", resp.RequestID),
			zap.Error(err))
	}
}
