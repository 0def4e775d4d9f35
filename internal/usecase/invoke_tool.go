package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/i2y/bqmcp/internal/domain"
	"github.com/i2y/bqmcp/internal/metrics"
)

const tracerName = "github.com/i2y/bqmcp/internal/usecase"

// InvokeToolUseCase handles receiving a tool invocation request and executing it.
type InvokeToolUseCase struct {
	repository ToolRepository
	tracer     trace.Tracer
	logger     *slog.Logger

	mu      sync.Mutex
	schemas map[string]*jsonschema.Schema // compiled input schemas by tool name
}

// NewInvokeToolUseCase creates a new InvokeToolUseCase.
func NewInvokeToolUseCase(repo ToolRepository, logger *slog.Logger) *InvokeToolUseCase {
	return &InvokeToolUseCase{
		repository: repo,
		tracer:     otel.Tracer(tracerName),
		logger:     logger.With("usecase", "InvokeTool"),
		schemas:    make(map[string]*jsonschema.Schema),
	}
}

// Execute finds the tool, validates params against its input schema and runs
// its handler. Invalid params never reach the handler; they produce a failure
// result. An error is returned only when the tool does not exist.
func (uc *InvokeToolUseCase) Execute(ctx context.Context, toolName string, params map[string]interface{}) (*domain.ToolResult, error) {
	log := uc.logger.With(slog.String("tool_name", toolName))
	log.Info("Executing tool invocation")

	ctx, span := uc.tracer.Start(ctx, "tool "+toolName, trace.WithAttributes(attribute.String("mcp.tool.name", toolName)))
	defer span.End()
	start := time.Now()

	// 1. Find Tool Definition
	tool, err := uc.repository.FindToolByName(ctx, toolName)
	if err != nil {
		log.Warn("Tool definition not found", slog.Any("error", err))
		span.SetStatus(codes.Error, "tool not found")
		return nil, fmt.Errorf("tool '%s' definition not found: %w", toolName, err)
	}

	// 2. Find Handler
	handler, err := uc.repository.FindHandlerByName(ctx, toolName)
	if err != nil {
		log.Error("Tool handler not found", slog.Any("error", err))
		span.SetStatus(codes.Error, "handler not found")
		return nil, fmt.Errorf("tool '%s' handler not found: %w", toolName, err)
	}

	// 3. Validate Parameters against tool.InputSchema
	args, err := uc.validate(*tool, params)
	if err != nil {
		log.Warn("Invalid input parameters", slog.Any("error", err))
		metrics.ToolCallsTotal.WithLabelValues(toolName, metrics.StatusInvalid).Inc()
		span.SetStatus(codes.Error, "invalid arguments")
		return domain.Failure(err.Error()), nil
	}

	// 4. Run the handler
	result := handler(ctx, args)
	if result == nil {
		result = domain.Failure("tool returned no result")
	}

	duration := time.Since(start)
	metrics.ToolCallDuration.WithLabelValues(toolName).Observe(duration.Seconds())
	if result.IsError {
		metrics.ToolCallsTotal.WithLabelValues(toolName, metrics.StatusError).Inc()
		span.SetStatus(codes.Error, result.Text())
		log.Info("Tool invocation returned an error result", slog.Duration("duration", duration))
		return result, nil
	}

	metrics.ToolCallsTotal.WithLabelValues(toolName, metrics.StatusSuccess).Inc()
	span.SetStatus(codes.Ok, "")
	log.Info("Tool invocation successful", slog.Duration("duration", duration))
	return result, nil
}

// validate normalizes params through JSON and checks them against the tool's
// input schema. The normalized arguments are returned.
func (uc *InvokeToolUseCase) validate(tool domain.Tool, params map[string]interface{}) (map[string]any, error) {
	if params == nil {
		params = map[string]interface{}{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%w for tool %s: %v", ErrInvalidArguments, tool.Name, err)
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("%w for tool %s: %v", ErrInvalidArguments, tool.Name, err)
	}

	schema, err := uc.compiledSchema(tool)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(args); err != nil {
		return nil, fmt.Errorf("%w for tool %s: %v", ErrInvalidArguments, tool.Name, err)
	}
	return args, nil
}

func (uc *InvokeToolUseCase) compiledSchema(tool domain.Tool) (*jsonschema.Schema, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if s, ok := uc.schemas[tool.Name]; ok {
		return s, nil
	}
	raw, err := tool.InputSchema.RawSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to encode input schema of tool %s: %w", tool.Name, err)
	}
	s, err := jsonschema.CompileString("", string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to compile input schema of tool %s: %w", tool.Name, err)
	}
	uc.schemas[tool.Name] = s
	return s, nil
}
