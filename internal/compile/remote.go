package compile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MStee09/rocketreport/internal/rules"
	"github.com/MStee09/rocketreport/internal/schema"
)

// DefaultTimeout bounds a single remote compilation call. The pipeline
// imposes no retry layer; a slow service falls through to the local
// compiler instead.
const DefaultTimeout = 30 * time.Second

// remoteRequest is the wire request to the compilation service.
type remoteRequest struct {
	Prompt          string         `json:"prompt"`
	AvailableFields []schema.Field `json:"availableFields"`
	SampleData      []any          `json:"sampleData,omitempty"`
}

// remoteResponse is the wire response from the compilation service.
type remoteResponse struct {
	CompiledRule *compiledRulePayload `json:"compiledRule,omitempty"`
	Explanation  string               `json:"explanation,omitempty"`
	Error        string               `json:"error,omitempty"`
}

type compiledRulePayload struct {
	Filters []filterPayload `json:"filters"`
}

type filterPayload struct {
	Field    string          `json:"field"`
	Operator rules.Operator  `json:"operator"`
	Value    json.RawMessage `json:"value,omitempty"`
}

// RemoteClient calls the hosted natural-language compilation service.
// It is invoked only during authoring, never while executing a saved rule.
type RemoteClient struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewRemoteClient creates a client for the compilation service.
// An empty token is a precondition failure at call time, not a retryable
// error: the session comes from the collaborating auth subsystem.
func NewRemoteClient(endpoint, token string) *RemoteClient {
	return &RemoteClient{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
}

// Compile sends the prompt to the remote service and decodes the result.
//
// Any failure - missing credentials, network error, non-success status,
// malformed payload - comes back as an error for the caller to fall back
// on. The raw error never reaches the rule's state machine directly.
func (r *RemoteClient) Compile(ctx context.Context, prompt string, fields []schema.Field) (*Result, error) {
	if r.endpoint == "" {
		return nil, fmt.Errorf("remote compiler not configured")
	}
	if r.token == "" {
		return nil, fmt.Errorf("no valid session for remote compiler")
	}

	body, err := json.Marshal(remoteRequest{Prompt: prompt, AvailableFields: fields})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call compile service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("compile service returned %d: %s", resp.StatusCode, string(payload))
	}

	var decoded remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("compile service: %s", decoded.Error)
	}
	if decoded.CompiledRule == nil {
		return nil, fmt.Errorf("compile service returned no compiled rule")
	}

	compiled, err := payloadToCompiledRule(decoded.CompiledRule)
	if err != nil {
		return nil, fmt.Errorf("malformed compiled rule: %w", err)
	}
	return &Result{Compiled: compiled, Explanation: decoded.Explanation, Source: SourceRemote}, nil
}

// payloadToCompiledRule validates and converts the wire shape. Filters with
// an operator/value mismatch make the whole response malformed: a half
// trusted compilation is worse than a fallback.
func payloadToCompiledRule(p *compiledRulePayload) (*rules.CompiledRule, error) {
	compiled := &rules.CompiledRule{Filters: make([]rules.CompiledFilter, 0, len(p.Filters))}
	for i, f := range p.Filters {
		if f.Field == "" {
			return nil, fmt.Errorf("filter %d: missing field", i)
		}
		var v rules.Value
		if len(f.Value) > 0 {
			decoded, err := rules.UnmarshalValue(f.Value)
			if err != nil {
				return nil, fmt.Errorf("filter %d: %w", i, err)
			}
			v = decoded
		}
		if f.Operator == rules.OpBetween && v != nil {
			if r, err := rules.AsRange(v); err == nil {
				v = r
			}
		}
		if err := f.Operator.CheckValue(v); err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		compiled.Filters = append(compiled.Filters, rules.CompiledFilter{
			Field:    f.Field,
			Operator: f.Operator,
			Value:    v,
		})
	}
	return compiled, nil
}
