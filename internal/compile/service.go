// Package compile implements authoring-time prompt compilation: a remote
// service call with a deterministic local fallback.
//
// The fallback chain (remote -> local -> error) is part of the authoring
// contract: a temporarily unreachable remote service must not degrade
// authoring below the deterministic baseline.
package compile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MStee09/rocketreport/internal/heuristic"
	"github.com/MStee09/rocketreport/internal/rules"
	"github.com/MStee09/rocketreport/internal/schema"
)

// Source identifies which compiler produced a result.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Result is a successful compilation.
type Result struct {
	Compiled    *rules.CompiledRule
	Explanation string
	Source      Source
}

// ErrUnparseable is returned when both the remote and local compilers fail.
type ErrUnparseable struct {
	Prompt    string
	RemoteErr error // nil when no remote compiler was configured
}

func (e *ErrUnparseable) Error() string {
	return fmt.Sprintf("could not compile prompt %q; try rephrasing with a recognizable condition", e.Prompt)
}

func (e *ErrUnparseable) Unwrap() error { return e.RemoteErr }

// Remote is the interface the fallback chain requires from the remote
// adapter. Satisfied by *RemoteClient; tests substitute fakes.
type Remote interface {
	Compile(ctx context.Context, prompt string, fields []schema.Field) (*Result, error)
}

// Service chains the remote compiler with the local heuristic fallback.
type Service struct {
	remote Remote // nil means local-only
	local  *heuristic.Compiler
	fields []schema.Field
	log    *slog.Logger
}

// NewService builds the compilation chain. remote may be nil for a
// local-only configuration.
func NewService(remote Remote, cat *schema.Catalog, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		remote: remote,
		local:  heuristic.New(cat),
		fields: cat.Fields,
		log:    log,
	}
}

// Compile compiles a prompt, preferring the remote service and falling
// back to the local heuristic compiler on any remote failure.
//
// A failure of both is an *ErrUnparseable; callers record it on the AI
// rule (status=Error) - it never aborts the rest of the rule set.
func (s *Service) Compile(ctx context.Context, prompt string) (*Result, error) {
	var remoteErr error
	if s.remote != nil {
		result, err := s.remote.Compile(ctx, prompt, s.fields)
		if err == nil {
			return result, nil
		}
		remoteErr = err
		s.log.Warn("remote compile failed, falling back to local compiler",
			"error", err)
	}

	if compiled := s.local.Compile(prompt); compiled != nil {
		return &Result{Compiled: compiled, Source: SourceLocal}, nil
	}

	return nil, &ErrUnparseable{Prompt: prompt, RemoteErr: remoteErr}
}
