package testutil

import (
	"context"
	"path/filepath"

	"github.com/arthur-debert/packtest/pkg/command"
)

// ScriptedRunner is a command.Runner that records every Spec it receives
// and answers from a script keyed by executable base name.
type ScriptedRunner struct {
	// Calls holds every spec in invocation order.
	Calls []command.Spec

	// Results maps executable base name to the result to return.
	// Unlisted names get a zero Result (exit code 0).
	Results map[string]command.Result

	// Errs maps executable base name to a spawn error to return.
	Errs map[string]error

	// RunFunc, when set, decides the outcome instead of Results/Errs.
	// The spec is still recorded.
	RunFunc func(spec command.Spec) (command.Result, error)
}

// NewScriptedRunner creates an empty ScriptedRunner where every command
// succeeds.
func NewScriptedRunner() *ScriptedRunner {
	return &ScriptedRunner{
		Results: make(map[string]command.Result),
		Errs:    make(map[string]error),
	}
}

// Run implements command.Runner.
func (r *ScriptedRunner) Run(_ context.Context, spec command.Spec) (command.Result, error) {
	r.Calls = append(r.Calls, spec)

	if r.RunFunc != nil {
		return r.RunFunc(spec)
	}

	key := filepath.Base(spec.Name)
	if err, ok := r.Errs[key]; ok {
		return command.Result{ExitCode: -1}, err
	}
	return r.Results[key], nil
}

// CallNames returns the executable base names in invocation order.
func (r *ScriptedRunner) CallNames() []string {
	names := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		names[i] = filepath.Base(c.Name)
	}
	return names
}
