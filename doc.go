// Package duet routes natural-language tasks between two reasoning agents
// and drives an optional draft/review/correction cycle between them.
//
// The package is organized around a small set of components:
//
//   - Classifier: pure functions mapping a prompt to a complexity tier and
//     a task type (ClassifyComplexity, ClassifyTaskType)
//   - Router: deterministic (task type, complexity) -> (adapter, model,
//     review requirement) lookup
//   - Agent: the capability interface both backends implement; ClaudeAgent
//     is the supervisor, GeminiCLI the fast reader
//   - Engine: the orchestrator driving spawn -> draft -> review -> correction
//     through a flowgraph state machine
//   - Ledger: process-wide per-adapter token and cost accumulator
//   - ContextStore: single-slot synopsis file for cross-invocation continuity
//
// Subpackages:
//
//   - config: hierarchical settings resolution (defaults, files, env)
//   - notify: progress event delivery (log, webhook, Slack, multi)
//   - testutil: scripted agent double for tests
//
// # Quick Start
//
//	settings, _ := config.Load(".")
//	engine, err := duet.New(settings)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := engine.Execute(ctx, "Summarize the attached design doc", duet.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Output)
//
// See individual component documentation for detailed usage.
package duet
