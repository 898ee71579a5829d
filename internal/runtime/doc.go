// Package runtime owns one document and executes its prompts. It is
// structured into small files by concern:
//
//   - config.go: Config and defaults applied by New.
//   - runtime.go: Runtime type, constructors (New, Load, Create), Save and
//     read-only helpers (Render, Resolve, GetOutputText, Summaries).
//   - run.go: Run, RunWithDependencies, RunAndGetOutputText and the shared
//     execute path that records outputs and emits run events.
//   - batch.go: RunBatch.
//   - serialize.go: Serialize, capturing adapter-native requests as prompts.
//
// Calls on one Runtime are serialised: a run holds the runtime lock until
// its outputs are recorded. Stream callbacks run under that lock and must
// not call back into the Runtime.
//
// Run never writes the document to disk; call Save.
package runtime
