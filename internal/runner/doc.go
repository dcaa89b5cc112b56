// Package runner applies an error policy to shell commands.
//
// Two policies exist and they are deliberately asymmetric:
//
//   - [BestEffort] runs every command of a [Sequence] in declared order. A
//     command that exits non-zero is logged and recorded as [Ignored]; the
//     next command still runs. Re-running a plan hits "already exists"
//     conditions that are not real failures.
//   - [FailFast] runs [Step]s in order and stops at the first non-zero exit,
//     returning a [*BuildFailure] that carries the captured output.
//
// Both report per-command [Outcome]s, so callers never infer the policy
// from whether an error happened to be swallowed.
package runner
