// Package provisioning provides the task contract and the phase sequencer
// that drives task modules through a plan.
//
// # Phases
//
// A plan runs six lifecycle phases in a fixed order:
//
//   - beforeInstall, once per module, before any per-task work
//   - beforeTask, executeTask, afterTask, per module in declaration order
//   - afterInstall, once per module, after every module completed
//
// The separate uninstall plan calls only the uninstall hooks, in reverse
// declaration order.
//
// # Core Types
//
// Task names a module. Each phase has its own single-method interface
// (BeforeInstaller, TaskExecutor, ...) and a module implements only the
// hooks it needs. Context carries the shared option tree, the command
// executor, the filesystem, the logger, and the observer. Sequencer runs
// the phases and stops at the first failing hook with a PhaseError.
package provisioning
