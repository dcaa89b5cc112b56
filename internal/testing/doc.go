// Package testing provides fakes and builders shared by unit and e2e tests.
//
//   - FakeExecutor: scripted shell.Executor that records every command
//   - OptionsBuilder: options tree pre-filled with a typical installation
//
// Usage:
//
//	ex := testing.NewFakeExecutor().
//	    On("id -u acme", shell.Result{ExitCode: 1})
//	opts := testing.NewOptionsBuilder().WithName("acme").Build()
package testing
