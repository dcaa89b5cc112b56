// Package shell defines the command executor used by task modules.
//
// An [Executor] runs one command string to completion and reports its exit
// code and captured output. A non-zero exit is not an error at this layer:
// callers decide whether a failure is ignorable or fatal. Errors are
// reserved for commands that could not be run at all.
//
// [Local] runs commands through /bin/sh on the current machine. The ssh
// package provides an implementation for a remote target.
package shell
