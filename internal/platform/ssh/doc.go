// Package ssh runs provisioning commands on a remote machine.
//
// [Client] implements shell.Executor over an SSH session so that a plan can
// target a freshly installed host instead of the machine the CLI runs on.
// Connections are opened per command with backoff, which tolerates a host
// that is still booting.
//
// Host key verification is disabled unless HostKeyCallback is set.
package ssh
