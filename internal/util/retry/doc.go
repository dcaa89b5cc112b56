// Package retry provides exponential backoff for transport-level failures.
//
// [Do] is used for establishing SSH connections to a remote target and for
// downloading installer assets. Provisioning commands themselves are never
// retried: a plan either logs and continues or aborts.
package retry
