// Package password generates the one-time account passwords handed to new
// OS users. Passwords are drawn from crypto/rand over an alphabet without
// shell metacharacters, so they can be placed on a command line unquoted.
package password
