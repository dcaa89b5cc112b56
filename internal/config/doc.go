// Package config holds the configuration context threaded through a
// provisioning plan.
//
// [Options] is a tree of named namespaces (xt, pg, nginx, sys.policy, ...)
// addressed by dotted paths. Task modules declare the options they accept
// with a [Schema]; the schema is applied before any hook runs so that
// defaults are present and validators have rejected bad input. [Render]
// expands {{.xt.name}} style placeholders against the tree and fails on
// any path that is not set.
package config
