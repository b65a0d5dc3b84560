// Package preflight validates the environment before work starts: directory
// existence and write access for output and log locations.
package preflight
