// Package daemonctl orchestrates the service process from the client side:
// launching a detached daemon, waiting for its endpoint to come up and
// requesting shutdown.
package daemonctl
