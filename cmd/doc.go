// Package cmd implements the command-line interface of asyncsock. It provides
// a server with a set of built-in handlers and client commands to talk to it.
//
// The package is organized into several subpackages:
//
//   - serve: Starts a server with the handlers echo, ping, sleep, fail and forward
//     and an optional prometheus metrics endpoint
//   - request: Sends single requests (request) and runs benchmarks (perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See asyncsock -help for a list of all commands.
package cmd
