// Package pipe provides in-memory adapters. New returns two connected ends;
// Transport wraps this into a server and client transport for running both
// roles inside one process (tests, embedding).
//
// Delivery is asynchronous: Send queues the frame and returns, the sink of
// the other end is called from a dedicated goroutine in send order. Send
// blocks when the queue of the other end is full.
package pipe
