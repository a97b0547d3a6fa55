// Package polling provides the fallback transport: periodic full-record
// fetches from the Job API that cover for a degraded push channel.
//
// The Scheduler decides whether polling should run at all; it stays silent
// while the push channel is open or while the job has nothing in flight. The
// Poller turns that decision into a loop that fetches the job record and
// merges it into the cache through the same path push deltas take.
package polling
