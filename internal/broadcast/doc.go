// Package broadcast turns engine events into deliveries: structured log
// lines, terminal output and socket.io emissions.
//
// Every event is addressed to the run's private channel
// "job-chain.<chain>.<run_id>" plus each channel the chain declares, with
// "{user}" replaced by the run's user.
package broadcast
