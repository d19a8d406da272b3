// Package cluster handles the primary side of the replication protocol:
//
//   - fan-out of log entries to every secondary
//   - per-host retry tasks that never give up on a message
//   - heartbeat monitoring with a three-state health machine
//   - quorum arithmetic that gates writes
//
// The replicator owns every background goroutine it spawns. Retry tasks are
// tied to the replicator's lifetime, not to the client request that created
// them: a request may return "write concern unmet" while the tasks keep
// delivering the message until every secondary has it.
package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Timing constants for heartbeats and delivery retries.
const (
	HeartbeatInterval   = 5 * time.Second
	HeartbeatTimeout    = 1 * time.Second
	RetryInitialBackoff = 1 * time.Second
	RetryMaxBackoff     = 30 * time.Second

	// How long a retry task waits before re-checking a host the health
	// table currently marks Unhealthy.
	unhealthyRetryPause = 5 * time.Second
)

// Replicator fans log entries out to the configured secondaries and tracks
// their health. Safe for concurrent use.
type Replicator struct {
	hosts     []string
	timeout   time.Duration
	transport Transport
	logger    zerolog.Logger

	mu     sync.RWMutex
	health map[string]NodeStatus

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	unhealthyPause    time.Duration
}

// NewReplicator creates a Replicator for a fixed set of secondary hosts.
// timeout is the per-call deadline for append RPCs. Every host starts out
// Healthy; the heartbeat loop corrects that within one interval.
func NewReplicator(hosts []string, timeout time.Duration, transport Transport, logger zerolog.Logger) *Replicator {
	ctx, cancel := context.WithCancel(context.Background())

	health := make(map[string]NodeStatus, len(hosts))
	for _, h := range hosts {
		health[h] = StatusHealthy
	}

	return &Replicator{
		hosts:     hosts,
		timeout:   timeout,
		transport: transport,
		logger:    logger,
		health:    health,
		ctx:       ctx,
		cancel:    cancel,

		heartbeatInterval: HeartbeatInterval,
		heartbeatTimeout:  HeartbeatTimeout,
		initialBackoff:    RetryInitialBackoff,
		maxBackoff:        RetryMaxBackoff,
		unhealthyPause:    unhealthyRetryPause,
	}
}

// Start launches the heartbeat loop.
func (r *Replicator) Start() {
	r.logger.Info().Strs("hosts", r.hosts).Msg("replicator: starting heartbeat monitor")

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.heartbeatInterval)
		defer ticker.Stop()

		// Probe once right away so the health table reflects reality
		// before the first interval elapses.
		r.checkAllHosts()

		for {
			select {
			case <-ticker.C:
				r.checkAllHosts()
			case <-r.ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the heartbeat loop and every live retry task, then waits for
// them to terminate. Undelivered messages are abandoned.
func (r *Replicator) Stop() {
	r.logger.Info().Msg("replicator: stopping background tasks")
	r.cancel()
	r.wg.Wait()
}

// ─── Quorum & health ─────────────────────────────────────────────────────────

// QuorumOK reports whether a strict majority of cluster nodes is Healthy.
// The primary always counts as one Healthy node.
func (r *Replicator) QuorumOK() bool {
	total := len(r.hosts) + 1
	needed := total/2 + 1

	r.mu.RLock()
	defer r.mu.RUnlock()

	healthy := 1 // self
	for _, status := range r.health {
		if status == StatusHealthy {
			healthy++
		}
	}
	return healthy >= needed
}

// Status returns the current health state of one host.
func (r *Replicator) Status(host string) NodeStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.health[host]
}

// HealthSnapshot returns a copy of the health table keyed by host, with
// human-readable labels.
func (r *Replicator) HealthSnapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]string, len(r.health))
	for host, status := range r.health {
		snapshot[host] = status.String()
	}
	return snapshot
}

// checkAllHosts probes every secondary concurrently and waits for the
// round to finish. Each probe is bounded by the heartbeat timeout, so one
// round never outlives an interval.
func (r *Replicator) checkAllHosts() {
	var wg sync.WaitGroup
	for _, host := range r.hosts {
		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			r.checkHost(host)
		}(host)
	}
	wg.Wait()
}

// checkHost performs a single heartbeat and advances the host's state
// machine: any success promotes straight to Healthy, a failure demotes one
// step per cycle.
func (r *Replicator) checkHost(host string) {
	ctx, cancel := context.WithTimeout(r.ctx, r.heartbeatTimeout)
	err := r.transport.Heartbeat(ctx, host)
	cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.health[host]
	if err == nil {
		if current != StatusHealthy {
			r.logger.Info().Str("host", host).Msg("heartbeat: node recovered")
		}
		r.health[host] = StatusHealthy
		return
	}

	next := current.Demote()
	if next == current {
		return
	}
	r.health[host] = next

	switch next {
	case StatusSuspected:
		r.logger.Warn().Str("host", host).Err(err).Msg("heartbeat: node suspected")
	case StatusUnhealthy:
		r.logger.Error().Str("host", host).Err(err).Msg("heartbeat: node unhealthy")
	}
}

// ─── Replication fan-out ─────────────────────────────────────────────────────

// Replicate delivers one log entry to all secondaries and waits until
// writeConcern-1 of them have acknowledged their first delivery attempt.
//
// One retry task per host is spawned regardless of the write concern; tasks
// keep redelivering failed entries in the background for as long as the
// replicator lives. Replicate itself only observes each task's first
// outcome: it returns true on the target-th ACK, or false once every host
// has reported without reaching the target. It never blocks on background
// retries.
func (r *Replicator) Replicate(ctx context.Context, id int64, content string, writeConcern int) bool {
	if !r.QuorumOK() {
		r.logger.Error().Int64("id", id).Msg("replicate: quorum lost, rejecting write")
		return false
	}

	target := r.targetAcks(writeConcern)

	// Buffered so background tasks can report their first outcome after
	// this call has already returned.
	results := make(chan bool, len(r.hosts))
	for _, host := range r.hosts {
		r.spawnRetryTask(host, id, content, results)
	}

	if target == 0 {
		return true
	}

	acks := 0
	for resolved := 0; resolved < len(r.hosts); resolved++ {
		select {
		case ok := <-results:
			if ok {
				acks++
				if acks >= target {
					return true
				}
			}
		case <-ctx.Done():
			return false
		case <-r.ctx.Done():
			return false
		}
	}
	return false
}

// targetAcks converts a write concern into the number of remote ACKs to
// wait for. The primary's own append always counts, so concern w needs w-1
// remote confirmations, capped at the number of secondaries.
func (r *Replicator) targetAcks(writeConcern int) int {
	target := writeConcern - 1
	if target <= 0 {
		return 0
	}
	if target > len(r.hosts) {
		r.logger.Warn().
			Int("write_concern", writeConcern).
			Int("secondaries", len(r.hosts)).
			Msg("replicate: write concern exceeds cluster size, capping")
		return len(r.hosts)
	}
	return target
}

// spawnRetryTask starts the long-lived delivery task for one (host, entry)
// pair. The task reports its first attempt's outcome on results exactly
// once, then keeps retrying on failure with exponential backoff until the
// entry is delivered or the replicator shuts down.
func (r *Replicator) spawnRetryTask(host string, id int64, content string, results chan<- bool) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		reported := false
		report := func(ok bool) {
			if !reported {
				reported = true
				results <- ok
			}
		}

		backoff := r.initialBackoff
		for attempt := 0; ; attempt++ {
			// Do not hammer a host the heartbeat loop already gave
			// up on; check again after a pause.
			if r.Status(host) == StatusUnhealthy {
				report(false)
				if !r.sleep(r.unhealthyPause) {
					return
				}
				continue
			}

			callCtx, cancel := context.WithTimeout(r.ctx, r.timeout)
			err := r.transport.AppendEntry(callCtx, host, id, content)
			cancel()

			if err == nil {
				r.logger.Info().
					Int64("id", id).
					Str("host", host).
					Int("attempt", attempt).
					Msg("replicate: entry acknowledged")
				report(true)
				return
			}

			report(false)
			if r.ctx.Err() != nil {
				return
			}

			r.logger.Warn().
				Int64("id", id).
				Str("host", host).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Err(err).
				Msg("replicate: delivery failed, will retry")

			if !r.sleep(backoff) {
				return
			}
			backoff = min(backoff*2, r.maxBackoff)
		}
	}()
}

// sleep waits for d, returning false if the replicator shut down first.
func (r *Replicator) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-r.ctx.Done():
		return false
	}
}
