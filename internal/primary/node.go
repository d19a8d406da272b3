package primary

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Sentinel errors surfaced to the HTTP layer. Everything else the
// replicator runs into (timeouts, transport failures) is retried internally
// and never reaches a client.
var (
	// ErrQuorumLost means the cluster lacks a healthy majority; the write
	// was rejected before an id was allocated.
	ErrQuorumLost = errors.New("quorum lost: primary is in read-only mode")

	// ErrWriteConcernUnmet means the entry is committed on the primary but
	// fewer secondaries than requested acknowledged it. Background retries
	// keep delivering it.
	ErrWriteConcernUnmet = errors.New("write concern not satisfied: message persisted on primary only")
)

// replicator is the slice of the cluster replicator the coordinator needs.
type replicator interface {
	QuorumOK() bool
	Replicate(ctx context.Context, id int64, content string, writeConcern int) bool
	HealthSnapshot() map[string]string
}

// Node is the primary's write coordinator. It owns the log and drives the
// replicator; the HTTP layer talks only to this type.
type Node struct {
	log    *Log
	rep    replicator
	logger zerolog.Logger
}

// NewNode wires a coordinator around an empty log.
func NewNode(rep replicator, logger zerolog.Logger) *Node {
	return &Node{
		log:    NewLog(),
		rep:    rep,
		logger: logger,
	}
}

// HealthReport is the primary's view of the cluster, served on /api/health.
type HealthReport struct {
	Master      string            `json:"master"`
	Secondaries map[string]string `json:"secondaries"`
	Quorum      bool              `json:"quorum"`
}

// Append commits content with the requested write concern and returns its id.
//
// Order of operations matters:
//
//  1. Quorum gate. With no healthy majority the write is refused before any
//     id is allocated, so a rejected write leaves no trace.
//  2. Allocate id and append locally. From here on the message is durable
//     on the primary whatever happens to replication.
//  3. Fan out. On an unmet write concern the caller gets
//     ErrWriteConcernUnmet, but the entry stays in the log and retry tasks
//     keep delivering it.
func (n *Node) Append(ctx context.Context, content string, writeConcern int) (int64, error) {
	if !n.rep.QuorumOK() {
		return 0, ErrQuorumLost
	}

	id := n.log.Append(content)
	n.logger.Info().Int64("id", id).Int("write_concern", writeConcern).Msg("primary: entry committed locally")

	if !n.rep.Replicate(ctx, id, content, writeConcern) {
		return 0, ErrWriteConcernUnmet
	}
	return id, nil
}

// Messages returns the committed payloads in id order.
func (n *Node) Messages() []string {
	return n.log.Snapshot()
}

// Health reports the primary's own status, the health table, and whether
// writes are currently accepted.
func (n *Node) Health() HealthReport {
	return HealthReport{
		Master:      "Healthy",
		Secondaries: n.rep.HealthSnapshot(),
		Quorum:      n.rep.QuorumOK(),
	}
}
