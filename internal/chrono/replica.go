package chrono

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sanity-io/litter"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/chronotree/internal/ir"
)

// Replica is one actor's view of the causal history.
//
// Thread-safety: a Replica is single-writer. Add and Merge must be serialized
// by the caller; read accessors may run concurrently with each other only.
//
// INVARIANTS:
//   - head names an aggregate whose predecessors equal frontier
//   - frontier is a canonical antichain, non-empty once any content exists
//   - known holds every content record observed plus exactly one aggregate (head)
type Replica struct {
	name     string
	store    Store
	logger   *slog.Logger
	tracer   trace.Tracer
	head     ir.Hash
	frontier Frontier
	known    map[ir.Hash]ir.Record
}

// Option configures a Replica.
type Option func(*options)

type options struct {
	initial ir.Hash
	name    string
	logger  *slog.Logger
	tracer  trace.Tracer
}

// WithInitial starts the replica from an existing record: a content hash
// becomes the single tip, an aggregate hash contributes its predecessors.
func WithInitial(h ir.Hash) Option {
	return func(o *options) { o.initial = h }
}

// WithName sets the diagnostic label. Defaults to a UUIDv7.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger injects a logger. Defaults to discarding all output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTracer injects a tracer. Defaults to the global otel provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// New creates a replica over st and persists its first head.
//
// Without WithInitial the replica is empty and its head is an aggregate with
// no predecessors. Returns MISSING_NODE if the initial hash or any of its
// ancestors cannot be resolved.
func New(ctx context.Context, st Store, opts ...Option) (*Replica, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = uuid.Must(uuid.NewV7()).String()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.tracer == nil {
		o.tracer = tracer
	}

	r := &Replica{
		name:     o.name,
		store:    st,
		logger:   o.logger.With("replica", o.name),
		tracer:   o.tracer,
		frontier: Frontier{},
		known:    make(map[ir.Hash]ir.Record),
	}

	ctx, span := r.tracer.Start(ctx, "Replica.New", trace.WithAttributes(
		attribute.String("replica", r.name),
		attribute.String("initial", string(o.initial)),
	))
	defer span.End()

	if err := r.init(ctx, o.initial); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		replicaOpsTotal.WithLabelValues("new", resultError).Inc()
		return nil, err
	}

	replicaOpsTotal.WithLabelValues("new", resultApplied).Inc()
	r.logger.Debug("replica created",
		"head", r.head.Short(),
		"frontier_size", len(r.frontier),
	)
	return r, nil
}

func (r *Replica) init(ctx context.Context, initial ir.Hash) error {
	rs := newResolver(r.store, r.known)
	defer func() { storeLoadsTotal.Add(float64(rs.loads)) }()

	candidates := Frontier{}
	if !initial.IsZero() {
		tips, err := rs.tips(ctx, initial)
		if err != nil {
			return err
		}
		for _, h := range tips {
			if err := rs.pullAncestry(ctx, h); err != nil {
				return err
			}
		}
		candidates = tips
	}

	frontier, err := rs.reduce(ctx, candidates)
	if err != nil {
		return err
	}
	agg, err := buildAggregate(ctx, r.store, frontier)
	if err != nil {
		return err
	}

	r.commit(rs, frontier, agg)
	return nil
}

// Add appends a content record and returns its hash.
//
// The kind is forced to content and predecessors are cleared. On an empty
// replica the parent defaults to NoHash (a root). Otherwise the parent must
// be a content record in known; anything else fails with INVALID_PARENT.
// Adding a record whose hash is already known is a no-op.
func (r *Replica) Add(ctx context.Context, rec ir.Record) (ir.Hash, error) {
	ctx, span := r.tracer.Start(ctx, "Replica.Add", trace.WithAttributes(
		attribute.String("replica", r.name),
		attribute.String("parent", string(rec.Parent)),
	))
	defer span.End()

	h, applied, err := r.add(ctx, rec)
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		replicaOpsTotal.WithLabelValues("add", resultError).Inc()
		r.logger.Warn("add rejected", "parent", rec.Parent.Short(), "error", err)
		return ir.NoHash, err
	case !applied:
		replicaOpsTotal.WithLabelValues("add", resultNoop).Inc()
		r.logger.Debug("add skipped, record already known", "hash", h.Short())
	default:
		replicaOpsTotal.WithLabelValues("add", resultApplied).Inc()
		frontierSize.Observe(float64(len(r.frontier)))
		r.logger.Debug("record added",
			"hash", h.Short(),
			"parent", rec.Parent.Short(),
			"head", r.head.Short(),
			"frontier_size", len(r.frontier),
		)
	}
	span.SetAttributes(attribute.String("hash", string(h)))
	return h, nil
}

func (r *Replica) add(ctx context.Context, rec ir.Record) (ir.Hash, bool, error) {
	rec.Kind = ir.KindContent
	rec.Predecessors = []ir.Hash{}
	rec.Hash = ir.NoHash

	if rec.Parent.IsZero() {
		if len(r.frontier) > 0 {
			return ir.NoHash, false, newInvalidParentError(rec.Parent, "parent is required once the replica has content")
		}
	} else {
		parent, ok := r.known[rec.Parent]
		if !ok {
			return ir.NoHash, false, newInvalidParentError(rec.Parent, "parent is not known to this replica")
		}
		if !parent.IsContent() {
			return ir.NoHash, false, newInvalidParentError(rec.Parent, "parent is an aggregate record")
		}
	}

	h, err := r.store.Save(ctx, rec)
	if err != nil {
		return ir.NoHash, false, fmt.Errorf("save record: %w", err)
	}
	rec.Hash = h

	if _, ok := r.known[h]; ok {
		return h, false, nil
	}

	frontier := r.frontier.Without(rec.Parent).With(h)
	agg, err := buildAggregate(ctx, r.store, frontier)
	if err != nil {
		return ir.NoHash, false, err
	}

	rs := newResolver(r.store, r.known)
	rs.staged[h] = rec
	r.commit(rs, frontier, agg)
	return h, true, nil
}

// Merge joins the frontier denoted by remote (usually another replica's head)
// into this replica and returns the receiver for chaining.
//
// Merge is commutative, associative and idempotent. Merging a hash whose tips
// are already dominated leaves the replica unchanged. Returns MISSING_NODE if
// remote or any of its ancestors cannot be resolved; the replica is then
// unchanged.
func (r *Replica) Merge(ctx context.Context, remote ir.Hash) (*Replica, error) {
	ctx, span := r.tracer.Start(ctx, "Replica.Merge", trace.WithAttributes(
		attribute.String("replica", r.name),
		attribute.String("remote", string(remote)),
	))
	defer span.End()

	start := time.Now()
	applied, err := r.merge(ctx, remote)
	mergeDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		replicaOpsTotal.WithLabelValues("merge", resultError).Inc()
		r.logger.Warn("merge failed", "remote", remote.Short(), "error", err)
		return r, err
	case !applied:
		span.AddEvent("noop")
		replicaOpsTotal.WithLabelValues("merge", resultNoop).Inc()
		r.logger.Debug("merge was a no-op", "remote", remote.Short())
	default:
		replicaOpsTotal.WithLabelValues("merge", resultApplied).Inc()
		frontierSize.Observe(float64(len(r.frontier)))
		r.logger.Debug("merge applied",
			"remote", remote.Short(),
			"head", r.head.Short(),
			"frontier_size", len(r.frontier),
		)
	}
	span.SetAttributes(
		attribute.String("head", string(r.head)),
		attribute.Int("frontier_size", len(r.frontier)),
	)
	return r, nil
}

func (r *Replica) merge(ctx context.Context, remote ir.Hash) (bool, error) {
	rs := newResolver(r.store, r.known)
	defer func() { storeLoadsTotal.Add(float64(rs.loads)) }()

	tips, err := rs.tips(ctx, remote)
	if err != nil {
		return false, err
	}
	for _, h := range tips {
		if err := rs.pullAncestry(ctx, h); err != nil {
			return false, err
		}
	}

	frontier, err := rs.reduce(ctx, r.frontier.Union(tips))
	if err != nil {
		return false, err
	}
	if frontier.Equal(r.frontier) {
		return false, nil
	}

	agg, err := buildAggregate(ctx, r.store, frontier)
	if err != nil {
		return false, err
	}

	r.commit(rs, frontier, agg)
	return true, nil
}

// MergeAll merges each hash in order, stopping at the first error.
// It is the chained form r.Merge(a).Merge(b)...
func (r *Replica) MergeAll(ctx context.Context, remotes ...ir.Hash) error {
	for _, h := range remotes {
		if _, err := r.Merge(ctx, h); err != nil {
			return err
		}
	}
	return nil
}

// commit installs a new frontier and head. Nothing before commit mutates
// replica state.
func (r *Replica) commit(rs *resolver, frontier Frontier, agg ir.Record) {
	rs.commit()
	delete(r.known, r.head)
	r.known[agg.Hash] = agg
	r.head = agg.Hash
	r.frontier = frontier
}

// IsAncestor reports whether a is reachable by following b's parent chain.
// Records pulled from the store to answer are not cached, so the query never
// changes replica state.
func (r *Replica) IsAncestor(ctx context.Context, a, b ir.Hash) (bool, error) {
	rs := newResolver(r.store, r.known)
	defer func() { storeLoadsTotal.Add(float64(rs.loads)) }()
	return rs.isAncestor(ctx, a, b)
}

// Get returns a known record. Fails with NOT_FOUND if h is not in known.
func (r *Replica) Get(h ir.Hash) (ir.Record, error) {
	rec, ok := r.known[h]
	if !ok {
		return ir.Record{}, newNotFoundError(h)
	}
	return rec, nil
}

// Name returns the diagnostic label.
func (r *Replica) Name() string {
	return r.name
}

// Head returns the hash of the current aggregate record.
func (r *Replica) Head() ir.Hash {
	return r.head
}

// Frontier returns a copy of the current causal tips.
func (r *Replica) Frontier() Frontier {
	return Frontier(r.frontier.Slice())
}

// Known returns a copy of every known record keyed by hash.
func (r *Replica) Known() map[ir.Hash]ir.Record {
	return maps.Clone(r.known)
}

// Snapshot is a comparable summary of replica state.
type Snapshot struct {
	Name     string    `json:"name"`
	Head     ir.Hash   `json:"head"`
	Frontier []ir.Hash `json:"frontier"`
	Known    []ir.Hash `json:"known"`
}

// Snapshot returns the replica state with known hashes sorted.
func (r *Replica) Snapshot() Snapshot {
	return Snapshot{
		Name:     r.name,
		Head:     r.head,
		Frontier: r.frontier.Slice(),
		Known:    slices.Sorted(maps.Keys(r.known)),
	}
}

// Dump renders the full replica state for debugging.
func (r *Replica) Dump() string {
	known := make([]ir.Record, 0, len(r.known))
	for _, h := range slices.Sorted(maps.Keys(r.known)) {
		known = append(known, r.known[h])
	}
	dump := struct {
		Name     string
		Head     ir.Hash
		Frontier Frontier
		Known    []ir.Record
	}{r.name, r.head, r.frontier, known}

	opts := litter.Options{StripPackageNames: true}
	return opts.Sdump(dump)
}
