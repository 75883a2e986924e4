package trace

import (
	"fmt"
	"log"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache/hierarchy"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// AccessTableName is the table that DB tracers write to.
const AccessTableName = "cache_accesses"

// accessEntry represents one access in the database. Addresses are stored
// as hex text since SQLite integers are signed.
type accessEntry struct {
	RunID          string
	Clock          uint64
	Kind           string
	Address        string
	L1Hit          bool
	L2Hit          bool
	L2Evicted      bool
	EvictedAddress string
	L1Invalidated  bool
	WriteBack      bool
}

func resultOf(ctx hooking.HookCtx) (hierarchy.AccessResult, bool) {
	if ctx.Pos != hierarchy.HookPosAccess {
		return hierarchy.AccessResult{}, false
	}

	result, ok := ctx.Item.(hierarchy.AccessResult)

	return result, ok
}

func outcome(r hierarchy.AccessResult) string {
	switch {
	case r.L1Hit:
		return "l1-hit"
	case r.L2Hit:
		return "l2-hit"
	default:
		return "miss"
	}
}

// A tracer is a hook that prints every access to a logger.
type tracer struct {
	logger *log.Logger
}

// NewTracer creates a hook that logs one line per access.
func NewTracer(logger *log.Logger) hooking.Hook {
	return &tracer{logger: logger}
}

func (t *tracer) Func(ctx hooking.HookCtx) {
	r, ok := resultOf(ctx)
	if !ok {
		return
	}

	line := fmt.Sprintf("%d, %s, 0x%x, %s", r.Clock, r.Kind, r.Address,
		outcome(r))

	if r.L2Evicted {
		line += fmt.Sprintf(", evict 0x%x", r.EvictedAddress)
	}

	if r.WriteBack {
		line += ", write-back"
	}

	t.logger.Println(line)
}

// A dbTracer is a hook that records every access into a database using the
// data recorder.
type dbTracer struct {
	runID        string
	dataRecorder datarecording.DataRecorder
}

// NewDBTracer creates a hook that inserts one row per access, tagged with
// runID.
func NewDBTracer(
	dataRecorder datarecording.DataRecorder,
	runID string,
) hooking.Hook {
	t := &dbTracer{
		runID:        runID,
		dataRecorder: dataRecorder,
	}

	t.dataRecorder.CreateTable(AccessTableName, accessEntry{})

	return t
}

func (t *dbTracer) Func(ctx hooking.HookCtx) {
	r, ok := resultOf(ctx)
	if !ok {
		return
	}

	entry := accessEntry{
		RunID:         t.runID,
		Clock:         r.Clock,
		Kind:          r.Kind.String(),
		Address:       fmt.Sprintf("0x%x", r.Address),
		L1Hit:         r.L1Hit,
		L2Hit:         r.L2Hit,
		L2Evicted:     r.L2Evicted,
		L1Invalidated: r.L1Invalidated,
		WriteBack:     r.WriteBack,
	}

	if r.L2Evicted {
		entry.EvictedAddress = fmt.Sprintf("0x%x", r.EvictedAddress)
	}

	t.dataRecorder.InsertData(AccessTableName, entry)
}
