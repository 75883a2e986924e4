package trace

import (
	"fmt"
	"io"
	"os"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/cachesim/sim/hooking"
)

// CSVTraceWriter is a hook that stores the accesses into a CSV file.
type CSVTraceWriter struct {
	path string
	w    io.Writer
	file *os.File

	results    []accessRow
	bufferSize int
}

type accessRow struct {
	clock     uint64
	kind      string
	address   uint64
	outcome   string
	evicted   string
	writeBack bool
}

// NewCSVTraceWriter creates a writer that will create the file at path.
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// NewCSVTraceWriterTo creates a writer that writes to w. Init only writes the
// header.
func NewCSVTraceWriterTo(w io.Writer) *CSVTraceWriter {
	return &CSVTraceWriter{
		w:          w,
		bufferSize: 1000,
	}
}

// Init creates the CSV file and writes the header. It refuses to overwrite an
// existing file.
func (t *CSVTraceWriter) Init() error {
	if t.w == nil {
		_, err := os.Stat(t.path)
		if err == nil {
			return fmt.Errorf("file %s already exists", t.path)
		}

		file, err := os.Create(t.path)
		if err != nil {
			return err
		}

		t.file = file
		t.w = file

		atexit.Register(func() {
			err := t.Close()
			if err != nil {
				fmt.Fprintf(os.Stderr, "closing %s: %v\n", t.path, err)
			}
		})
	}

	_, err := fmt.Fprintf(t.w,
		"Clock, Kind, Address, Outcome, Evicted, WriteBack\n")

	return err
}

// Func buffers one access.
func (t *CSVTraceWriter) Func(ctx hooking.HookCtx) {
	r, ok := resultOf(ctx)
	if !ok {
		return
	}

	row := accessRow{
		clock:     r.Clock,
		kind:      r.Kind.String(),
		address:   r.Address,
		outcome:   outcome(r),
		writeBack: r.WriteBack,
	}

	if r.L2Evicted {
		row.evicted = fmt.Sprintf("0x%x", r.EvictedAddress)
	}

	t.results = append(t.results, row)
	if len(t.results) >= t.bufferSize {
		t.Flush()
	}
}

// Flush writes the buffered accesses.
func (t *CSVTraceWriter) Flush() {
	for _, r := range t.results {
		fmt.Fprintf(t.w, "%d, %s, 0x%x, %s, %s, %t\n",
			r.clock,
			r.kind,
			r.address,
			r.outcome,
			r.evicted,
			r.writeBack,
		)
	}

	t.results = nil
}

// Close flushes and closes the file, if the writer owns one.
func (t *CSVTraceWriter) Close() error {
	t.Flush()

	if t.file == nil {
		return nil
	}

	err := t.file.Close()
	t.file = nil

	return err
}
