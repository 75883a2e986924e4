// Package trace reads memory access traces and records what a cache
// hierarchy does with each access.
package trace

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/cachesim/mem/cache/hierarchy"
)

// Access is one parsed trace line.
type Access struct {
	Kind    hierarchy.AccessKind
	Address uint64
}

// maxLineLength is the longest line a Reader parses. Longer lines cannot be
// well-formed accesses in practice and are skipped.
const maxLineLength = 64 * 1024

// A Reader turns lines of the form "r 0x1234" or "w 0x1234" into accesses.
// Lines that do not parse are skipped silently.
type Reader struct {
	reader    *bufio.Reader
	bytesRead uint64
	lineNo    uint64
	skipped   uint64
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{reader: bufio.NewReaderSize(r, maxLineLength)}
}

// Next returns the next well-formed access. It returns false at the end of
// the input, together with any I/O error.
func (r *Reader) Next() (Access, bool, error) {
	for {
		line, tooLong, err := r.readLine()
		if err == io.EOF {
			return Access{}, false, nil
		}

		if err != nil {
			return Access{}, false, err
		}

		r.lineNo++

		if tooLong {
			r.skipped++
			continue
		}

		access, ok := ParseLine(line)
		if !ok {
			r.skipped++
			continue
		}

		return access, true, nil
	}
}

// readLine returns the next line without its line ending. The content of a
// line longer than maxLineLength is dropped and true is returned. io.EOF is
// only returned when no line is left.
func (r *Reader) readLine() (string, bool, error) {
	tooLong := false

	for {
		chunk, err := r.reader.ReadSlice('\n')
		r.bytesRead += uint64(len(chunk))

		if err == bufio.ErrBufferFull {
			tooLong = true
			continue
		}

		if err != nil && err != io.EOF {
			return "", false, err
		}

		if err == io.EOF && len(chunk) == 0 && !tooLong {
			return "", false, io.EOF
		}

		if tooLong {
			return "", true, nil
		}

		return strings.TrimRight(string(chunk), "\r\n"), false, nil
	}
}

// BytesRead returns how many input bytes have been consumed so far.
func (r *Reader) BytesRead() uint64 {
	return r.bytesRead
}

// Lines returns the number of lines read so far.
func (r *Reader) Lines() uint64 {
	return r.lineNo
}

// Skipped returns the number of lines that did not parse.
func (r *Reader) Skipped() uint64 {
	return r.skipped
}

// ParseLine parses "<op> <address>". The op must be exactly "r" or "w". The
// first two characters of the address token are dropped (normally "0x") and
// the rest is read as hexadecimal.
func ParseLine(line string) (Access, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Access{}, false
	}

	var access Access

	switch fields[0] {
	case "r":
		access.Kind = hierarchy.Read
	case "w":
		access.Kind = hierarchy.Write
	default:
		return Access{}, false
	}

	token := fields[1]
	if len(token) < 2 {
		return Access{}, false
	}

	address, err := strconv.ParseUint(token[2:], 16, 64)
	if err != nil {
		return Access{}, false
	}

	access.Address = address

	return access, true
}
