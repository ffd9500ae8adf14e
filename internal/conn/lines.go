package conn

import (
	"bufio"
	"errors"
	"io"
)

// DefaultMaxLineBytes bounds one inbound line.
const DefaultMaxLineBytes = 64 * 1024

// readLine returns the next line without its LF or CRLF terminator. A line
// whose payload is longer than maxBytes is consumed up to its newline and
// reported as oversized. A final
// line without a newline is returned before io.EOF.
func readLine(r *bufio.Reader, maxBytes int) (line []byte, oversized bool, err error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxLineBytes
	}

	// Room for a CRLF terminator while the line is still being read.
	limit := maxBytes + 2

	line = make([]byte, 0, 256)
	for {
		frag, readErr := r.ReadSlice('\n')
		if !oversized {
			line = append(line, frag...)
		}
		if len(line) > limit {
			oversized = true
			line = line[:0]
		}
		if errors.Is(readErr, bufio.ErrBufferFull) {
			continue
		}
		if oversized {
			return nil, true, readErr
		}
		if readErr != nil && (!errors.Is(readErr, io.EOF) || len(line) == 0) {
			return nil, false, readErr
		}
		line = trimEOL(line)
		if len(line) > maxBytes {
			return nil, true, nil
		}
		return line, false, nil
	}
}

func trimEOL(b []byte) []byte {
	n := len(b)
	if n > 0 && b[n-1] == '\n' {
		n--
	}
	if n > 0 && b[n-1] == '\r' {
		n--
	}
	return b[:n]
}
