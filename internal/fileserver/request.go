package fileserver

import (
	"strconv"
	"strings"
)

// request is the part of an HTTP request the server cares about.
type request struct {
	method      string
	rangeHeader string
	hasRange    bool
}

// parseRequest reads the method and an optional Range header from the
// initial bytes of a connection. The request target is ignored.
func parseRequest(raw string) request {
	var req request
	lines := strings.Split(raw, "\n")
	if len(lines) > 0 {
		if i := strings.IndexByte(lines[0], ' '); i > 0 {
			req.method = strings.ToUpper(lines[0][:i])
		}
	}
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "range") {
			continue
		}
		req.rangeHeader = strings.TrimSpace(value)
		req.hasRange = true
		break
	}
	return req
}

// byteRange is an inclusive window into the file.
type byteRange struct {
	start, end int64
}

func (r byteRange) length() int64 {
	return r.end - r.start + 1
}

// parseRange interprets "bytes=<start>-[<end>]" against a file of size bytes.
// A missing end means end of file and an end past the file is clamped. It
// returns false for anything unsatisfiable or malformed, which callers treat
// as if no Range header had been sent.
func parseRange(header string, size int64) (byteRange, bool) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || size <= 0 {
		return byteRange{}, false
	}
	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return byteRange{}, false
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 {
		return byteRange{}, false
	}

	last := size - 1
	end := last
	if s := strings.TrimSpace(endStr); s != "" {
		end, err = strconv.ParseInt(s, 10, 64)
		if err != nil || end < 0 {
			return byteRange{}, false
		}
		end = min(end, last)
	}

	if start > end {
		return byteRange{}, false
	}
	return byteRange{start: start, end: end}, true
}
