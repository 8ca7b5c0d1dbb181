package claudecode

import "bytes"

// Parser reassembles raw output chunks into complete lines and classifies
// each line as a StreamEvent. Chunks need not align with line or JSON-object
// boundaries; the trailing partial segment is retained until the next chunk.
type Parser struct {
	buf     []byte
	dropped int
}

// NewParser returns an empty incremental parser.
func NewParser() *Parser {
	return &Parser{}
}

// Feed appends a chunk and returns the events parsed from every complete
// line it closed. Lines that are not valid JSON are dropped silently; the
// CLI interleaves diagnostic noise and partial writes in its output.
func (p *Parser) Feed(chunk []byte) []StreamEvent {
	p.buf = append(p.buf, chunk...)

	var events []StreamEvent
	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			break
		}
		line := p.buf[:i]
		p.buf = p.buf[i+1:]

		if ev, ok := p.parseLine(line); ok {
			events = append(events, ev)
		}
	}
	return events
}

// Flush drains a final unterminated line. Call once after the stream ends.
func (p *Parser) Flush() []StreamEvent {
	if len(p.buf) == 0 {
		return nil
	}
	line := p.buf
	p.buf = nil

	if ev, ok := p.parseLine(line); ok {
		return []StreamEvent{ev}
	}
	return nil
}

// Dropped returns the number of lines discarded as invalid JSON.
func (p *Parser) Dropped() int {
	return p.dropped
}

func (p *Parser) parseLine(line []byte) (StreamEvent, bool) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if len(bytes.TrimSpace(line)) == 0 {
		return StreamEvent{}, false
	}

	ev, ok := Classify(line)
	if !ok {
		p.dropped++
		return StreamEvent{}, false
	}
	return ev, true
}
