package supervisor

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// StdioTransport frames JSON-encoded events and responses with a 4-byte
// big-endian length prefix over arbitrary byte streams, typically a CLI
// subprocess's stdin/stdout pipe.
type StdioTransport struct {
	writeMu sync.Mutex
	w       io.Writer
	r       *bufio.Reader
}

// NewStdioTransport wraps r and w as a framed transport.
func NewStdioTransport(r io.Reader, w io.Writer) *StdioTransport {
	return &StdioTransport{r: bufio.NewReader(r), w: w}
}

func writeFrame(w io.Writer, mu *sync.Mutex, payload []byte) error {
	mu.Lock()
	defer mu.Unlock()

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(payload)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("supervisor: writing frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("supervisor: writing frame payload: %w", err)
	}
	return nil
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(lenPrefix[:])
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("supervisor: reading frame payload: %w", err)
	}
	return payload, nil
}

// WriteEvent frames and writes one outbound event.
func (t *StdioTransport) WriteEvent(e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("supervisor: encoding event: %w", err)
	}
	return writeFrame(t.w, &t.writeMu, payload)
}

// ReadResponse blocks for and decodes one inbound response frame.
func (t *StdioTransport) ReadResponse() (Response, error) {
	payload, err := readFrame(t.r)
	if err != nil {
		return Response{}, err
	}
	var r Response
	if err := json.Unmarshal(payload, &r); err != nil {
		return Response{}, fmt.Errorf("supervisor: decoding response: %w", err)
	}
	return r, nil
}

// WriteResponse frames and writes one outbound response; used by the
// operator side of the transport (the CLI's own stdio pump, or tests).
func (t *StdioTransport) WriteResponse(r Response) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("supervisor: encoding response: %w", err)
	}
	return writeFrame(t.w, &t.writeMu, payload)
}

// ReadEvent blocks for and decodes one inbound event frame; used by the
// operator side of the transport.
func (t *StdioTransport) ReadEvent() (Event, error) {
	payload, err := readFrame(t.r)
	if err != nil {
		return Event{}, err
	}
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, fmt.Errorf("supervisor: decoding event: %w", err)
	}
	return e, nil
}

// PumpEvents drains the engine's outbound event channel into the
// transport until the channel is closed or a write fails.
func PumpEvents(t *StdioTransport, events <-chan Event) error {
	for e := range events {
		if err := t.WriteEvent(e); err != nil {
			return err
		}
	}
	return nil
}

// PumpResponses reads framed responses from the transport and dispatches
// each into sess until the transport errors (typically io.EOF on
// process exit).
func PumpResponses(t *StdioTransport, sess *Session) error {
	for {
		r, err := t.ReadResponse()
		if err != nil {
			return err
		}
		sess.Dispatch(r)
	}
}
