package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformed reports a line that was framed correctly but failed to parse.
// The connection should be considered unreliable once this is observed.
var ErrMalformed = errors.New("malformed protocol message")

// maxLineBytes bounds a single framed message. A line beyond this is treated
// as a protocol violation rather than buffered indefinitely.
const maxLineBytes = 8 << 20

// Codec frames newline-delimited JSON envelopes over a byte stream. It is
// not safe for concurrent use; the protocol is half-duplex per connection.
type Codec struct {
	reader *bufio.Reader
	writer *bufio.Writer
}

// NewCodec wraps rw with buffered framing.
func NewCodec(rw io.ReadWriter) *Codec {
	return &Codec{
		reader: bufio.NewReaderSize(rw, 64<<10),
		writer: bufio.NewWriterSize(rw, 64<<10),
	}
}

// ReadMessage reads one request envelope. io.EOF is returned unchanged on a
// clean close between messages; a close mid-line is an unexpected EOF since
// a truncated message cannot be distinguished from a reset.
func (c *Codec) ReadMessage() (*Message, error) {
	line, err := c.readLine()
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &msg, nil
}

// ReadResponse reads one response envelope.
func (c *Codec) ReadResponse() (*Response, error) {
	line, err := c.readLine()
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &resp, nil
}

// WriteMessage writes one request envelope followed by a newline and flushes.
func (c *Codec) WriteMessage(msg *Message) error {
	return c.writeJSON(msg)
}

// WriteResponse writes one response envelope followed by a newline and flushes.
func (c *Codec) WriteResponse(resp *Response) error {
	return c.writeJSON(resp)
}

func (c *Codec) writeJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if _, err := c.writer.Write(payload); err != nil {
		return err
	}
	if err := c.writer.WriteByte('\n'); err != nil {
		return err
	}
	return c.writer.Flush()
}

func (c *Codec) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := c.reader.ReadSlice('\n')
		line = append(line, chunk...)
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			if len(line) > maxLineBytes {
				return nil, fmt.Errorf("%w: message exceeds %d bytes", ErrMalformed, maxLineBytes)
			}
			continue
		}
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return line, nil
}
