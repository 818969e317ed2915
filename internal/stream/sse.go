package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedEvent marks an event whose payload could not be decoded. The
// stream itself is still usable.
var ErrMalformedEvent = errors.New("stream: malformed event")

// Encoder writes server-sent events: each value becomes one `data:` block
// terminated by a blank line.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode marshals v as JSON and writes it as a single event.
func (e *Encoder) Encode(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return e.WriteData(payload)
}

// WriteData frames payload as one event. Embedded newlines are split across
// several data lines, which a decoder joins back together.
func (e *Encoder) WriteData(payload []byte) error {
	var buf bytes.Buffer
	for _, line := range bytes.Split(payload, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	_, err := e.w.Write(buf.Bytes())
	return err
}

// Comment writes a comment line. Receivers ignore it; intermediaries see
// traffic and keep the connection open.
func (e *Encoder) Comment(text string) error {
	_, err := fmt.Fprintf(e.w, ": %s\n\n", text)
	return err
}

// Retry advises the client how long to wait before reconnecting.
func (e *Encoder) Retry(d time.Duration) error {
	_, err := fmt.Fprintf(e.w, "retry: %d\n\n", d.Milliseconds())
	return err
}

// Decoder reads events written by Encoder (or any server-sent events source).
type Decoder struct {
	r     *bufio.Reader
	retry time.Duration
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Retry reports the last reconnection hint seen on the stream, or zero.
func (d *Decoder) Retry() time.Duration {
	return d.retry
}

// Next returns the data of the next event. Comments, blank events and fields
// other than data and retry are skipped. io.EOF is returned at a clean end
// of stream; a stream cut inside an event yields io.ErrUnexpectedEOF.
func (d *Decoder) Next() ([]byte, error) {
	var (
		data    []string
		hasData bool
		partial bool
	)
	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if partial || line != "" {
					return nil, io.ErrUnexpectedEOF
				}
				return nil, io.EOF
			}
			return nil, err
		}
		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")

		if line == "" {
			if hasData {
				return []byte(strings.Join(data, "\n")), nil
			}
			partial = false
			continue
		}
		partial = true

		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			data = append(data, value)
			hasData = true
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				d.retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
}

// Decode reads the next event and unmarshals its JSON data into v. A payload
// that is not valid JSON returns an error wrapping ErrMalformedEvent; the
// decoder remains positioned at the following event.
func (d *Decoder) Decode(v any) error {
	payload, err := d.Next()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return nil
}
