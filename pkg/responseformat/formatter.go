// Package responseformat encodes result documents as JSON or MessagePack.
package responseformat

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Supported formats
const (
	FormatJSON    = "json"
	FormatMsgPack = "msgpack"
)

// Formatter handles encoding documents in JSON or MessagePack format
type Formatter struct {
	format string
}

// NewFormatter creates a formatter for format. An empty format means JSON.
func NewFormatter(format string) (*Formatter, error) {
	switch format {
	case "", FormatJSON:
		return &Formatter{format: FormatJSON}, nil
	case FormatMsgPack:
		return &Formatter{format: FormatMsgPack}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Extension returns the file extension for the format, without the dot
func (f *Formatter) Extension() string {
	if f.format == FormatMsgPack {
		return "msgpack"
	}
	return "json"
}

// Encode writes data to w
func (f *Formatter) Encode(w io.Writer, data any) error {
	if f.format == FormatMsgPack {
		return f.writeMsgPack(w, data)
	}
	return f.writeJSON(w, data)
}

// Decode reads a document written by Encode
func (f *Formatter) Decode(r io.Reader, data any) error {
	if f.format == FormatMsgPack {
		decoder := msgpack.NewDecoder(r)
		decoder.SetCustomStructTag("json")
		return decoder.Decode(data)
	}
	return json.NewDecoder(r).Decode(data)
}

func (f *Formatter) writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (f *Formatter) writeMsgPack(w io.Writer, data any) error {
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}
