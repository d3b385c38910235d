package protocol

import (
	"bytes"

	"github.com/sirupsen/logrus"
)

// MaxFrameSize caps how much undelimited data a decoder holds. A partial
// frame that grows past it is discarded.
const MaxFrameSize = 4 << 20

// Decoder splits a byte stream into frames and parses them. It keeps any
// trailing partial frame between calls to Feed. A Decoder is not safe for
// concurrent use.
type Decoder struct {
	side    Side
	buf     []byte
	dropped int
	log     *logrus.Entry
}

// NewDecoder returns a decoder for the given side. A nil logger disables
// logging of dropped frames.
func NewDecoder(side Side, log *logrus.Entry) *Decoder {
	return &Decoder{side: side, log: log}
}

// NewServerDecoder returns a decoder for frames read by the driver.
func NewServerDecoder(log *logrus.Entry) *Decoder {
	return NewDecoder(ServerSide, log)
}

// NewClientDecoder returns a decoder for frames read by a client.
func NewClientDecoder(log *logrus.Entry) *Decoder {
	return NewDecoder(ClientSide, log)
}

// Feed appends p to the buffer and returns every complete command, in order.
// Frames that fail to parse are skipped.
func (d *Decoder) Feed(p []byte) []Command {
	d.buf = append(d.buf, p...)

	last := bytes.LastIndexByte(d.buf, EOF)
	if last < 0 {
		if len(d.buf) > MaxFrameSize {
			d.drop(len(d.buf), "partial frame exceeds maximum size")
			d.buf = d.buf[:0]
		}
		return nil
	}

	var cmds []Command
	rest := d.buf[:last+1]
	for len(rest) > 0 {
		i := bytes.IndexByte(rest, EOF)
		frame := rest[:i]
		rest = rest[i+1:]

		if len(bytes.TrimSpace(frame)) == 0 {
			continue
		}

		cmd, err := Decode(d.side, frame)
		if err != nil {
			d.drop(len(frame), err.Error())
			continue
		}
		cmds = append(cmds, cmd)
	}

	// Keep only the bytes after the last sentinel.
	remaining := copy(d.buf, d.buf[last+1:])
	d.buf = d.buf[:remaining]

	return cmds
}

// Buffered returns the length of the pending partial frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Dropped returns how many frames have been discarded.
func (d *Decoder) Dropped() int {
	return d.dropped
}

// Reset discards any pending partial frame.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}

func (d *Decoder) drop(size int, reason string) {
	d.dropped++
	if d.log != nil {
		d.log.WithFields(logrus.Fields{
			"side":   d.side.String(),
			"bytes":  size,
			"reason": reason,
		}).Debug("Dropping undecodable frame")
	}
}
