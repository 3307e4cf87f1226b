// Package stream reads detector output and writes tracking and feature results.
//
// Detector output is JSON lines: one mot.Frame object per line, frames in index order.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/LdDl/benthic-mot/mot"
	"github.com/pkg/errors"
)

// Frames with many appearance detections easily exceed bufio default token size
const maxLineSize = 16 * 1024 * 1024

// FrameReader decodes frames from JSON lines input
type FrameReader struct {
	scanner   *bufio.Scanner
	line      int
	lastIndex int
	started   bool
}

// NewFrameReader creates reader over r
func NewFrameReader(r io.Reader) *FrameReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &FrameReader{scanner: scanner}
}

// Next returns next frame. Blank lines are skipped. Returns io.EOF when input is exhausted.
// Frames must come in strictly increasing index order.
func (fr *FrameReader) Next() (mot.Frame, error) {
	for fr.scanner.Scan() {
		fr.line++
		data := fr.scanner.Bytes()
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		var frame mot.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			return mot.Frame{}, errors.Wrapf(err, "Can't decode frame at line %d", fr.line)
		}
		if fr.started && frame.Index <= fr.lastIndex {
			return mot.Frame{}, errors.Errorf("frame %d at line %d is not after frame %d", frame.Index, fr.line, fr.lastIndex)
		}
		fr.started = true
		fr.lastIndex = frame.Index
		return frame, nil
	}
	if err := fr.scanner.Err(); err != nil {
		return mot.Frame{}, errors.Wrapf(err, "Can't read frame after line %d", fr.line)
	}
	return mot.Frame{}, io.EOF
}

// ReadFrames calls fn for every frame of r until input ends, fn fails or ctx is done.
// Returns number of frames passed to fn.
func ReadFrames(ctx context.Context, r io.Reader, fn func(mot.Frame) error) (int, error) {
	reader := NewFrameReader(r)
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		frame, err := reader.Next()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		if err := fn(frame); err != nil {
			return count, err
		}
		count++
	}
}

// WriteFrames encodes frames as JSON lines
func WriteFrames(w io.Writer, frames []mot.Frame) error {
	encoder := json.NewEncoder(w)
	for _, frame := range frames {
		if err := encoder.Encode(frame); err != nil {
			return errors.Wrapf(err, "Can't encode frame %d", frame.Index)
		}
	}
	return nil
}
