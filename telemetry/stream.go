package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"math"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

const (
	readBufferSize = 4096
	wildcard       = "*"
)

// SensorRecord is one validated reading. It lives only until it is folded
// into an accumulator.
type SensorRecord struct {
	Index     int
	VehicleID string
	Speed     float64
}

// ParsePath turns a dotted selector such as "sensors.*" into path keys.
// The trailing wildcard is implied and may be omitted.
func ParsePath(selector string) []string {
	parts := strings.Split(strings.TrimSpace(selector), ".")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == wildcard {
			continue
		}
		keys = append(keys, p)
	}

	return keys
}

// Records lazily decodes sensor records reachable through path from r.
// Every child of the array or object found at path is yielded once, in stream
// order. Invalid records are yielded as a *RecordSkippedError and iteration
// continues; a malformed stream is yielded once as a *StreamParseError and
// iteration ends. The sequence reads r at most once and cannot be restarted.
func Records(ctx context.Context, r io.Reader, path ...string) iter.Seq2[SensorRecord, error] {
	return func(yield func(SensorRecord, error) bool) {
		if len(path) == 0 {
			yield(SensorRecord{}, &StreamParseError{Cause: ErrEmptyPath})

			return
		}

		d := &decoder{
			ctx:  ctx,
			path: path,
			iter: jsoniter.Parse(jsoniter.ConfigCompatibleWithStandardLibrary, &contextReader{ctx: ctx, r: r}, readBufferSize),
		}
		d.run(yield)
	}
}

type decoder struct {
	ctx     context.Context
	iter    *jsoniter.Iterator
	path    []string
	index   int
	failure error
	stopped bool
}

func (d *decoder) run(yield func(SensorRecord, error) bool) {
	d.walk(0, yield)
	if d.stopped {
		return
	}
	if err := d.err(); err != nil {
		yield(SensorRecord{}, &StreamParseError{Records: d.index, Cause: err})

		return
	}
	if err := d.finish(); err != nil {
		yield(SensorRecord{}, &StreamParseError{Records: d.index, Cause: err})
	}
}

func (d *decoder) err() error {
	if d.failure != nil {
		return d.failure
	}

	return d.iter.Error
}

func (d *decoder) ok() bool {
	return !d.stopped && d.err() == nil
}

func (d *decoder) walk(depth int, yield func(SensorRecord, error) bool) {
	if depth == len(d.path) {
		d.each(yield)

		return
	}
	switch d.iter.WhatIsNext() {
	case jsoniter.ObjectValue:
	case jsoniter.NumberValue:
		d.skipNumber(depth)

		return
	default:
		skipValue(d.iter)

		return
	}
	d.iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		if field == d.path[depth] {
			d.walk(depth+1, yield)
		} else {
			skipValue(it)
		}

		return d.ok()
	})
}

func (d *decoder) each(yield func(SensorRecord, error) bool) {
	switch d.iter.WhatIsNext() {
	case jsoniter.ArrayValue:
		d.iter.ReadArrayCB(func(*jsoniter.Iterator) bool {
			return d.element(yield)
		})
	case jsoniter.ObjectValue:
		d.iter.ReadObjectCB(func(*jsoniter.Iterator, string) bool {
			return d.element(yield)
		})
	default:
		skipValue(d.iter)
	}
}

func (d *decoder) element(yield func(SensorRecord, error) bool) bool {
	if err := d.ctx.Err(); err != nil {
		d.failure = err

		return false
	}

	idx := d.index
	d.index++

	rec, reason := d.record(idx)
	if d.iter.Error != nil {
		return false
	}

	if reason != nil {
		d.stopped = !yield(SensorRecord{}, &RecordSkippedError{Index: idx, Reason: reason})
	} else {
		d.stopped = !yield(rec, nil)
	}

	return !d.stopped
}

func (d *decoder) record(idx int) (SensorRecord, error) {
	if d.iter.WhatIsNext() != jsoniter.ObjectValue {
		skipValue(d.iter)

		return SensorRecord{}, ErrNotAnObject
	}

	rec := SensorRecord{Index: idx}
	idErr, speedErr := ErrMissingVehicleID, ErrMissingSpeed
	d.iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		switch field {
		case "vehicle_id":
			rec.VehicleID, idErr = readVehicleID(it)
		case "speed":
			rec.Speed, speedErr = readSpeed(it)
		default:
			skipValue(it)
		}

		return it.Error == nil
	})

	switch {
	case idErr != nil:
		return SensorRecord{}, idErr
	case speedErr != nil:
		return SensorRecord{}, speedErr
	default:
		return rec, nil
	}
}

// skipNumber consumes a number literal. A document that is a bare number ends
// in EOF while the literal is read; that EOF is left for finish to see.
func (d *decoder) skipNumber(depth int) {
	lit := string(d.iter.ReadNumber())
	if depth == 0 && errors.Is(d.iter.Error, io.EOF) {
		d.iter.Error = nil
	}
	if d.iter.Error == nil && !validNumber(lit) {
		d.iter.ReportError("skipNumber", "invalid number literal "+strconv.Quote(lit))
	}
}

// finish accepts only whitespace after the top-level value.
func (d *decoder) finish() error {
	if d.iter.WhatIsNext() != jsoniter.InvalidValue || d.iter.Error == nil {
		return errTrailingContent
	}
	if !errors.Is(d.iter.Error, io.EOF) {
		return d.iter.Error
	}

	return nil
}

// readVehicleID accepts a non-blank string or an integral number. Numbers are
// keyed by their decimal text, so 7 and "7" name the same vehicle.
func readVehicleID(it *jsoniter.Iterator) (string, error) {
	switch it.WhatIsNext() {
	case jsoniter.StringValue:
		id := it.ReadString()
		if strings.TrimSpace(id) == "" {
			return "", ErrInvalidVehicleID
		}

		return id, nil
	case jsoniter.NumberValue:
		lit, ok := readNumber(it)
		if !ok {
			return "", ErrInvalidVehicleID
		}
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return "", ErrInvalidVehicleID
		}

		return strconv.FormatInt(n, 10), nil
	case jsoniter.NilValue:
		skipValue(it)

		return "", ErrMissingVehicleID
	default:
		skipValue(it)

		return "", ErrInvalidVehicleID
	}
}

func readSpeed(it *jsoniter.Iterator) (float64, error) {
	switch it.WhatIsNext() {
	case jsoniter.NumberValue:
		lit, ok := readNumber(it)
		if !ok {
			return 0, ErrInvalidSpeed
		}
		speed, err := strconv.ParseFloat(lit, 64)
		switch {
		case errors.Is(err, strconv.ErrRange):
			return 0, ErrNonFiniteSpeed
		case err != nil:
			return 0, ErrInvalidSpeed
		case math.IsInf(speed, 0) || math.IsNaN(speed):
			return 0, ErrNonFiniteSpeed
		}

		return speed, nil
	case jsoniter.NilValue:
		skipValue(it)

		return 0, ErrMissingSpeed
	default:
		skipValue(it)

		return 0, ErrInvalidSpeed
	}
}

// skipValue consumes the next value. Unlike Iterator.Skip it checks every
// number literal it passes.
func skipValue(it *jsoniter.Iterator) {
	switch it.WhatIsNext() {
	case jsoniter.NumberValue:
		readNumber(it)
	case jsoniter.ObjectValue:
		it.ReadObjectCB(func(it *jsoniter.Iterator, _ string) bool {
			skipValue(it)

			return it.Error == nil
		})
	case jsoniter.ArrayValue:
		it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			skipValue(it)

			return it.Error == nil
		})
	default:
		it.Skip()
	}
}

// readNumber reads a number literal. The iterator accepts any run of number
// characters, so a literal outside the JSON grammar is reported on it as a
// parse error.
func readNumber(it *jsoniter.Iterator) (string, bool) {
	lit := string(it.ReadNumber())
	if it.Error != nil {
		return "", false
	}
	if !validNumber(lit) {
		it.ReportError("readNumber", "invalid number literal "+strconv.Quote(lit))

		return "", false
	}

	return lit, true
}

func validNumber(lit string) bool {
	return lit != "" && json.Valid([]byte(lit))
}

// contextReader stops handing out bytes once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
