// Package codec encodes message payloads for the socket and pub/sub
// transports, as JSON text or CBOR binary.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

const (
	JSONName = "json"
	CBORName = "cbor"
)

var errUnknownCodec = errors.New("unknown codec")

type Codec interface {
	Name() string
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

var (
	JSON Codec = jsonCodec{}
	CBOR Codec = newCBOR()
)

// Get returns the codec registered under name; empty selects JSON.
func Get(name string) (Codec, error) {
	switch name {
	case JSONName, "":
		return JSON, nil
	case CBORName:
		return CBOR, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownCodec, name)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string        { return JSONName }
func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCBOR() cborCodec {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}

	return cborCodec{enc: enc, dec: dec}
}

func (cborCodec) Name() string        { return CBORName }
func (cborCodec) ContentType() string { return "application/cbor" }

func (c cborCodec) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c cborCodec) Unmarshal(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}
