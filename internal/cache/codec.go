package cache

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	CodecMsgpack = "msgpack"
	CodecCBOR    = "cbor"
	CodecJSON    = "json"
)

// Codec turns cached values into bytes for the backend.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// NewCodec returns the codec registered under name. An empty name selects msgpack.
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", CodecMsgpack:
		return MsgpackCodec{}, nil
	case CodecCBOR:
		return NewCBORCodec()
	case CodecJSON:
		return JSONCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown cache codec %q", name)
	}
}

// msgpackTimeExtID is the msgpack timestamp extension type.
const msgpackTimeExtID int8 = -1

func init() {
	// msgpack decodes timestamps in time.Local; cached values keep UTC.
	msgpack.RegisterExtDecoder(msgpackTimeExtID, time.Time{}, decodeUTCTime)
}

func decodeUTCTime(d *msgpack.Decoder, v reflect.Value, extLen int) error {
	b := make([]byte, extLen)
	if err := d.ReadFull(b); err != nil {
		return err
	}

	var tm time.Time
	switch extLen {
	case 4:
		tm = time.Unix(int64(binary.BigEndian.Uint32(b)), 0)
	case 8:
		sec := binary.BigEndian.Uint64(b)
		nsec := int64(sec >> 34)
		tm = time.Unix(int64(sec&0x00000003ffffffff), nsec)
	case 12:
		nsec := binary.BigEndian.Uint32(b)
		sec := binary.BigEndian.Uint64(b[4:])
		tm = time.Unix(int64(sec), int64(nsec))
	default:
		return fmt.Errorf("msgpack: invalid ext len=%d decoding time", extLen)
	}

	*v.Addr().Interface().(*time.Time) = tm.UTC()
	return nil
}

type MsgpackCodec struct{}

func (MsgpackCodec) Name() string                       { return CodecMsgpack }
func (MsgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (MsgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// CBORCodec encodes timestamps as RFC3339Nano text so they decode in UTC.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func NewCBORCodec() (CBORCodec, error) {
	eo := cbor.PreferredUnsortedEncOptions()
	eo.Time = cbor.TimeRFC3339Nano

	em, err := eo.EncMode()
	if err != nil {
		return CBORCodec{}, fmt.Errorf("cbor enc mode: %w", err)
	}
	dm, err := (cbor.DecOptions{}).DecMode()
	if err != nil {
		return CBORCodec{}, fmt.Errorf("cbor dec mode: %w", err)
	}
	return CBORCodec{enc: em, dec: dm}, nil
}

func (c CBORCodec) Name() string                       { return CodecCBOR }
func (c CBORCodec) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c CBORCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }

type JSONCodec struct{}

func (JSONCodec) Name() string                       { return CodecJSON }
func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
