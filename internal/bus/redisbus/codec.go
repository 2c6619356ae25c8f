// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package redisbus

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/ManuGH/pkclient/internal/bus"
)

// Signals travel as CBOR with core deterministic encoding, so one signal
// always yields the same payload bytes.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("redisbus: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("redisbus: CBOR decoder initialization failed: " + err.Error())
	}
}

// encode renders msg as a payload. Only signals cross the wire.
func encode(msg bus.Message) ([]byte, error) {
	switch m := msg.(type) {
	case bus.Signal:
		return encMode.Marshal(m)
	case *bus.Signal:
		if m == nil {
			return nil, fmt.Errorf("redisbus: nil signal")
		}
		return encMode.Marshal(*m)
	default:
		return nil, fmt.Errorf("redisbus: unsupported message type %T", msg)
	}
}

// decode parses a payload. Integers come back as uint64 or int64 and lists
// as []any; the event decoder accepts both.
func decode(data []byte) (bus.Signal, error) {
	var sig bus.Signal
	if err := decMode.Unmarshal(data, &sig); err != nil {
		return bus.Signal{}, fmt.Errorf("redisbus: decode signal: %w", err)
	}
	if sig.Name == "" {
		return bus.Signal{}, fmt.Errorf("redisbus: signal without name")
	}
	return sig, nil
}
