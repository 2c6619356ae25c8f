// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ManuGH/pkclient/internal/bus"
	"github.com/ManuGH/pkclient/internal/pk/enum"
	"github.com/ManuGH/pkclient/internal/transport"
)

var (
	// ErrMalformed is returned when a signal's arity or field types do not match its name.
	ErrMalformed = errors.New("malformed event")
	// ErrUnknownSignal is returned for signal names outside the protocol.
	ErrUnknownSignal = errors.New("unknown signal")
)

const fileSeparator = ";"

type decoder struct {
	arity  int
	decode func(f *fields) Event
}

var decoders = map[string]decoder{
	transport.SignalPackage: {3, func(f *fields) Event {
		return Package{Info: enum.ParseInfo(f.str()), ID: f.str(), Summary: f.str()}
	}},
	transport.SignalStatusChanged: {1, func(f *fields) Event {
		return StatusChanged{Status: enum.ParseStatus(f.str())}
	}},
	transport.SignalProgressChanged: {4, func(f *fields) Event {
		return ProgressChanged{Percentage: f.u32(), Subpercentage: f.u32(), Elapsed: f.u32(), Remaining: f.u32()}
	}},
	transport.SignalFinished: {2, func(f *fields) Event {
		return Finished{Exit: enum.ParseExit(f.str()), Runtime: f.millis()}
	}},
	transport.SignalErrorCode: {2, func(f *fields) Event {
		return ErrorCode{Code: enum.ParseErrorCode(f.str()), Details: f.str()}
	}},
	transport.SignalRequireRestart: {2, func(f *fields) Event {
		return RequireRestart{Restart: enum.ParseRestart(f.str()), Details: f.str()}
	}},
	transport.SignalMessage: {2, func(f *fields) Event {
		return Message{Kind: enum.ParseMessage(f.str()), Details: f.str()}
	}},
	transport.SignalDetails: {6, func(f *fields) Event {
		return Details{
			ID:          f.str(),
			License:     f.str(),
			Group:       enum.ParseGroup(f.str()),
			Description: f.str(),
			URL:         f.str(),
			Size:        f.u64(),
		}
	}},
	transport.SignalFiles: {2, func(f *fields) Event {
		id := f.str()
		return Files{ID: id, Files: splitFiles(f.str())}
	}},
	transport.SignalUpdateDetail: {8, func(f *fields) Event {
		return UpdateDetail{
			ID:        f.str(),
			Updates:   f.str(),
			Obsoletes: f.str(),
			VendorURL: f.str(),
			BugURL:    f.str(),
			CVEURL:    f.str(),
			Restart:   enum.ParseRestart(f.str()),
			Text:      f.str(),
		}
	}},
	transport.SignalRepoDetail: {3, func(f *fields) Event {
		return RepoDetail{ID: f.str(), Description: f.str(), Enabled: f.boolean()}
	}},
	transport.SignalRepoSignatureRequired: {8, func(f *fields) Event {
		return RepoSignatureRequired{
			ID:          f.str(),
			RepoName:    f.str(),
			KeyURL:      f.str(),
			KeyUserID:   f.str(),
			KeyID:       f.str(),
			Fingerprint: f.str(),
			Timestamp:   f.str(),
			SigType:     enum.ParseSigType(f.str()),
		}
	}},
	transport.SignalEulaRequired: {4, func(f *fields) Event {
		return EulaRequired{EulaID: f.str(), PackageID: f.str(), Vendor: f.str(), Agreement: f.str()}
	}},
	transport.SignalAllowCancel: {1, func(f *fields) Event {
		return AllowCancel{Allowed: f.boolean()}
	}},
	transport.SignalCallerActiveChanged: {1, func(f *fields) Event {
		return CallerActiveChanged{Active: f.boolean()}
	}},
	transport.SignalTransaction: {6, func(f *fields) Event {
		return Transaction{
			TID:       f.str(),
			Timestamp: f.str(),
			Succeeded: f.boolean(),
			Role:      enum.ParseRole(f.str()),
			Duration:  f.millis(),
			Data:      f.str(),
		}
	}},
}

// Decode turns a bus signal into its typed event. Fields are read in wire
// order; the arity must match exactly.
func Decode(sig bus.Signal) (Event, error) {
	d, ok := decoders[sig.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSignal, sig.Name)
	}
	if len(sig.Body) != d.arity {
		return nil, fmt.Errorf("%w: %s carries %d fields, want %d", ErrMalformed, sig.Name, len(sig.Body), d.arity)
	}
	f := &fields{name: sig.Name, body: sig.Body}
	ev := d.decode(f)
	if f.err != nil {
		return nil, f.err
	}
	return ev, nil
}

// fields reads a signal body positionally. The first type mismatch is kept
// and every later read returns a zero value.
type fields struct {
	name string
	body []any
	pos  int
	err  error
}

func (f *fields) next() (any, int) {
	i := f.pos
	f.pos++
	return f.body[i], i
}

func (f *fields) fail(i int, want string, got any) {
	if f.err == nil {
		f.err = fmt.Errorf("%w: %s field %d is %T, want %s", ErrMalformed, f.name, i, got, want)
	}
}

func (f *fields) str() string {
	v, i := f.next()
	if f.err != nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		f.fail(i, "string", v)
	}
	return s
}

func (f *fields) boolean() bool {
	v, i := f.next()
	if f.err != nil {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		f.fail(i, "bool", v)
	}
	return b
}

func (f *fields) u64() uint64 {
	v, i := f.next()
	if f.err != nil {
		return 0
	}
	n, ok := AsUint64(v)
	if !ok {
		f.fail(i, "unsigned integer", v)
	}
	return n
}

func (f *fields) u32() uint32 {
	v, i := f.next()
	if f.err != nil {
		return 0
	}
	n, ok := AsUint64(v)
	if !ok || n > math.MaxUint32 {
		f.fail(i, "uint32", v)
		return 0
	}
	return uint32(n)
}

func (f *fields) millis() time.Duration {
	return time.Duration(f.u32()) * time.Millisecond
}

// AsUint64 accepts any non-negative integer kind. Codecs disagree on the Go
// type they decode integers into.
func AsUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case uint32:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint:
		return uint64(n), true
	case int64:
		return uint64(n), n >= 0
	case int32:
		return uint64(n), n >= 0
	case int16:
		return uint64(n), n >= 0
	case int8:
		return uint64(n), n >= 0
	case int:
		return uint64(n), n >= 0
	}
	return 0, false
}

func splitFiles(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, fileSeparator)
}
