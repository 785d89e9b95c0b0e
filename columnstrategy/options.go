// Copyright (c) 2025 ADBC Drivers Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//         http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package columnstrategy

import (
	"fmt"
	"math/bits"
	"runtime"
	"strconv"
	"strings"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/spiceai/arrow-odbc/buffers"
)

const (
	OptionKeyMaxTextSize         = "adbc.odbc.max_text_size"
	OptionKeyMaxBinarySize       = "adbc.odbc.max_binary_size"
	OptionKeyFallibleAllocations = "adbc.odbc.fallible_allocations"
	OptionKeyTextEncoding        = "adbc.odbc.text_encoding"
)

// MaxTransitBufferBytes is the largest transit buffer allocated when
// fallible allocations are enabled.
const MaxTransitBufferBytes = 1 << 30

// TextEncoding selects how text is transferred from the data source.
type TextEncoding int8

const (
	// TextEncodingAuto uses UTF-16 on Windows and UTF-8 elsewhere, following
	// the default system encoding of the driver managers on each platform.
	TextEncodingAuto TextEncoding = iota
	TextEncodingNarrow
	TextEncodingWide
)

func (e TextEncoding) String() string {
	switch e {
	case TextEncodingNarrow:
		return "narrow"
	case TextEncodingWide:
		return "wide"
	default:
		return "auto"
	}
}

func (e TextEncoding) isWide() bool {
	if e == TextEncodingAuto {
		return runtime.GOOS == "windows"
	}
	return e == TextEncodingWide
}

func ParseTextEncoding(s string) (TextEncoding, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return TextEncodingAuto, nil
	case "narrow", "utf8", "utf-8":
		return TextEncodingNarrow, nil
	case "wide", "utf16", "utf-16":
		return TextEncodingWide, nil
	}
	return TextEncodingAuto, fmt.Errorf("unknown text encoding %q", s)
}

// BufferAllocationOptions bound the transit buffers of a reader. The zero
// value imposes no limits and allocates infallibly.
type BufferAllocationOptions struct {
	// MaxTextSize caps the length of text buffers, in bytes for UTF-8 and in
	// code units for UTF-16. Zero means no limit.
	MaxTextSize int
	// MaxBinarySize caps the length of binary buffers in bytes. Zero means no
	// limit.
	MaxBinarySize int
	// FallibleAllocations makes AllocateColumnBuffer refuse buffers larger
	// than MaxTransitBufferBytes instead of trying to allocate them.
	FallibleAllocations bool
	TextEncoding        TextEncoding
}

// SetOption parses a single string option.
func (o *BufferAllocationOptions) SetOption(key, value string) error {
	switch key {
	case OptionKeyMaxTextSize:
		n, err := parseSize(key, value)
		if err != nil {
			return err
		}
		o.MaxTextSize = n
	case OptionKeyMaxBinarySize:
		n, err := parseSize(key, value)
		if err != nil {
			return err
		}
		o.MaxBinarySize = n
	case OptionKeyFallibleAllocations:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return invalidOption(key, value, err)
		}
		o.FallibleAllocations = b
	case OptionKeyTextEncoding:
		enc, err := ParseTextEncoding(value)
		if err != nil {
			return invalidOption(key, value, err)
		}
		o.TextEncoding = enc
	default:
		return adbc.Error{
			Msg:  fmt.Sprintf("[arrow-odbc] Unknown option '%s'", key),
			Code: adbc.StatusNotImplemented,
		}
	}
	return nil
}

// GetOption returns the string form of an option set through SetOption.
func (o *BufferAllocationOptions) GetOption(key string) (string, error) {
	switch key {
	case OptionKeyMaxTextSize:
		return strconv.Itoa(o.MaxTextSize), nil
	case OptionKeyMaxBinarySize:
		return strconv.Itoa(o.MaxBinarySize), nil
	case OptionKeyFallibleAllocations:
		return strconv.FormatBool(o.FallibleAllocations), nil
	case OptionKeyTextEncoding:
		return o.TextEncoding.String(), nil
	}
	return "", adbc.Error{
		Msg:  fmt.Sprintf("[arrow-odbc] Unknown option '%s'", key),
		Code: adbc.StatusNotFound,
	}
}

func parseSize(key, value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, invalidOption(key, value, err)
	}
	if n < 0 {
		return 0, invalidOption(key, value, fmt.Errorf("must not be negative"))
	}
	return n, nil
}

func invalidOption(key, value string, err error) error {
	return adbc.Error{
		Msg:  fmt.Sprintf("[arrow-odbc] Invalid value '%s' for option '%s': %v", value, key, err),
		Code: adbc.StatusInvalidArgument,
	}
}

// ResolveBufferLength decides the length of a variable sized buffer from the
// length reported by the data source and an optional ceiling (zero for none):
//
//	reported  ceiling  result
//	0         none     ZeroSizedColumnError
//	0         c        c
//	n         none     n
//	n         c        min(n, c)
//
// Negative reported lengths count as zero.
func ResolveBufferLength(sqlType buffers.DataType, reported, ceiling int) (int, error) {
	reported = max(reported, 0)
	switch {
	case reported == 0 && ceiling == 0:
		return 0, &ZeroSizedColumnError{SQLType: sqlType}
	case reported == 0:
		return ceiling, nil
	case ceiling == 0:
		return reported, nil
	default:
		return min(reported, ceiling), nil
	}
}

// AllocateColumnBuffer allocates a transit buffer of capacity rows. With
// fallible allocations a buffer larger than MaxTransitBufferBytes is
// reported as TooLargeError.
func AllocateColumnBuffer(desc buffers.BufferDescription, capacity int, opts BufferAllocationOptions) (buffers.AnyColumnBuffer, error) {
	if opts.FallibleAllocations {
		elementSize := desc.ElementSize()
		hi, total := bits.Mul64(uint64(capacity), uint64(elementSize))
		if capacity < 0 || hi != 0 || total > MaxTransitBufferBytes {
			return nil, &TooLargeError{NumElements: capacity, ElementSize: elementSize}
		}
	}
	return buffers.NewColumnBuffer(desc, capacity), nil
}
