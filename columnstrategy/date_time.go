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
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/spiceai/arrow-odbc/buffers"
)

const (
	secondsPerDay  = 24 * 60 * 60
	nanosPerSecond = 1_000_000_000
)

// DateConversion turns a date struct into days since the UNIX epoch.
type DateConversion struct{}

func (DateConversion) CType() buffers.CType { return buffers.CTypeDate }

func (DateConversion) Convert(d buffers.Date) (arrow.Date32, error) {
	t := time.Date(int(d.Year), time.Month(d.Month), int(d.Day), 0, 0, 0, 0, time.UTC)
	return arrow.Date32(t.Unix() / secondsPerDay), nil
}

// epochSeconds is the number of whole seconds since the UNIX epoch. The
// fraction is not part of it and is always non-negative, so adding a scaled
// fraction rounds towards negative infinity for instants before 1970.
func epochSeconds(ts buffers.Timestamp) int64 {
	return time.Date(int(ts.Year), time.Month(ts.Month), int(ts.Day),
		int(ts.Hour), int(ts.Minute), int(ts.Second), 0, time.UTC).Unix()
}

// TimestampSecConversion truncates to whole seconds.
type TimestampSecConversion struct{}

func (TimestampSecConversion) CType() buffers.CType { return buffers.CTypeTimestamp }

func (TimestampSecConversion) Convert(ts buffers.Timestamp) (arrow.Timestamp, error) {
	return arrow.Timestamp(epochSeconds(ts)), nil
}

type TimestampMsConversion struct{}

func (TimestampMsConversion) CType() buffers.CType { return buffers.CTypeTimestamp }

func (TimestampMsConversion) Convert(ts buffers.Timestamp) (arrow.Timestamp, error) {
	return arrow.Timestamp(epochSeconds(ts)*1_000 + int64(ts.Fraction)/1_000_000), nil
}

type TimestampUsConversion struct{}

func (TimestampUsConversion) CType() buffers.CType { return buffers.CTypeTimestamp }

func (TimestampUsConversion) Convert(ts buffers.Timestamp) (arrow.Timestamp, error) {
	return arrow.Timestamp(epochSeconds(ts)*1_000_000 + int64(ts.Fraction)/1_000), nil
}

// TimestampNsConversion keeps full precision. Only instants between
// 1677-09-21 00:12:43.145224192 and 2262-04-11 23:47:16.854775807 fit into
// 64 bits of nanoseconds, anything else is an ErrInvalidValue.
type TimestampNsConversion struct{}

func (TimestampNsConversion) CType() buffers.CType { return buffers.CTypeTimestamp }

func (TimestampNsConversion) Convert(ts buffers.Timestamp) (arrow.Timestamp, error) {
	secs, frac := epochSeconds(ts), int64(ts.Fraction)
	if frac >= nanosPerSecond {
		return 0, timestampOutOfRange(ts)
	}
	if secs < 0 {
		// Borrow a second so the product below stays in range for the
		// earliest representable instants.
		secs, frac = secs+1, frac-nanosPerSecond
	}
	if secs < math.MinInt64/nanosPerSecond || secs > math.MaxInt64/nanosPerSecond {
		return 0, timestampOutOfRange(ts)
	}
	ns := secs * nanosPerSecond
	if (frac > 0 && ns > math.MaxInt64-frac) || (frac < 0 && ns < math.MinInt64-frac) {
		return 0, timestampOutOfRange(ts)
	}
	return arrow.Timestamp(ns + frac), nil
}

func timestampOutOfRange(ts buffers.Timestamp) error {
	return fmt.Errorf("%w: %04d-%02d-%02d %02d:%02d:%02d.%09d is out of range for nanosecond timestamps",
		ErrInvalidValue, ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute, ts.Second, ts.Fraction)
}
