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

package mysql

import (
	"time"

	gomysql "github.com/go-sql-driver/mysql"
)

// Option tunes the connection opened by Open. Options override what the DSN
// says.
type Option func(*gomysql.Config)

// WithConnectTimeout bounds dialing the server.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *gomysql.Config) { c.Timeout = d }
}

// WithReadTimeout bounds every read from the server, including the wait for
// the next rows of a result set.
func WithReadTimeout(d time.Duration) Option {
	return func(c *gomysql.Config) { c.ReadTimeout = d }
}

// WithTimeZone sets the zone DATETIME values are interpreted in.
func WithTimeZone(loc *time.Location) Option {
	return func(c *gomysql.Config) { c.Loc = loc }
}

// WithSessionVariable runs SET name=value on every new connection.
func WithSessionVariable(name, value string) Option {
	return func(c *gomysql.Config) {
		if c.Params == nil {
			c.Params = map[string]string{}
		}
		c.Params[name] = value
	}
}
