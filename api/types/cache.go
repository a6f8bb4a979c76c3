/*
 * Copyright 2024 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package types

// Cache stores values built from a key, such as compiled regular expressions,
// with an optional time-to-live. Implementations must be safe for concurrent use.
type Cache interface {
	// Set stores a value. ttl is a duration string such as "10m"; empty never expires.
	Set(key string, value interface{}, ttl string) error
	// Get returns the value of key, or nil when missing or expired.
	Get(key string) interface{}
	// GetOrLoad returns the value of key, storing the result of load when it is missing.
	// Errors returned by load are not cached.
	GetOrLoad(key string, ttl string, load func() (interface{}, error)) (interface{}, error)
	Has(key string) bool
	Delete(key string) error
}
