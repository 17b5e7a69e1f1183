// Copyright 2025 David Becerra

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package quota counts the API round trips issued during a download campaign
// and answers whether further calls still fit within the daily budget.
package quota

import "sync"

// Tracker is a cumulative counter of HTTP round trips. It is created once per
// campaign and passed explicitly to every component that issues calls.
type Tracker struct {
	mu    sync.Mutex
	calls int
}

// New creates a Tracker with zero calls recorded.
func New() *Tracker {
	return &Tracker{}
}

// Increment records one completed HTTP round trip. Every attempt counts:
// successful, empty, throttled and failed alike. A single logical request
// retried N times records N round trips.
func (t *Tracker) Increment() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
}

// Calls returns the number of round trips recorded so far.
func (t *Tracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// NearLimit reports whether the budget is nearly exhausted: true when the
// recorded calls reach maxCalls - reserve.
func (t *Tracker) NearLimit(maxCalls, reserve int) bool {
	return t.Calls() >= maxCalls-reserve
}
