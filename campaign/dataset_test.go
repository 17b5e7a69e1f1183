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

package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/dafrbm/china-schock-colombia/comtrade"
	"github.com/dafrbm/china-schock-colombia/quota"

	. "github.com/smartystreets/goconvey/convey"
)

// stubFetcher resolves requests from a canned outcome map keyed by
// Request.String(), recording every request it receives. Unknown requests
// resolve to Empty. Each call increments the tracker once, like a real
// single round trip.
type stubFetcher struct {
	outcomes map[string]comtrade.Outcome
	requests []comtrade.Request
}

var _ YearFetcher = (*stubFetcher)(nil)

func (s *stubFetcher) FetchYear(ctx context.Context, tracker *quota.Tracker, req comtrade.Request) comtrade.Outcome {
	tracker.Increment()
	s.requests = append(s.requests, req)
	if out, ok := s.outcomes[req.String()]; ok {
		return out
	}
	return comtrade.Outcome{Status: comtrade.Empty}
}

func rows(year int, codes ...string) []comtrade.Record {
	var rs []comtrade.Record
	for _, c := range codes {
		rs = append(rs, comtrade.Record{"period": float64(year), "cmdCode": c})
	}
	return rs
}

// newTestFetcher returns a Fetcher with no pacing delays.
func newTestFetcher(s *stubFetcher, tracker *quota.Tracker) *Fetcher {
	f := NewFetcher(s, tracker)
	f.YearPause = 0
	f.PartnerPause = 0
	return f
}

func TestFetchDataset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ds := Dataset{
		Name:      "test_dataset",
		Reporter:  "170",
		Partner:   "156",
		Flow:      comtrade.FlowImport,
		Commodity: comtrade.DefaultCommodity,
	}

	Convey("concatenates years in ascending order, skipping empty ones", t, func() {
		stub := &stubFetcher{outcomes: map[string]comtrade.Outcome{
			"170/156/1992/M": {Status: comtrade.Success, Rows: rows(1992, "010121", "010129")},
			"170/156/1993/M": {Status: comtrade.Empty},
			"170/156/1994/M": {Status: comtrade.Success, Rows: rows(1994, "020110")},
		}}
		tracker := quota.New()
		f := newTestFetcher(stub, tracker)

		result, err := f.FetchDataset(ctx, ds, 1992, 1994)
		So(err, ShouldBeNil)
		So(len(result), ShouldEqual, 3)
		So(result[0]["period"], ShouldEqual, 1992)
		So(result[1]["period"], ShouldEqual, 1992)
		So(result[2]["period"], ShouldEqual, 1994)
		So(tracker.Calls(), ShouldEqual, 3)
	})

	Convey("failed years contribute zero rows, like empty ones", t, func() {
		stub := &stubFetcher{outcomes: map[string]comtrade.Outcome{
			"170/156/1992/M": {Status: comtrade.Failed},
			"170/156/1993/M": {Status: comtrade.Success, Rows: rows(1993, "020110")},
			"170/156/1994/M": {Status: comtrade.RetryExhausted},
		}}
		f := newTestFetcher(stub, quota.New())

		result, err := f.FetchDataset(ctx, ds, 1992, 1994)
		So(err, ShouldBeNil)
		So(len(result), ShouldEqual, 1)
		So(result[0]["period"], ShouldEqual, 1993)
	})

	Convey("stops before the next year once the budget is nearly exhausted", t, func() {
		stub := &stubFetcher{outcomes: map[string]comtrade.Outcome{
			"170/156/1992/M": {Status: comtrade.Success, Rows: rows(1992, "010121")},
			"170/156/1993/M": {Status: comtrade.Success, Rows: rows(1993, "010121")},
			"170/156/1994/M": {Status: comtrade.Success, Rows: rows(1994, "010121")},
		}}
		tracker := quota.New()
		f := newTestFetcher(stub, tracker)
		f.MaxCalls = 3
		f.Reserve = 1 // near limit at 2 calls

		result, err := f.FetchDataset(ctx, ds, 1992, 1996)
		So(err, ShouldBeNil)
		// Years 1992 and 1993 were fetched; 1994 was never issued.
		So(len(stub.requests), ShouldEqual, 2)
		So(stub.requests[1].Period, ShouldEqual, 1993)
		So(len(result), ShouldEqual, 2)
		So(tracker.Calls(), ShouldEqual, 2)
	})

	Convey("an all-empty range yields an absent result", t, func() {
		stub := &stubFetcher{}
		f := newTestFetcher(stub, quota.New())

		result, err := f.FetchDataset(ctx, ds, 1992, 1995)
		So(err, ShouldBeNil)
		So(result, ShouldBeNil)
		So(len(stub.requests), ShouldEqual, 4)
	})

	Convey("a canceled context interrupts the pacing wait", t, func() {
		stub := &stubFetcher{}
		f := newTestFetcher(stub, quota.New())
		f.YearPause = time.Hour // forces the pause branch to consult the context

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := f.FetchDataset(cctx, ds, 1992, 1995)
		So(err, ShouldNotBeNil)
	})
}

func TestFetchMultiPartner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ds := Dataset{
		Name:      "china_exports_to_lac_HS6",
		Reporter:  "156",
		Flow:      comtrade.FlowExport,
		Commodity: comtrade.DefaultCommodity,
		Partners: []Partner{
			{Code: "152", Label: "Chile"},
			{Code: "604", Label: "Peru"},
		},
	}

	Convey("tags rows per partner, keeping partner order", t, func() {
		stub := &stubFetcher{outcomes: map[string]comtrade.Outcome{
			"156/152/2000/X": {Status: comtrade.Success, Rows: rows(2000, "010121", "010129")},
			"156/604/2000/X": {Status: comtrade.Success, Rows: rows(2000, "020110")},
		}}
		tracker := quota.New()
		f := newTestFetcher(stub, tracker)

		result, err := f.FetchMultiPartner(ctx, ds, 2000, 2000)
		So(err, ShouldBeNil)
		So(len(result), ShouldEqual, 3)
		So(result[0][PartnerLabelColumn], ShouldEqual, "Chile")
		So(result[1][PartnerLabelColumn], ShouldEqual, "Chile")
		So(result[2][PartnerLabelColumn], ShouldEqual, "Peru")
		So(result[2]["cmdCode"], ShouldEqual, "020110")
		So(tracker.Calls(), ShouldEqual, 2)
	})

	Convey("a partner with no rows leaves no trace in the result", t, func() {
		stub := &stubFetcher{outcomes: map[string]comtrade.Outcome{
			"156/604/2000/X": {Status: comtrade.Success, Rows: rows(2000, "020110")},
		}}
		f := newTestFetcher(stub, quota.New())

		result, err := f.FetchMultiPartner(ctx, ds, 2000, 2000)
		So(err, ShouldBeNil)
		So(len(result), ShouldEqual, 1)
		So(result[0][PartnerLabelColumn], ShouldEqual, "Peru")
	})

	Convey("budget exhaustion skips the remaining partners", t, func() {
		stub := &stubFetcher{outcomes: map[string]comtrade.Outcome{
			"156/152/2000/X": {Status: comtrade.Success, Rows: rows(2000, "010121")},
		}}
		tracker := quota.New()
		f := newTestFetcher(stub, tracker)
		f.MaxCalls = 2
		f.Reserve = 1 // near limit after the very first call

		result, err := f.FetchMultiPartner(ctx, ds, 2000, 2001)
		So(err, ShouldBeNil)
		So(len(result), ShouldEqual, 1)
		// Only Chile's first year was issued; Peru was never started.
		So(len(stub.requests), ShouldEqual, 1)
		So(stub.requests[0].Partner, ShouldEqual, "152")
	})
}
