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

package comtrade

import (
	"context"
	"testing"

	"github.com/stockparfait/fetch"
	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

func TestReference(t *testing.T) {
	Convey("Reference tables", t, func() {
		server := testutil.NewTestServer()
		defer server.Close()
		ctx := fetch.UseClient(context.Background(), server.Client())

		Convey("FetchReporters parses areas", func() {
			savedURL := ReportersURL
			ReportersURL = server.URL() + "/Reporters.json"
			defer func() { ReportersURL = savedURL }()

			server.ResponseBody = []string{
				`{"results":[{"id":170,"text":"Colombia"},{"id":156,"text":"China"}]}`}
			areas, err := FetchReporters(ctx)
			So(err, ShouldBeNil)
			So(len(areas), ShouldEqual, 2)
			So(areas[0].Text, ShouldEqual, "Colombia")
		})

		Convey("FetchPartners tolerates string ids", func() {
			savedURL := PartnersURL
			PartnersURL = server.URL() + "/partnerAreas.json"
			defer func() { PartnersURL = savedURL }()

			server.ResponseBody = []string{
				`{"results":[{"id":"all","text":"All"},{"id":0,"text":"World"}]}`}
			areas, err := FetchPartners(ctx)
			So(err, ShouldBeNil)
			labels := Labels(areas)
			So(labels["all"], ShouldEqual, "All")
			So(labels["0"], ShouldEqual, "World")
		})
	})

	Convey("Labels and LabelFor", t, func() {
		labels := Labels([]Area{
			{ID: float64(76), Text: "Brazil"},
			{ID: float64(170), Text: "Colombia"},
			{ID: nil, Text: "bogus"},
		})
		So(labels, ShouldResemble, map[string]string{"76": "Brazil", "170": "Colombia"})

		So(LabelFor(labels, "170"), ShouldEqual, "Colombia")
		// Configs use zero-padded codes; the upstream table does not.
		So(LabelFor(labels, "076"), ShouldEqual, "Brazil")
		So(LabelFor(labels, "999"), ShouldEqual, "999")
	})
}
