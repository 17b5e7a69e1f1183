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

package table

import (
	"bytes"
	"testing"

	"github.com/dafrbm/china-schock-colombia/comtrade"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTable(t *testing.T) {
	t.Parallel()

	Convey("FromRecords", t, func() {
		rows := []comtrade.Record{
			{"period": float64(1992), "cmdCode": "010121", "primaryValue": 100.5},
			{"period": float64(1993), "cmdCode": "010129", "partner_country": "Chile"},
		}
		tbl := FromRecords(rows)

		Convey("header is the sorted union of fields", func() {
			So(tbl.Columns(), ShouldResemble,
				[]string{"cmdCode", "partner_country", "period", "primaryValue"})
			So(tbl.NumRows(), ShouldEqual, 2)
			So(tbl.HasColumn("partner_country"), ShouldBeTrue)
			So(tbl.HasColumn("flowCode"), ShouldBeFalse)
		})

		Convey("WriteCSV renders missing fields as empty cells", func() {
			var buf bytes.Buffer
			So(tbl.WriteCSV(&buf, Params{}), ShouldBeNil)
			So(buf.String(), ShouldEqual,
				"cmdCode,partner_country,period,primaryValue\n"+
					"010121,,1992,100.5\n"+
					"010129,Chile,1993,\n")
		})

		Convey("WriteCSV without header, limited rows", func() {
			var buf bytes.Buffer
			So(tbl.WriteCSV(&buf, Params{NoHeader: true, Rows: 1}), ShouldBeNil)
			So(buf.String(), ShouldEqual, "010121,,1992,100.5\n")
		})

		Convey("WriteText aligns columns", func() {
			var buf bytes.Buffer
			So(tbl.WriteText(&buf, Params{Rows: 1}), ShouldBeNil)
			So(buf.String(), ShouldEqual, `cmdCode | partner_country | period | primaryValue
------- | --------------- | ------ | ------------
 010121 |                 |   1992 |        100.5
`)
		})

		Convey("WriteText rejects a tiny MaxColWidth", func() {
			var buf bytes.Buffer
			So(tbl.WriteText(&buf, Params{MaxColWidth: 2}), ShouldNotBeNil)
		})
	})

	Convey("Empty table writes nothing", t, func() {
		var buf bytes.Buffer
		tbl := FromRecords(nil)
		So(tbl.WriteCSV(&buf, Params{}), ShouldBeNil)
		So(buf.String(), ShouldEqual, "")
	})
}
