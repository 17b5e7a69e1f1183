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
	"net/url"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
)

// Reference table URLs. They may be overwritten in tests.
var (
	ReportersURL = "https://comtradeapi.un.org/files/v1/app/reference/Reporters.json"
	PartnersURL  = "https://comtradeapi.un.org/files/v1/app/reference/partnerAreas.json"
)

// Area is one entry of a Comtrade reference table. The upstream id is a
// number for countries but a string for a few synthetic areas, hence the
// untyped field.
type Area struct {
	ID   any    `json:"id"`
	Text string `json:"text"`
}

type referencePage struct {
	Results []Area `json:"results"`
}

// FetchReporters downloads the reporter country reference table.
func FetchReporters(ctx context.Context) ([]Area, error) {
	return fetchAreas(ctx, ReportersURL)
}

// FetchPartners downloads the partner area reference table.
func FetchPartners(ctx context.Context) ([]Area, error) {
	return fetchAreas(ctx, PartnersURL)
}

func fetchAreas(ctx context.Context, uri string) ([]Area, error) {
	var page referencePage
	if err := fetch.FetchJSON(ctx, uri, &page, make(url.Values), nil); err != nil {
		return nil, errors.Annotate(err, "failed to fetch reference table %s", uri)
	}
	return page.Results, nil
}

// Labels maps area IDs to their display names.
func Labels(areas []Area) map[string]string {
	m := make(map[string]string, len(areas))
	for _, a := range areas {
		id := idString(a.ID)
		if id == "" {
			continue
		}
		m[id] = a.Text
	}
	return m
}

// LabelFor resolves a country code to its display name, tolerating the
// zero-padded codes used in configs ("076" vs. the upstream 76). It falls
// back to the code itself when the table has no entry.
func LabelFor(labels map[string]string, code string) string {
	if label, ok := labels[code]; ok {
		return label
	}
	if n, err := strconv.Atoi(code); err == nil {
		if label, ok := labels[strconv.Itoa(n)]; ok {
			return label
		}
	}
	return code
}

func idString(v any) string {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		return strconv.Itoa(typed)
	default:
		return ""
	}
}
