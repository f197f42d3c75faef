// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package diagnostic

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/goccy/go-json"
	"golang.org/x/xerrors"
)

// Reporter writes the contents of a StatsTracker.
type Reporter interface {
	Report(w io.Writer, stats *StatsTracker) error
}

var csvHeader = []string{
	"TypeName", "File", "Line",
	"Allocs", "Alloc Bytes",
	"Deallocs", "Dealloc Bytes",
	"Net Allocs", "Net Alloc Bytes",
}

// CSVReporter writes a header row followed by one row per site, in the
// order the sites were first seen.
type CSVReporter struct{}

func (CSVReporter) Report(w io.Writer, stats *StatsTracker) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return xerrors.Errorf("csv report: %w", err)
	}

	row := make([]string, len(csvHeader))
	for _, site := range stats.Sites() {
		s := stats.Stats(site)
		rec := newSiteRecord(site, s)
		row[0] = rec.TypeName
		row[1] = rec.File
		row[2] = strconv.Itoa(rec.Line)
		row[3] = strconv.FormatInt(rec.Allocs, 10)
		row[4] = strconv.FormatInt(rec.AllocBytes, 10)
		row[5] = strconv.FormatInt(rec.Deallocs, 10)
		row[6] = strconv.FormatInt(rec.DeallocBytes, 10)
		row[7] = strconv.FormatInt(rec.NetAllocs, 10)
		row[8] = strconv.FormatInt(rec.NetAllocBytes, 10)
		if err := cw.Write(row); err != nil {
			return xerrors.Errorf("csv report: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return xerrors.Errorf("csv report: %w", err)
	}
	return nil
}

type siteRecord struct {
	TypeName      string `json:"type_name"`
	File          string `json:"file"`
	Line          int    `json:"line"`
	Allocs        int64  `json:"allocs"`
	AllocBytes    int64  `json:"alloc_bytes"`
	Deallocs      int64  `json:"deallocs"`
	DeallocBytes  int64  `json:"dealloc_bytes"`
	NetAllocs     int64  `json:"net_allocs"`
	NetAllocBytes int64  `json:"net_alloc_bytes"`
}

func newSiteRecord(site *Site, s Stats) siteRecord {
	rec := siteRecord{
		Allocs:        s.Allocations,
		AllocBytes:    s.BytesAllocated,
		Deallocs:      s.Deallocations,
		DeallocBytes:  s.BytesDeallocated,
		NetAllocs:     s.NetAllocations(),
		NetAllocBytes: s.NetBytes(),
	}
	if site != nil {
		rec.TypeName, rec.File, rec.Line = site.TypeName, site.FileName, site.Line
	}
	return rec
}

// JSONReporter writes the same fields as CSVReporter as a JSON array of
// objects. Indent, when set, pretty prints the output.
type JSONReporter struct {
	Indent string
}

func (r JSONReporter) Report(w io.Writer, stats *StatsTracker) error {
	recs := make([]siteRecord, 0, stats.Len())
	for _, site := range stats.Sites() {
		recs = append(recs, newSiteRecord(site, stats.Stats(site)))
	}

	enc := json.NewEncoder(w)
	if r.Indent != "" {
		enc.SetIndent("", r.Indent)
	}
	if err := enc.Encode(recs); err != nil {
		return xerrors.Errorf("json report: %w", err)
	}
	return nil
}

var (
	_ Reporter = CSVReporter{}
	_ Reporter = JSONReporter{}
)
