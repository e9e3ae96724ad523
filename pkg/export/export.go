// Package export renders trip log entries for downstream accounting.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/taxi/core/model"
	"github.com/kilianp07/taxi/core/triplog"
)

// Formats accepted by Write.
const (
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatLines = "lines"
)

// Write renders entries in the named format.
func Write(w io.Writer, format string, entries []triplog.Entry) error {
	switch strings.ToLower(format) {
	case FormatCSV, "":
		return WriteCSV(w, entries)
	case FormatJSON:
		return WriteJSON(w, entries)
	case FormatLines:
		return WriteLines(w, entries)
	default:
		return fmt.Errorf("export: unknown format %q", format)
	}
}

// WriteJSON writes the entries as a JSON array.
func WriteJSON(w io.Writer, entries []triplog.Entry) error {
	if entries == nil {
		entries = []triplog.Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// WriteCSV writes the entries with a header row.
func WriteCSV(w io.Writer, entries []triplog.Entry) error {
	cw := csv.NewWriter(w)
	header := []string{"vehicle_id", "driver_id", "pickup", "destination", "start", "end", "distance_km", "fare_eur", "keystore_result"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, e := range entries {
		r := e.Record
		rec := []string{
			strconv.Itoa(r.VehicleID),
			strconv.Itoa(r.DriverID),
			r.Pickup.String(),
			r.Destination.String(),
			model.FormatTimestamp(r.Start),
			model.FormatTimestamp(r.End),
			strconv.FormatFloat(r.DistanceKm, 'f', 2, 64),
			strconv.FormatFloat(r.Fare, 'f', 2, 64),
			e.KeyStoreResult,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLines writes one semicolon record per line, the format stored on keys.
func WriteLines(w io.Writer, entries []triplog.Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := bw.WriteString(e.Record.Format() + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadLines parses semicolon records, one per line. Blank lines are skipped;
// the first malformed line aborts with its line number.
func ReadLines(r io.Reader) ([]model.TripRecord, error) {
	var out []model.TripRecord
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		rec, err := model.ParseTripRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
