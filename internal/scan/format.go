package scan

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
)

// DisplayPlaces is the number of decimals shown for a probability.
const DisplayPlaces = 4

// FormatProbability renders p with exactly four decimals, e.g. "0.8234".
// Rounding applies to the exact binary value of p, so 0.00015 (stored just
// below that) shows as "0.0001".
func FormatProbability(p float64) string {
	d, err := decimal.NewFromString(strconv.FormatFloat(p, 'f', DisplayPlaces, 64))
	if err != nil {
		// NaN and infinities have no decimal form.
		return strconv.FormatFloat(p, 'f', DisplayPlaces, 64)
	}
	return d.StringFixed(DisplayPlaces)
}

// Formatted returns the cells as display strings.
func (t *Table) Formatted() [][]string {
	out := make([][]string, len(t.Cells))
	for r, row := range t.Cells {
		out[r] = make([]string, len(row))
		for c := range row {
			out[r][c] = FormatProbability(t.Cell(r, c))
		}
	}
	return out
}

// WriteCSV writes a header "target,<pool sizes...>" followed by one row per
// target number.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(t.PoolSizes)+1)
	header = append(header, "target")
	for _, p := range t.PoolSizes {
		header = append(header, strconv.Itoa(p))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for r, row := range t.Formatted() {
		record := make([]string, 0, len(row)+1)
		record = append(record, strconv.Itoa(t.Targets[r]))
		record = append(record, row...)
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteText writes an aligned plain-text table.
func (t *Table) WriteText(w io.Writer) error {
	mode := t.Variant.FeatMode
	if mode == "" {
		mode = "Normal"
	}
	if _, err := fmt.Fprintf(w, "Probability of success by number of success dice (%s%s%s)\n",
		mode, flag(t.Variant.Weary, ", Weary"), flag(t.Variant.Miserable, ", Miserable")); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "Target number\t")
	for _, p := range t.PoolSizes {
		fmt.Fprintf(tw, "%d\t", p)
	}
	fmt.Fprintln(tw)
	for r, row := range t.Formatted() {
		fmt.Fprintf(tw, "%d\t", t.Targets[r])
		for _, cell := range row {
			fmt.Fprintf(tw, "%s\t", cell)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func flag(set bool, label string) string {
	if set {
		return label
	}
	return ""
}
