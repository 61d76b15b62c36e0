package overlay

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// leadingTime captures the first p parameter of a record line.
var leadingTime = regexp.MustCompile(`^<d p="([0-9.]+),`)

// SortSummary describes the result of SortWire.
type SortSummary struct {
	Records int
	// MinTime and MaxTime cover records with a positive time; both are zero
	// when there are none.
	MinTime float64
	MaxTime float64
}

type sortLine struct {
	time float64
	text string
}

// SortWire copies a markup file from r to w with the record lines between
// <i> and </i> stably sorted by time. Lines outside that section are kept
// in place; lines inside it without a readable time sort as time zero.
func SortWire(r io.Reader, w io.Writer) (SortSummary, error) {
	var header, footer []string
	var body []sortLine
	inSection := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(raw)
		switch {
		case line == "<i>":
			inSection = true
			header = append(header, raw)
		case line == "</i>":
			inSection = false
			footer = append(footer, raw)
		case inSection:
			body = append(body, sortLine{time: lineTime(line), text: line})
		case len(footer) > 0:
			footer = append(footer, raw)
		default:
			header = append(header, raw)
		}
	}
	if err := scanner.Err(); err != nil {
		return SortSummary{}, fmt.Errorf("sort wire: scan: %w", err)
	}

	slices.SortStableFunc(body, func(a, b sortLine) int { return cmp.Compare(a.time, b.time) })

	var sum SortSummary
	for _, l := range body {
		if !strings.HasPrefix(l.text, "<d ") {
			continue
		}
		sum.Records++
		if l.time <= 0 {
			continue
		}
		if sum.MinTime == 0 || l.time < sum.MinTime {
			sum.MinTime = l.time
		}
		sum.MaxTime = max(sum.MaxTime, l.time)
	}

	bw := bufio.NewWriter(w)
	for _, l := range header {
		fmt.Fprintln(bw, l)
	}
	for _, l := range body {
		fmt.Fprintln(bw, l.text)
	}
	for _, l := range footer {
		fmt.Fprintln(bw, l)
	}
	if err := bw.Flush(); err != nil {
		return SortSummary{}, fmt.Errorf("sort wire: write: %w", err)
	}
	return sum, nil
}

func lineTime(line string) float64 {
	m := leadingTime.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	t, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return t
}
