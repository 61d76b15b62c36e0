package overlay

import (
	"bufio"
	"errors"
	"fmt"
	"html"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultManualFontSize is the font size given to manually entered comments.
const DefaultManualFontSize = 25

// wireRecord matches one <d p="...">text</d> record. The body cannot contain
// '<', so an unterminated record never swallows the one after it.
var wireRecord = regexp.MustCompile(`<d\s+p="([^"]*)"[^>]*>([^<]*)</d>`)

// recordStart matches the opening of any record, complete or not.
var recordStart = regexp.MustCompile(`<d\s`)

// maxManualLine is the longest manual-entry line accepted; longer lines are
// dropped.
const maxManualLine = 1 << 20

// ParseResult is the outcome of an ingestion pass. Dropped counts records
// that were recognised but rejected.
type ParseResult struct {
	Comments []Comment
	Dropped  int
}

// ParseWire reads the markup format
//
//	<d p="time,mode,fontSize,color,timestamp,poolId,senderHash,dbId">text</d>
//
// Malformed records are skipped. The only error returned is a read error.
func ParseWire(r io.Reader) (ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ParseResult{}, fmt.Errorf("parse wire: read: %w", err)
	}

	var res ParseResult
	matches := wireRecord.FindAllStringSubmatch(string(data), -1)
	// Openings that never formed a complete record count as dropped.
	res.Dropped = max(0, len(recordStart.FindAllIndex(data, -1))-len(matches))
	for _, m := range matches {
		c, ok := parseWireRecord(m[1], m[2])
		if !ok {
			res.Dropped++
			continue
		}
		res.Comments = append(res.Comments, c)
	}
	return res, nil
}

func parseWireRecord(params, body string) (Comment, bool) {
	p := strings.Split(params, ",")
	if len(p) < 8 {
		return Comment{}, false
	}
	text := strings.TrimSpace(html.UnescapeString(body))
	if text == "" {
		return Comment{}, false
	}

	due, ok := parseDueTime(p[0])
	if !ok {
		return Comment{}, false
	}
	mode, err := strconv.Atoi(strings.TrimSpace(p[1]))
	if err != nil || !Mode(mode).Valid() {
		return Comment{}, false
	}
	fontSize, err := strconv.Atoi(strings.TrimSpace(p[2]))
	if err != nil || fontSize <= 0 {
		return Comment{}, false
	}
	color, ok := parseColor(p[3])
	if !ok {
		return Comment{}, false
	}
	timestamp, err := strconv.ParseInt(strings.TrimSpace(p[4]), 10, 64)
	if err != nil {
		return Comment{}, false
	}
	pool, err := strconv.Atoi(strings.TrimSpace(p[5]))
	if err != nil {
		return Comment{}, false
	}

	origin := strings.TrimSpace(p[7])
	return Comment{
		ID:       CommentID(origin),
		DueTime:  due,
		Mode:     Mode(mode),
		FontSize: fontSize,
		Color:    color,
		Text:     text,
		Metadata: Metadata{
			Timestamp:  timestamp,
			PoolID:     pool,
			SenderHash: strings.TrimSpace(p[6]),
			OriginID:   origin,
		},
	}, true
}

// ParseManual reads one comment per line in the form time,mode,color,text.
// Everything after the third comma is text. Blank lines are ignored; other
// malformed lines, and lines longer than maxManualLine, are dropped.
// now stamps the metadata timestamp.
func ParseManual(r io.Reader, now time.Time) (ParseResult, error) {
	var res ParseResult
	br := bufio.NewReaderSize(r, 64*1024)
	var buf []byte
	tooLong := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("parse manual: read: %w", err)
		}
		if !tooLong && len(buf)+len(chunk) > maxManualLine {
			tooLong = true
			buf = buf[:0]
		}
		if !tooLong {
			buf = append(buf, chunk...)
		}
		if isPrefix {
			continue
		}

		if tooLong {
			res.Dropped++
		} else {
			res.addManualLine(string(buf), now)
		}
		buf = buf[:0]
		tooLong = false
	}
	return res, nil
}

func (res *ParseResult) addManualLine(raw string, now time.Time) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return
	}
	c, ok := parseManualLine(line, now)
	if !ok {
		res.Dropped++
		return
	}
	res.Comments = append(res.Comments, c)
}

func parseManualLine(line string, now time.Time) (Comment, bool) {
	p := strings.SplitN(line, ",", 4)
	if len(p) < 4 {
		return Comment{}, false
	}
	text := strings.TrimSpace(p[3])
	if text == "" {
		return Comment{}, false
	}
	due, ok := parseDueTime(p[0])
	if !ok {
		return Comment{}, false
	}
	mode, err := strconv.Atoi(strings.TrimSpace(p[1]))
	if err != nil || !Mode(mode).Valid() {
		return Comment{}, false
	}
	color, ok := parseColor(p[2])
	if !ok {
		return Comment{}, false
	}

	origin := randomToken(16)
	return Comment{
		ID:       CommentID(origin),
		DueTime:  due,
		Mode:     Mode(mode),
		FontSize: DefaultManualFontSize,
		Color:    color,
		Text:     text,
		Metadata: Metadata{
			Timestamp:  now.Unix(),
			PoolID:     0,
			SenderHash: randomToken(8),
			OriginID:   origin,
		},
	}, true
}

func parseDueTime(s string) (float64, bool) {
	t, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return 0, false
	}
	return t, true
}

func parseColor(s string) (int, bool) {
	c, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || c < 0 || c > 0xFFFFFF {
		return 0, false
	}
	return c, true
}

// randomToken returns n lowercase hex characters (n <= 32).
func randomToken(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}
