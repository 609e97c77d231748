package statement

import (
	"errors"
	"strings"
	"time"

	"github.com/edgewise-labs/tradebook/internal/models"
	"github.com/spf13/cast"
	"golang.org/x/net/html"
)

// Source 报表来源格式
type Source string

const (
	SourceMT4    Source = "MT4"
	SourceMT5    Source = "MT5"
	SourceManual Source = "Manual"
)

// ParseSource resolves a user-supplied source token.
func ParseSource(raw string) (Source, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "MT4":
		return SourceMT4, true
	case "MT5":
		return SourceMT5, true
	case "MANUAL":
		return SourceManual, true
	}
	return "", false
}

// AccountKind maps the statement source to the account source kind that is
// allowed to ingest it. MT4 and MT5 statements both arrive as file uploads.
func (s Source) AccountKind() models.SourceKind {
	if s == SourceManual {
		return models.SourceManual
	}
	return models.SourceFile
}

var (
	ErrNoClosedTrades = errors.New("no valid closed trades found")
	ErrTooManyRows    = errors.New("statement too large")
	ErrUnknownSource  = errors.New("unknown statement source")
)

// Warning 单行解析告警，不会中断整批导入
type Warning struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Result 适配器输出：规范化交易加非致命告警
type Result struct {
	Trades   []models.Trade `json:"trades"`
	Warnings []Warning      `json:"warnings"`
}

func (r *Result) warn(row int, reason string) {
	r.Warnings = append(r.Warnings, Warning{Row: row, Reason: reason})
}

const defaultMaxRows = 10000

// Options 解析选项
type Options struct {
	// MaxRows caps the number of table rows a single statement may carry.
	MaxRows int
	// Location is the account-local timezone statement timestamps are
	// interpreted in.
	Location *time.Location
}

func (o Options) maxRows() int {
	if o.MaxRows > 0 {
		return o.MaxRows
	}
	return defaultMaxRows
}

func (o Options) location() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return time.UTC
}

// Parse dispatches a raw broker export to the adapter for the given source.
// Manual entries do not travel as raw exports, use ParseManual instead.
func Parse(source Source, raw string, opts Options) (*Result, error) {
	switch source {
	case SourceMT4:
		return ParseMT4(raw, opts)
	case SourceMT5:
		return ParseMT5(raw, opts)
	default:
		return nil, ErrUnknownSource
	}
}

// extractRows walks the HTML document and returns every table row as a
// slice of trimmed cell texts. Broker statements are table soup, so no
// assumptions about nesting beyond tr/td/th.
func extractRows(raw string) ([][]string, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}

	var rows [][]string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, cellText(c))
				}
			}
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return rows, nil
}

// cellText concatenates the text content of a cell, collapsing whitespace.
func cellText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(strings.ReplaceAll(sb.String(), "\u00a0", " ")), " ")
}

func rowContains(cells []string, token string) bool {
	for _, c := range cells {
		if strings.Contains(c, token) {
			return true
		}
	}
	return false
}

var numberCleaner = strings.NewReplacer(" ", "", "\u00a0", "", ",", "")

// parseFloatCell parses a required numeric cell.
func parseFloatCell(raw string) (float64, error) {
	return cast.ToFloat64E(numberCleaner.Replace(strings.TrimSpace(raw)))
}

// lenientFloat parses an optional numeric cell, defaulting to 0 when the
// cell is empty or malformed.
func lenientFloat(raw string) float64 {
	return cast.ToFloat64(numberCleaner.Replace(strings.TrimSpace(raw)))
}

// optionalPrice turns a broker "unset" price (zero) into nil.
func optionalPrice(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

var timeLayouts = []string{
	"2006.01.02 15:04:05",
	"2006.01.02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseTime parses broker statement timestamps in the account-local zone.
func parseTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// cell returns the i-th cell or empty when the row is shorter. Broker
// templates drop trailing optional columns.
func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}
