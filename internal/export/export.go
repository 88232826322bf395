// Package export serializes reviewed posts as CSV or JSON downloads.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BTreeMap/PostPipe/internal/models"
	"github.com/BTreeMap/PostPipe/internal/parser"
)

// Format names an export format.
type Format string

const (
	FormatCSV         Format = "csv"
	FormatEnhancedCSV Format = "enhanced-csv"
	FormatJSON        Format = "json"
)

// ParseFormat maps a query value to a Format, defaulting to enhanced CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatEnhancedCSV:
		return FormatEnhancedCSV, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", models.ErrInvalidInput, s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

var (
	basicHeader    = []string{"Date", "Content", "Graphic Concept"}
	enhancedHeader = []string{"Post Number", "Date", "Scheduled For", "Brand", "Content", "Graphic Concept", "Character Count", "Hashtags", "Mentions"}
	unsafeNameRe   = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// Write serializes posts in the given format.
func Write(w io.Writer, f Format, posts []models.Post, brandName string, now time.Time) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, posts)
	case FormatCSV:
		return WriteCSV(w, posts, brandName, false, now)
	default:
		return WriteCSV(w, posts, brandName, true, now)
	}
}

// WriteCSV writes posts as CSV. The enhanced layout adds the post number,
// brand, normalised schedule date, and content statistics.
func WriteCSV(w io.Writer, posts []models.Post, brandName string, enhanced bool, now time.Time) error {
	cw := csv.NewWriter(w)
	header := basicHeader
	if enhanced {
		header = enhancedHeader
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, p := range posts {
		record := []string{p.Date, p.Content, p.Graphic}
		if enhanced {
			stats := Analyze(p.Content)
			record = []string{
				"#" + strconv.Itoa(p.Number),
				p.Date,
				scheduledFor(p.Date, now),
				brandName,
				p.Content,
				p.Graphic,
				strconv.Itoa(stats.Characters),
				strconv.Itoa(stats.Hashtags),
				strconv.Itoa(stats.Mentions),
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record %d: %w", p.Number, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes posts as an indented JSON array.
func WriteJSON(w io.Writer, posts []models.Post) error {
	if posts == nil {
		posts = []models.Post{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(posts)
}

// Stats holds derived statistics for a post body.
type Stats struct {
	Characters int
	Hashtags   int
	Mentions   int
}

// Analyze counts characters, hashtags, and mentions in content.
func Analyze(content string) Stats {
	s := Stats{Characters: utf8.RuneCountInString(content)}
	for _, word := range strings.Fields(content) {
		switch {
		case strings.HasPrefix(word, "#"):
			s.Hashtags++
		case strings.HasPrefix(word, "@"):
			s.Mentions++
		}
	}
	return s
}

// FileName builds the download file name for a brand's export.
func FileName(brandName string, f Format, now time.Time) string {
	name := strings.Trim(unsafeNameRe.ReplaceAllString(brandName, "_"), "_")
	if name == "" {
		name = "posts"
	}
	ext := "csv"
	suffix := "posts"
	switch f {
	case FormatJSON:
		ext = "json"
	case FormatEnhancedCSV:
		suffix = "posts_enhanced"
	}
	return fmt.Sprintf("%s_%s_%s.%s", name, suffix, now.Format("20060102"), ext)
}

func scheduledFor(label string, now time.Time) string {
	if label == "" {
		return ""
	}
	t, ok := parser.ParseDateLabel(label, now)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}
