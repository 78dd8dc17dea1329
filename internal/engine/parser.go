// internal/engine/parser.go
package engine

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/echo-works/reviewcrawl/pkg/models"
)

// Selectors names the markup locations the parser reads. The defaults match the
// review listing the tool targets; all of them are best-effort and a missing
// location simply leaves the field absent.
type Selectors struct {
	Reviewer        string // reviewer display name
	Rating          string // element whose aria-label encodes the star rating
	Text            string // primary review text span
	Timestamp       string // relative-or-absolute date text
	OwnerReply      string // owner response block, excluded from all text extraction
	TagSpan         string // auxiliary label spans (tags and secondary text)
	ImageContainer  string // container of photo buttons
	NarrowContainer string // narrowest known review subtree, last-resort text source
}

// DefaultSelectors returns the selector set for the currently shipped listing
// markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Reviewer:        ".d4r55",
		Rating:          ".kvMYJc",
		Text:            "span.wiI7pd",
		Timestamp:       ".rsqaWe",
		OwnerReply:      ".CDe7pd",
		TagSpan:         ".RfDO5c",
		ImageContainer:  "div.KtCyie",
		NarrowContainer: `div[jslog="127691"]`,
	}
}

var (
	ratingValueRe = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)`)
	relativeNumRe = regexp.MustCompile(`\d+`)
	imageURLRe    = regexp.MustCompile(`url\(["']?(https[^"')]+)["']?\)`)
	nonWordRe     = regexp.MustCompile(`[^\p{L}\p{N}]`)
	likeCountSel  = ".pkWtMe"
)

// Parser converts one raw fragment into a candidate record. Parsing is pure and
// total: a missing or malformed field produces an absent value, never an error.
// All recovery policy lives in the Resolver.
//
// The reference clock is fixed at construction so relative timestamps resolve
// identically when a fragment is parsed twice in one run.
type Parser struct {
	sel Selectors
	now time.Time
}

// NewParser returns a Parser with default selectors and the current time as the
// reference clock.
func NewParser() *Parser {
	return NewParserAt(time.Now(), DefaultSelectors())
}

// NewParserAt returns a Parser with an explicit reference clock and selector
// set. Tests use this to pin relative-date resolution.
func NewParserAt(now time.Time, sel Selectors) *Parser {
	return &Parser{sel: sel, now: now}
}

// Parse extracts every field it can from the fragment. A fragment whose markup
// cannot be parsed at all yields a zero-field candidate; the resolver treats it
// like any other.
func (p *Parser) Parse(frag models.RawFragment) models.CandidateRecord {
	cand := models.CandidateRecord{Fragment: frag}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(frag.HTML))
	if err != nil {
		return cand
	}

	cand.Reviewer = strings.TrimSpace(doc.Find(p.sel.Reviewer).First().Text())
	cand.Rating = p.parseRating(doc)
	cand.Text = p.parsePrimaryText(doc)
	cand.TimeRaw = strings.TrimSpace(doc.Find(p.sel.Timestamp).First().Text())
	cand.Time = p.parseWhen(cand.TimeRaw)
	cand.Images = p.parseImages(doc)
	cand.Tags = p.parseTags(doc)
	cand.LikeCount = p.parseLikeCount(doc)
	cand.OwnerResponded = doc.Find(p.sel.OwnerReply).Length() > 0

	return cand
}

// parseRating translates the graphical star encoding into an integer 1-5.
// Fractional encodings (half stars) round half-up; out-of-range values are
// treated as absent.
func (p *Parser) parseRating(doc *goquery.Document) int {
	label, ok := doc.Find(p.sel.Rating).First().Attr("aria-label")
	if !ok {
		return 0
	}
	return roundedStars(ratingValueRe.FindString(label))
}

// roundedStars converts a numeric star value to an integer 1-5, rounding half
// stars up. Every rating path uses it so a review rates the same regardless of
// which encoding supplied the value.
func roundedStars(m string) int {
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	r := int(math.Floor(v + 0.5))
	if r < 1 || r > 5 {
		return 0
	}
	return r
}

// parsePrimaryText reads the primary text span, skipping spans nested inside
// the owner reply block. The first span passing the junk filter wins.
func (p *Parser) parsePrimaryText(doc *goquery.Document) string {
	var text string
	doc.Find(p.sel.Text).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.ParentsFiltered(p.sel.OwnerReply).Length() > 0 {
			return true
		}
		candidate := strings.TrimSpace(s.Text())
		if validReviewText(candidate) {
			text = candidate
			return false
		}
		return true
	})
	return text
}

// parseWhen resolves a relative date ("3 weeks ago") against the reference
// clock, or falls back to parsing an absolute date string. The zero time means
// the timestamp stays raw-only.
func (p *Parser) parseWhen(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	lower := strings.ToLower(raw)

	n := 1
	if m := relativeNumRe.FindString(lower); m != "" {
		n, _ = strconv.Atoi(m)
	} else if !strings.HasPrefix(lower, "a ") && !strings.HasPrefix(lower, "an ") {
		// Not "a week ago" style; try an absolute date instead.
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t
		}
		return time.Time{}
	}

	switch {
	case strings.Contains(lower, "day"):
		return p.now.AddDate(0, 0, -n)
	case strings.Contains(lower, "week"):
		return p.now.AddDate(0, 0, -7*n)
	case strings.Contains(lower, "month"):
		return p.now.AddDate(0, 0, -30*n)
	case strings.Contains(lower, "year"):
		return p.now.AddDate(0, 0, -365*n)
	case strings.Contains(lower, "hour"), strings.Contains(lower, "minute"):
		return p.now
	}

	if t, err := dateparse.ParseAny(raw); err == nil {
		return t
	}
	return time.Time{}
}

// parseImages enumerates the photo buttons' background-image URLs in visual
// order, dropping exact-URI duplicates within the record.
func (p *Parser) parseImages(doc *goquery.Document) []string {
	var urls []string
	seen := make(map[string]bool)
	doc.Find(p.sel.ImageContainer + " button").Each(func(_ int, s *goquery.Selection) {
		style, ok := s.Attr("style")
		if !ok || !strings.Contains(style, "background-image") {
			return
		}
		m := imageURLRe.FindStringSubmatch(style)
		if m == nil {
			return
		}
		u := m[1]
		if !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	})
	return urls
}

// parseTags walks the auxiliary label spans. A span whose text matches a known
// group label opens that group; subsequent spans belong to it until the next
// label. Spans under the owner reply block are ignored.
func (p *Parser) parseTags(doc *goquery.Document) models.TagSet {
	var tags models.TagSet
	group := ""
	doc.Find(p.sel.TagSpan).Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered(p.sel.OwnerReply).Length() > 0 {
			return
		}
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		switch strings.ToLower(text) {
		case "services":
			group = "services"
			return
		case "positive":
			group = "positive"
			return
		case "negative":
			group = "negative"
			return
		case "price":
			group = "price"
			return
		}
		switch group {
		case "services":
			tags.Services = append(tags.Services, text)
		case "positive":
			tags.Positive = append(tags.Positive, text)
		case "negative":
			tags.Negative = append(tags.Negative, text)
		case "price":
			tags.Price = append(tags.Price, text)
		}
	})
	return tags
}

func (p *Parser) parseLikeCount(doc *goquery.Document) int {
	text := strings.TrimSpace(doc.Find(likeCountSel).First().Text())
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0
	}
	return n
}

// validReviewText filters out UI noise captured in place of real review text:
// owner replies, near-empty strings, and punctuation-only captures.
func validReviewText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 5 {
		return false
	}
	if strings.Contains(strings.ToLower(trimmed), "response from the owner") {
		return false
	}
	cleaned := nonWordRe.ReplaceAllString(trimmed, "")
	return len(cleaned) >= 3
}

// normalizeText lowercases and collapses whitespace; used for dedup keys.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// collapseSpace collapses runs of whitespace without touching case.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
