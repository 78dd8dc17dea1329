// internal/engine/fallback.go
package engine

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/echo-works/reviewcrawl/pkg/models"
)

// Strategy is one recovery rule for a mandatory field. Apply re-inspects the
// candidate's fragment and returns true when it populated the field. Strategies
// never perform I/O, so resolution is deterministic and idempotent.
type Strategy struct {
	Name  string
	Apply func(doc *goquery.Document, c *models.CandidateRecord) bool
}

// Resolver detects missing or malformed mandatory fields on a candidate and
// applies an ordered chain of recovery strategies, first success wins. New
// rules are added to the strategy lists, not to control flow.
type Resolver struct {
	sel    Selectors
	text   []Strategy
	rating []Strategy
}

// NewResolver builds the default recovery chains for the given selector set.
func NewResolver(sel Selectors) *Resolver {
	r := &Resolver{sel: sel}
	r.text = []Strategy{
		{Name: models.ProvenanceSecondary, Apply: r.textFromAuxSpans},
		{Name: models.ProvenanceStructural, Apply: r.textFromStructure},
		{Name: models.ProvenanceNarrow, Apply: r.textFromNarrowContainer},
	}
	r.rating = []Strategy{
		{Name: models.ProvenanceAlternate, Apply: r.ratingFromAlternateEncoding},
	}
	return r
}

// Resolve applies the recovery chains to both mandatory fields and returns the
// (possibly updated) candidate together with the provenance of each field. The
// input candidate is not mutated.
func (r *Resolver) Resolve(cand models.CandidateRecord) (models.CandidateRecord, map[string]string) {
	prov := make(map[string]string, 2)

	var doc *goquery.Document
	if d, err := goquery.NewDocumentFromReader(strings.NewReader(cand.Fragment.HTML)); err == nil {
		doc = d
	}

	prov[models.FieldText] = r.resolveField(doc, &cand, cand.Text != "", r.text)
	prov[models.FieldRating] = r.resolveField(doc, &cand, cand.Rating != 0, r.rating)

	return cand, prov
}

func (r *Resolver) resolveField(doc *goquery.Document, cand *models.CandidateRecord, present bool, chain []Strategy) string {
	if present {
		return models.ProvenanceDirect
	}
	if doc != nil {
		for _, s := range chain {
			if s.Apply(doc, cand) {
				return s.Name
			}
		}
	}
	return models.ProvenanceUnrecoverable
}

// textFromAuxSpans joins the auxiliary span texts in the fragment, skipping
// group labels, tag values and anything under the owner reply block. This is
// the designated secondary text location.
func (r *Resolver) textFromAuxSpans(doc *goquery.Document, c *models.CandidateRecord) bool {
	joined := r.joinAuxSpans(doc.Selection)
	if !validReviewText(joined) {
		return false
	}
	c.Text = joined
	return true
}

// textFromStructure sweeps every descendant's text outside the owner reply
// block. The capture is noisy, so a junk filter rejects reviewer names, icons
// and UI labels masquerading as review text.
func (r *Resolver) textFromStructure(doc *goquery.Document, c *models.CandidateRecord) bool {
	clone := doc.Clone()
	clone.Find(r.sel.OwnerReply).Remove()
	text := collapseSpace(clone.Text())
	if !passesStructuralFilter(text) {
		return false
	}
	c.Text = text
	return true
}

// textFromNarrowContainer reads the narrowest known review subtree, a
// last-resort location that survives some markup reshuffles.
func (r *Resolver) textFromNarrowContainer(doc *goquery.Document, c *models.CandidateRecord) bool {
	sub := doc.Find(r.sel.NarrowContainer).First()
	if sub.Length() == 0 {
		return false
	}
	joined := r.joinAuxSpans(sub)
	if !validReviewText(joined) {
		return false
	}
	c.Text = joined
	return true
}

func (r *Resolver) joinAuxSpans(root *goquery.Selection) string {
	var parts []string
	root.Find(r.sel.TagSpan).Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered(r.sel.OwnerReply).Length() > 0 {
			return
		}
		text := strings.TrimSpace(s.Text())
		if text == "" || isTagLabel(text) {
			return
		}
		parts = append(parts, text)
	})
	return strings.Join(parts, " ")
}

var ratingFractionRe = regexp.MustCompile(`([1-5])\s*/\s*5`)

// ratingFromAlternateEncoding translates a textual rating ("4/5", or a star
// label on any element) when the primary graphical encoding is missing.
func (r *Resolver) ratingFromAlternateEncoding(doc *goquery.Document, c *models.CandidateRecord) bool {
	found := 0
	doc.Find("[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label, _ := s.Attr("aria-label")
		if !strings.Contains(strings.ToLower(label), "star") {
			return true
		}
		if v := roundedStars(ratingValueRe.FindString(label)); v != 0 {
			found = v
			return false
		}
		return true
	})
	if found == 0 {
		if m := ratingFractionRe.FindStringSubmatch(doc.Text()); m != nil {
			found, _ = strconv.Atoi(m[1])
		}
	}
	if found == 0 {
		return false
	}
	c.Rating = found
	return true
}

func isTagLabel(text string) bool {
	switch strings.ToLower(text) {
	case "services", "positive", "negative", "price":
		return true
	}
	return false
}

// passesStructuralFilter rejects structurally captured junk: too few words, no
// lowercase prose, or known UI labels.
func passesStructuralFilter(text string) bool {
	if text == "" {
		return false
	}
	words := strings.Fields(text)
	if len(words) < 5 {
		return false
	}
	lower := 0
	letters := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsLower(r) {
				lower++
			}
		}
	}
	if letters == 0 || float64(lower)/float64(letters) < 0.05 {
		return false
	}
	if strings.Contains(text, " stars") || strings.Contains(text, " reviews") {
		return false
	}
	return true
}
