package dblp

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dblp-tools/faculty-harvester/internal/harvest"
)

// Faculty is one extracted faculty record, matching the output CSV columns.
type Faculty struct {
	Name        string
	Affiliation string
	Homepage    string
	ScholarID   string
}

var scholarUserRe = regexp.MustCompile(`user=([^&]+)`)

// ParseAuthorPage extracts the faculty fields from a DBLP author page. The
// affiliation is left empty; it comes from the university directory the page
// was stored under. Pages without a primary name are malformed.
func ParseAuthorPage(r io.Reader) (Faculty, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Faculty{}, fmt.Errorf("parse author page: %w", err)
	}

	name := strings.TrimSpace(doc.Find("span.name.primary").First().Text())
	if name == "" {
		return Faculty{}, &harvest.MalformedResponseError{Reason: "no primary name on page"}
	}

	return Faculty{
		Name:      name,
		Homepage:  extractHomepage(doc),
		ScholarID: extractScholarID(doc),
	}, nil
}

// extractHomepage prefers the homepage link in the visit section and falls
// back to the persistent DBLP URL from the share dropdown.
func extractHomepage(doc *goquery.Document) string {
	if href, ok := doc.Find("li.visit a").First().Attr("href"); ok && href != "" {
		return href
	}
	persistent := doc.Find("li.share ul.bullets a").First()
	if text := strings.TrimSpace(persistent.Text()); text != "" {
		return text
	}
	return ""
}

// extractScholarID pulls the user parameter from the first Google Scholar
// link on the page.
func extractScholarID(doc *goquery.Document) string {
	var id string
	doc.Find("a[href*='scholar.google.com']").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		if m := scholarUserRe.FindStringSubmatch(href); m != nil {
			id = m[1]
			return false
		}
		return true
	})
	return id
}

// UniversityFromDir converts a stored directory name back into a display
// affiliation, e.g. "carnegie_mellon" -> "Carnegie Mellon University". A
// trailing University/Institute/College word is kept as-is.
func UniversityFromDir(dir string) string {
	words := strings.Split(dir, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	name := strings.Join(words, " ")
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, "university") &&
		!strings.HasSuffix(lower, "institute") &&
		!strings.HasSuffix(lower, "college") {
		name += " University"
	}
	return strings.TrimSpace(name)
}
