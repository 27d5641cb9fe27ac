// Package jobpage derives display metadata from a job posting URL: the
// preference domain the posting belongs to, and a best-effort title/company
// scraped from the page itself.
package jobpage

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Posting is what could be recovered from the page. Either field may be
// empty; callers treat this as display sugar, never as required data.
type Posting struct {
	Title   string `json:"title,omitempty"`
	Company string `json:"company,omitempty"`
}

// Domain returns the lowercased host of a job URL without the www prefix.
// This is the key durable per-site preferences are stored under.
func Domain(jobURL string) string {
	u, err := url.Parse(strings.TrimSpace(jobURL))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Host)
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	return strings.TrimPrefix(host, "www.")
}

// FetchPosting loads the posting page and pulls a title and company out of
// its metadata. Any failure returns an empty Posting; the page is public
// employer HTML and frequently hostile to scraping.
func FetchPosting(ctx context.Context, jobURL string) Posting {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jobURL, nil)
	if err != nil {
		return Posting{}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	client := &http.Client{Timeout: 12 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Posting{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Posting{}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Posting{}
	}
	return postingFromDoc(doc, jobURL)
}

func postingFromDoc(doc *goquery.Document, jobURL string) Posting {
	var p Posting

	p.Title = cleanText(metaContent(doc, "og:title"))
	if p.Title == "" {
		p.Title = cleanText(doc.Find("title").First().Text())
	}
	p.Company = cleanText(metaContent(doc, "og:site_name"))

	// "Title - Company" and "Title | Company" page titles
	if p.Company == "" {
		for _, sep := range []string{" - ", " | ", " at "} {
			if title, company, ok := strings.Cut(p.Title, sep); ok {
				p.Title = cleanText(title)
				p.Company = cleanText(company)
				break
			}
		}
	}
	if p.Company == "" {
		p.Company = companyFromDomain(Domain(jobURL))
	}
	return p
}

func metaContent(doc *goquery.Document, property string) string {
	var out string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if prop, _ := s.Attr("property"); prop != property {
			return true
		}
		out, _ = s.Attr("content")
		return false
	})
	return out
}

// companyFromDomain guesses a display name from the host, e.g.
// "jobs.acme.com" -> "Acme".
func companyFromDomain(host string) string {
	if host == "" {
		return ""
	}
	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return ""
	}
	name := parts[len(parts)-2]
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
