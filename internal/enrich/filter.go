package enrich

import (
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"

	"deep-search/internal/search"
)

const (
	minDimension  = 100
	heroDimension = 400
	maxAltRunes   = 200
)

var (
	skipMarkers   = []string{"logo", "avatar", "icon", "ads.", "/ads/", "tracking", "pixel", "analytics"}
	filenameHints = []string{"hero", "feature", "header", "cover", "photo", "banner"}
)

// candidate is an image found on a page before filtering and ranking.
type candidate struct {
	src       string
	alt       string
	mimeType  string
	width     int
	height    int
	inContent bool
	og        bool
}

// collect gathers og:image entries followed by img elements in document order.
func collect(doc *goquery.Document, og *opengraph.OpenGraph, base *url.URL) []candidate {
	var out []candidate
	if og != nil {
		for _, img := range og.Images {
			raw := img.SecureURL
			if raw == "" {
				raw = img.URL
			}
			out = append(out, candidate{
				src:      resolve(base, raw),
				alt:      strings.TrimSpace(og.Title),
				mimeType: img.Type,
				width:    int(img.Width),
				height:   int(img.Height),
				og:       true,
			})
		}
	}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		alt := strings.TrimSpace(sel.AttrOr("alt", ""))
		if alt == "" {
			alt = captionOf(sel)
		}
		out = append(out, candidate{
			src:       resolve(base, sourceOf(sel)),
			alt:       alt,
			width:     dimension(sel.AttrOr("width", "")),
			height:    dimension(sel.AttrOr("height", "")),
			inContent: sel.Closest("article, main, figure, .content").Length() > 0,
		})
	})
	return out
}

// captionOf returns the figcaption of an enclosing figure, or the text of a
// direct parent that is not a page-level container.
func captionOf(sel *goquery.Selection) string {
	text := sel.Closest("figure").Find("figcaption").First().Text()
	if strings.TrimSpace(text) == "" {
		parent := sel.Parent()
		if parent.Is("body, html, main, article") {
			return ""
		}
		text = parent.Text()
	}
	return clipRunes(strings.Join(strings.Fields(text), " "), maxAltRunes)
}

// sourceOf prefers lazy-load attributes over src, then the first srcset entry.
func sourceOf(sel *goquery.Selection) string {
	if v := strings.TrimSpace(sel.AttrOr("data-src", "")); v != "" {
		return v
	}
	if v := strings.TrimSpace(sel.AttrOr("src", "")); v != "" {
		return v
	}
	srcset := strings.TrimSpace(sel.AttrOr("srcset", ""))
	if srcset == "" {
		return ""
	}
	first, _, _ := strings.Cut(srcset, ",")
	if fields := strings.Fields(first); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// resolve makes raw absolute against base. data: URIs and unparsable values resolve to "".
func resolve(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(strings.ToLower(raw), "data:") {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

func dimension(v string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func clipRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (c candidate) excluded() bool {
	if c.src == "" {
		return true
	}
	if (c.width > 0 && c.width < minDimension) || (c.height > 0 && c.height < minDimension) {
		return true
	}
	lower := strings.ToLower(c.src)
	if strings.HasPrefix(strings.ToLower(c.mimeType), "image/svg") {
		return true
	}
	if u, err := url.Parse(lower); err == nil && strings.HasSuffix(u.Path, ".svg") {
		return true
	}
	for _, m := range skipMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func (c candidate) score() int {
	score := 0
	if c.alt != "" {
		score += 2
	}
	if c.width >= heroDimension || c.height >= heroDimension {
		score += 2
	}
	if u, err := url.Parse(strings.ToLower(c.src)); err == nil {
		name := path.Base(u.Path)
		for _, h := range filenameHints {
			if strings.Contains(name, h) {
				score++
				break
			}
		}
	}
	if c.inContent {
		score++
	}
	if c.og {
		score += 3
	}
	return score
}

// rank drops excluded and duplicate candidates, then keeps the best max by score.
// Equal scores keep document order.
func rank(cands []candidate, max int) []search.Image {
	seen := make(map[string]struct{}, len(cands))
	kept := make([]candidate, 0, len(cands))
	for _, c := range cands {
		if c.excluded() {
			continue
		}
		if _, dup := seen[c.src]; dup {
			continue
		}
		seen[c.src] = struct{}{}
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score() > kept[j].score() })
	if len(kept) > max {
		kept = kept[:max]
	}

	images := make([]search.Image, len(kept))
	for i, c := range kept {
		images[i] = search.Image{Src: c.src, Alt: c.alt}
	}
	return images
}
