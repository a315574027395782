package downloader

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// parseSearchResults extracts filings from the search listing HTML. Each
// result row links to the viewer as openReportViewer('<rcpNo>') or as an
// anchor to /dsaf001/main.do?rcpNo=..., depending on the listing variant;
// both are handled.
func parseSearchResults(r io.Reader) ([]Disclosure, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var disclosures []Disclosure
	seen := make(map[string]bool)

	var walk func(n *html.Node, company string)
	walk = func(n *html.Node, company string) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "tr":
				company = cellText(n, "txc")
			case "a":
				if rcpNo := receiptNoFromAnchor(n); rcpNo != "" && !seen[rcpNo] {
					seen[rcpNo] = true
					disclosures = append(disclosures, Disclosure{
						ReceiptNo: rcpNo,
						Company:   company,
						Title:     nodeText(n),
						FiledAt:   attr(n, "data-filed"),
					})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, company)
		}
	}
	walk(doc, "")

	return disclosures, nil
}

// receiptNoFromAnchor pulls the receipt number out of an anchor's href
func receiptNoFromAnchor(n *html.Node) string {
	href := attr(n, "href")
	if href == "" {
		return ""
	}

	if i := strings.Index(href, "openReportViewer('"); i >= 0 {
		rest := href[i+len("openReportViewer('"):]
		if j := strings.Index(rest, "'"); j > 0 {
			return rest[:j]
		}
		return ""
	}

	if strings.Contains(href, "/dsaf001/main.do") {
		if u, err := url.Parse(href); err == nil {
			return u.Query().Get("rcpNo")
		}
	}

	return ""
}

// cellText returns the trimmed text of the first td with the given class
func cellText(tr *html.Node, class string) string {
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "td" && strings.Contains(attr(c, "class"), class) {
			return nodeText(c)
		}
	}
	return ""
}

// nodeText collects and normalizes all text under a node
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return strings.Join(strings.Fields(b.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
