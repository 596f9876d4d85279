// Package fetch resolves a recording reference — a bare path, "-" for
// stdin, a file://, http(s)://, ipfs://, or dweb:/ipfs/ URL — to a byte
// stream, transparently decompressing gzip content-encoding and
// following an HTML <link rel="alternate"> redirect to the actual
// asciicast payload.
package fetch

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// ipfsGateway is the public gateway ipfs://CID and dweb:/ipfs/... URLs are
// rewritten against.
const ipfsGateway = "https://ipfs.io/ipfs/"

// alternateTypes are the content types the HTML-redirect discovery looks
// for in a <link rel="alternate"> tag.
var alternateTypes = map[string]bool{
	"application/x-asciicast":    true,
	"application/asciicast+json": true,
}

// Open resolves ref to a readable byte stream. "-" reads stdin; a bare
// path or file:// URL opens the local filesystem; http(s):// URLs
// auto-decompress gzip and follow an HTML alternate-link redirect;
// ipfs://CID and dweb:/ipfs/... are rewritten to ipfsGateway.
func Open(ref string) (io.ReadCloser, error) {
	switch {
	case ref == "-":
		return io.NopCloser(os.Stdin), nil
	case strings.HasPrefix(ref, "file://"):
		return os.Open(strings.TrimPrefix(ref, "file://"))
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return openHTTP(ref)
	case strings.HasPrefix(ref, "ipfs://"):
		return openHTTP(ipfsGateway + strings.TrimPrefix(ref, "ipfs://"))
	case strings.HasPrefix(ref, "dweb:/ipfs/"):
		return openHTTP(ipfsGateway + strings.TrimPrefix(ref, "dweb:/ipfs/"))
	default:
		return os.Open(ref)
	}
}

func openHTTP(url string) (io.ReadCloser, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch: get %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch: %s returned %d", url, resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if strings.Contains(ct, "text/html") {
		redirected, err := followAlternateLink(resp.Body, url)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		return openHTTP(redirected)
	}

	body := io.ReadCloser(resp.Body)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch: gzip reader: %w", err)
		}
		body = &gzipCloser{gz: gz, underlying: resp.Body}
	}
	return body, nil
}

// gzipCloser closes both the gzip reader and the underlying HTTP body.
type gzipCloser struct {
	gz         *gzip.Reader
	underlying io.Closer
}

func (g *gzipCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }
func (g *gzipCloser) Close() error {
	g.gz.Close()
	return g.underlying.Close()
}

// followAlternateLink walks the parsed HTML document for a
// <link rel="alternate" href="..."> tag whose type is one of
// alternateTypes and returns its href.
func followAlternateLink(r io.Reader, pageURL string) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("fetch: parse html from %s: %w", pageURL, err)
	}
	href := findAlternateHref(doc)
	if href == "" {
		return "", fmt.Errorf("fetch: no asciicast alternate link found in %s", pageURL)
	}
	return href, nil
}

func findAlternateHref(n *html.Node) string {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, "link") {
		rel := strings.ToLower(getAttr(n, "rel"))
		typ := strings.ToLower(getAttr(n, "type"))
		if rel == "alternate" && alternateTypes[typ] {
			return getAttr(n, "href")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href := findAlternateHref(c); href != "" {
			return href
		}
	}
	return ""
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
