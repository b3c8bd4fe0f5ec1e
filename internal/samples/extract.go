package samples

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const maxSampleSize = 5 << 20 // 5MB

// ReadFile returns the plain text of one sample file, choosing the
// extractor by extension.
func ReadFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return readPDF(path)
	}

	data, err := readLimited(path)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".eml":
		return EmailText(bytes.NewReader(data))
	case ".html", ".htm":
		return HTMLText(bytes.NewReader(data))
	}
	return string(data), nil
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxSampleSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) > maxSampleSize {
		return nil, fmt.Errorf("%s is larger than %d bytes", path, maxSampleSize)
	}
	return data, nil
}

func readPDF(path string) (text string, err error) {
	// The pdf reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("extracting text from %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if f != nil {
		defer f.Close()
	}
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(plain, maxSampleSize)); err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", path, err)
	}
	return buf.String(), nil
}

// EmailText returns the body of an RFC 5322 message. Multipart messages
// prefer their text/plain part and fall back to text/html. Headers are
// dropped.
func EmailText(r io.Reader) (string, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return "", fmt.Errorf("parsing message: %w", err)
	}
	return partText(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
}

func partText(contentType, encoding string, body io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || contentType == "" {
		mediaType = "text/plain"
	}
	body = decodeTransfer(encoding, body)

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		return multipartText(multipart.NewReader(body, params["boundary"]))
	case mediaType == "text/html":
		return HTMLText(body)
	case strings.HasPrefix(mediaType, "text/"):
		data, err := io.ReadAll(io.LimitReader(body, maxSampleSize))
		if err != nil {
			return "", fmt.Errorf("reading body: %w", err)
		}
		return string(data), nil
	}
	return "", nil
}

func multipartText(mr *multipart.Reader) (string, error) {
	var plain, htmlText string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading multipart body: %w", err)
		}
		ct := part.Header.Get("Content-Type")
		if ct == "" {
			ct = "text/plain"
		}
		// multipart.Reader already decodes quoted-printable parts.
		text, err := partText(ct, part.Header.Get("Content-Transfer-Encoding"), part)
		if err != nil {
			return "", err
		}
		mediaType, _, _ := mime.ParseMediaType(ct)
		switch {
		case mediaType == "text/plain" && plain == "":
			plain = text
		case mediaType == "text/html" && htmlText == "":
			htmlText = text
		case strings.HasPrefix(mediaType, "multipart/") && plain == "":
			plain = text
		}
	}
	if strings.TrimSpace(plain) != "" {
		return plain, nil
	}
	return htmlText, nil
}

func decodeTransfer(encoding string, body io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, newlineStripper{body})
	case "quoted-printable":
		return quotedprintable.NewReader(body)
	}
	return body
}

// newlineStripper drops line breaks so wrapped base64 decodes.
type newlineStripper struct{ r io.Reader }

func (n newlineStripper) Read(p []byte) (int, error) {
	for {
		c, err := n.r.Read(p)
		j := 0
		for _, b := range p[:c] {
			if b != '\r' && b != '\n' {
				p[j] = b
				j++
			}
		}
		if j > 0 || err != nil {
			return j, err
		}
	}
}

// HTMLText extracts the visible text of an HTML document, one line per
// block element. Script and style contents are skipped.
func HTMLText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head:
				return
			case atom.Br:
				sb.WriteByte('\n')
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			sb.WriteByte('\n')
		}
	}
	walk(doc)

	lines := strings.Split(sb.String(), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n"), nil
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Tr, atom.Blockquote, atom.Pre,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Table, atom.Ul, atom.Ol:
		return true
	}
	return false
}
