// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"regexp"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

const (
	pageMargin = 20.0
	// ptToMM converts font points to millimetres.
	ptToMM = 0.3528

	fontBody    = "Times"
	fontHeading = "Helvetica"
	fontMono    = "Courier"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	dataURIPattern    = regexp.MustCompile(`^data:(image/(?:png|jpeg));base64,(.*)$`)

	headingSizes = map[string]float64{"h1": 22, "h2": 18, "h3": 15, "h4": 13, "h5": 12, "h6": 11}

	colorBlack  = rgb{0, 0, 0}
	colorPrompt = rgb{0x30, 0x3f, 0x9f}
	colorLink   = rgb{0x1a, 0x0d, 0xab}
)

type rgb struct{ r, g, b int }

type fontState struct {
	family string
	style  string
	size   float64
}

// layout walks an HTML tree and draws it onto A4 pages. Page breaks are
// deferred: a break request only takes effect when more content arrives,
// so trailing breaks never produce blank pages.
type layout struct {
	pdf   *gofpdf.Fpdf
	tr    func(string) string
	font  fontState
	color rgb
	align string

	pendingBreak bool
	pre          bool
	listDepth    int
	linkID       int
	linkURL      string

	links   map[string]int
	targets map[string]bool
	images  int
}

func newLayout(title string) *layout {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetCreator("notebook-report", true)
	if title != "" {
		pdf.SetTitle(title, true)
	}

	l := &layout{
		pdf:     pdf,
		tr:      pdf.UnicodeTranslatorFromDescriptor(""),
		color:   colorBlack,
		links:   map[string]int{},
		targets: map[string]bool{},
	}
	pdf.SetFooterFunc(func() {
		if pdf.PageNo() <= 1 {
			return
		}
		pdf.SetY(-15)
		pdf.SetFont(fontHeading, "I", 8)
		pdf.SetTextColor(0x80, 0x80, 0x80)
		pdf.CellFormat(0, 10, strconv.Itoa(pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	l.setFont(fontState{family: fontBody, size: 11})
	return l
}

// finish resolves dangling internal links and returns the PDF bytes.
func (l *layout) finish() ([]byte, error) {
	if l.pdf.PageNo() == 0 {
		l.pdf.AddPage()
	}
	for anchor, id := range l.links {
		if !l.targets[anchor] {
			log.Debug().Str("anchor", anchor).Msg("link target not found")
			l.pdf.SetLink(id, 0, 1)
		}
	}
	var buf bytes.Buffer
	if err := l.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (l *layout) setFont(f fontState) {
	l.font = f
	l.pdf.SetFont(f.family, f.style, f.size)
}

func (l *layout) setColor(c rgb) {
	l.color = c
	l.pdf.SetTextColor(c.r, c.g, c.b)
}

// with runs fn under font f and color c, restoring both afterwards.
func (l *layout) with(f fontState, c rgb, fn func()) {
	prevFont, prevColor := l.font, l.color
	l.setFont(f)
	l.setColor(c)
	fn()
	l.setFont(prevFont)
	l.setColor(prevColor)
}

func (l *layout) lineHeight() float64 {
	return l.font.size * ptToMM * 1.4
}

// ensurePage starts the first page or a pending break before drawing.
func (l *layout) ensurePage() {
	if l.pdf.PageNo() == 0 || l.pendingBreak {
		l.pdf.AddPage()
		l.pendingBreak = false
		l.setFont(l.font)
		l.setColor(l.color)
	}
}

func (l *layout) atLineStart() bool {
	if l.pdf.PageNo() == 0 || l.pendingBreak {
		return true
	}
	left, _, _, _ := l.pdf.GetMargins()
	return l.pdf.GetX() <= left+0.01
}

// newline ends the current line if anything was written on it.
func (l *layout) newline() {
	if !l.atLineStart() {
		l.pdf.Ln(l.lineHeight())
	}
}

// space adds vertical space unless at the top of a fresh page.
func (l *layout) space(h float64) {
	if l.pdf.PageNo() == 0 || l.pendingBreak {
		return
	}
	_, top, _, _ := l.pdf.GetMargins()
	if l.pdf.GetY() > top+0.01 {
		l.pdf.Ln(h)
	}
}

func (l *layout) linkFor(anchor string) int {
	id, ok := l.links[anchor]
	if !ok {
		id = l.pdf.AddLink()
		l.links[anchor] = id
	}
	return id
}

func (l *layout) render(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		l.text(n.Data)
	case html.ElementNode:
		l.element(n)
	default:
		l.children(n)
	}
}

func (l *layout) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		l.render(c)
	}
}

func (l *layout) text(s string) {
	if l.pre {
		s = strings.ReplaceAll(s, "\t", "    ")
		if s == "" {
			return
		}
	} else {
		s = whitespacePattern.ReplaceAllString(s, " ")
		if l.atLineStart() {
			s = strings.TrimLeft(s, " ")
		}
		if s == "" {
			return
		}
	}
	l.ensurePage()

	h := l.lineHeight()
	txt := l.tr(s)
	switch {
	case l.linkID != 0:
		l.pdf.WriteLinkID(h, txt, l.linkID)
	case l.linkURL != "":
		l.pdf.WriteLinkString(h, txt, l.linkURL)
	case l.align == "C":
		l.pdf.WriteAligned(0, h, txt, "C")
	default:
		l.pdf.Write(h, txt)
	}
}

func (l *layout) element(n *html.Node) {
	switch n.Data {
	case "head", "script", "style", "title":
		return
	}

	style := parseStyle(attr(n, "style"))
	if id := attr(n, "id"); id != "" {
		l.ensurePage()
		l.pdf.SetLink(l.linkFor(id), -1, -1)
		l.targets[id] = true
	}

	prevAlign := l.align
	if style["text-align"] == "center" {
		l.align = "C"
	}
	defer func() { l.align = prevAlign }()

	color := l.color
	if c, ok := parseColor(style["color"]); ok {
		color = c
	}
	if attr(n, "class") == "prompt" {
		color = colorPrompt
	}

	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		l.newline()
		l.space(l.lineHeight() * 0.6)
		l.with(fontState{family: fontHeading, style: "B", size: headingSizes[n.Data]}, color, func() {
			l.children(n)
			l.newline()
		})
		l.space(2)
	case "p":
		l.newline()
		l.with(l.font, color, func() {
			l.children(n)
			l.newline()
		})
		l.space(1.5)
	case "div", "section", "blockquote":
		l.newline()
		l.with(l.font, color, func() {
			l.children(n)
			l.newline()
		})
	case "ul", "ol":
		l.newline()
		l.listDepth++
		l.list(n, n.Data == "ol")
		l.listDepth--
		l.space(1.5)
	case "pre":
		l.newline()
		l.pre = true
		l.with(fontState{family: fontMono, size: 9}, color, func() {
			l.children(n)
			l.newline()
		})
		l.pre = false
		l.space(2)
	case "code", "kbd", "samp", "tt":
		if l.pre {
			l.children(n)
			break
		}
		l.with(fontState{family: fontMono, style: l.font.style, size: l.font.size - 1}, color, func() {
			l.children(n)
		})
	case "strong", "b":
		l.with(fontState{family: l.font.family, style: addStyle(l.font.style, "B"), size: l.font.size}, color, func() {
			l.children(n)
		})
	case "em", "i":
		l.with(fontState{family: l.font.family, style: addStyle(l.font.style, "I"), size: l.font.size}, color, func() {
			l.children(n)
		})
	case "a":
		l.anchor(n)
	case "br":
		l.ensurePage()
		l.pdf.Ln(l.lineHeight())
	case "hr":
		l.newline()
		l.ensurePage()
		left, _, right, _ := l.pdf.GetMargins()
		width, _ := l.pdf.GetPageSize()
		y := l.pdf.GetY() + 2
		l.pdf.SetDrawColor(0xc0, 0xc0, 0xc0)
		l.pdf.Line(left, y, width-right, y)
		l.pdf.Ln(4)
	case "img":
		l.image(attr(n, "src"))
	case "table":
		l.table(n)
	default:
		l.with(l.font, color, func() { l.children(n) })
	}

	if strings.Contains(style["break-after"], "page") || style["page-break-after"] == "always" {
		l.pendingBreak = true
	}
}

func (l *layout) list(n *html.Node, ordered bool) {
	left, _, _, _ := l.pdf.GetMargins()
	item := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		item++
		marker := "• "
		if ordered {
			marker = strconv.Itoa(item) + ". "
		}

		l.newline()
		l.ensurePage()
		l.pdf.SetLeftMargin(pageMargin + float64(l.listDepth)*6)
		l.pdf.SetX(pageMargin + float64(l.listDepth)*6)
		l.pdf.Write(l.lineHeight(), l.tr(marker))
		l.children(c)
		l.newline()
		l.pdf.SetLeftMargin(left)
	}
}

func (l *layout) anchor(n *html.Node) {
	href := attr(n, "href")
	prevID, prevURL := l.linkID, l.linkURL
	switch {
	case strings.HasPrefix(href, "#") && len(href) > 1:
		l.linkID = l.linkFor(href[1:])
	case href != "":
		l.linkURL = href
	}
	l.with(l.font, colorLink, func() { l.children(n) })
	l.linkID, l.linkURL = prevID, prevURL
}

// image places an inline data-URI image scaled to the content width.
func (l *layout) image(src string) {
	m := dataURIPattern.FindStringSubmatch(src)
	if m == nil {
		log.Debug().Str("src", truncate(src, 60)).Msg("skipping non-embedded image")
		return
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		log.Warn().Err(err).Msg("skipping image with invalid base64")
		return
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		log.Warn().Err(err).Msg("skipping undecodable image")
		return
	}
	if m[1] == "image/png" && !pdfReadyPNG(data) {
		if data, err = toPlainPNG(data); err != nil {
			log.Warn().Err(err).Msg("skipping unconvertible image")
			return
		}
	}

	imgType := "PNG"
	if m[1] == "image/jpeg" {
		imgType = "JPG"
	}
	l.images++
	name := fmt.Sprintf("img%d", l.images)
	opts := gofpdf.ImageOptions{ImageType: imgType, ReadDpi: true}
	info := l.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if info == nil {
		return
	}

	left, _, right, _ := l.pdf.GetMargins()
	pageW, _ := l.pdf.GetPageSize()
	maxW := pageW - left - right
	w, h := info.Width(), info.Height()
	if w > maxW {
		h = h * maxW / w
		w = maxW
	}

	l.newline()
	l.ensurePage()
	l.pdf.ImageOptions(name, left, l.pdf.GetY(), w, h, true, opts, 0, "")
	l.space(2)
}

// pdfReadyPNG reports whether gofpdf can embed data as is: bit depth of at
// most 8 and no interlacing, read from the IHDR chunk.
func pdfReadyPNG(data []byte) bool {
	const (
		bitDepthAt  = 24
		interlaceAt = 28
	)
	if len(data) <= interlaceAt {
		return false
	}
	return data[bitDepthAt] <= 8 && data[interlaceAt] == 0
}

// toPlainPNG re-encodes a PNG as 8-bit, non-interlaced RGBA.
func toPlainPNG(data []byte) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding png: %w", err)
	}
	dst := image.NewNRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// table draws rows as bordered cells of equal width, truncating text that
// does not fit.
func (l *layout) table(n *html.Node) {
	var rows [][]*html.Node
	var collect func(*html.Node)
	collect = func(x *html.Node) {
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.Data == "tr" {
				var cells []*html.Node
				for td := c.FirstChild; td != nil; td = td.NextSibling {
					if td.Type == html.ElementNode && (td.Data == "td" || td.Data == "th") {
						cells = append(cells, td)
					}
				}
				rows = append(rows, cells)
				continue
			}
			collect(c)
		}
	}
	collect(n)

	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return
	}

	l.newline()
	l.ensurePage()
	left, _, right, _ := l.pdf.GetMargins()
	pageW, _ := l.pdf.GetPageSize()
	colW := (pageW - left - right) / float64(cols)

	l.with(fontState{family: fontHeading, size: 7}, colorBlack, func() {
		h := l.lineHeight() + 1
		for _, r := range rows {
			for i := 0; i < cols; i++ {
				txt, style := "", ""
				if i < len(r) {
					txt = whitespacePattern.ReplaceAllString(strings.TrimSpace(textContent(r[i])), " ")
					if r[i].Data == "th" {
						style = "B"
					}
				}
				l.pdf.SetFont(fontHeading, style, 7)
				l.pdf.CellFormat(colW, h, l.fit(l.tr(txt), colW-2), "1", 0, "L", false, 0, "")
			}
			l.pdf.Ln(h)
		}
	})
	l.space(2)
}

// fit shortens s until it is at most width wide in the current font.
func (l *layout) fit(s string, width float64) string {
	if l.pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && l.pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

// parseStyle splits an inline CSS declaration list into lower-cased
// property/value pairs.
func parseStyle(s string) map[string]string {
	out := map[string]string{}
	for _, decl := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

// parseColor accepts #rgb and #rrggbb.
func parseColor(s string) (rgb, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return rgb{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return rgb{}, false
	}
	return rgb{int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)}, true
}

func addStyle(style, s string) string {
	if strings.Contains(style, s) {
		return style
	}
	return style + s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
