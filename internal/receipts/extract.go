// Package receipts pulls emailed PIX receipts from the school mailbox,
// keeps their attachments and guesses the amount paid.
package receipts

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"

	"doacoes/internal/util"
)

var reAmount = regexp.MustCompile(`(?i)(?:valor[^\d\n]{0,20}?|R\$\s*)(\d{1,3}(?:\.\d{3})+,\d{2}|\d+,\d{2})`)

type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Extension returns the lowercase file extension, derived from the name
// first and the content type second.
func (a Attachment) Extension() string {
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(a.FileName)), "."); ext != "" {
		return ext
	}
	ct := strings.ToLower(a.ContentType)
	switch {
	case strings.Contains(ct, "pdf"):
		return "pdf"
	case strings.Contains(ct, "png"):
		return "png"
	case strings.Contains(ct, "webp"):
		return "webp"
	default:
		return "jpg"
	}
}

type Extraction struct {
	Subject     string
	Text        string
	Attachments []Attachment
	Amount      *int64
	// AmountSource is pdf, text or html.
	AmountSource string
}

// ExtractReceipt parses a raw RFC 822 message. Only image and PDF parts
// are kept as attachments.
func ExtractReceipt(raw []byte) (Extraction, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return Extraction{}, err
	}

	out := Extraction{Subject: env.GetHeader("Subject"), Text: env.Text}

	parts := append(append([]*enmime.Part{}, env.Attachments...), env.Inlines...)
	for _, part := range parts {
		att := Attachment{FileName: strings.TrimSpace(part.FileName), ContentType: part.ContentType, Data: part.Content}
		if !isReceiptFile(att) || len(att.Data) == 0 {
			continue
		}
		out.Attachments = append(out.Attachments, att)
	}

	for _, att := range out.Attachments {
		if att.Extension() != "pdf" {
			continue
		}
		text, err := pdfText(att.Data)
		if err != nil {
			continue
		}
		if amount, ok := DetectAmount(text); ok {
			out.Amount, out.AmountSource = &amount, "pdf"
			return out, nil
		}
	}
	if amount, ok := DetectAmount(env.Text); ok {
		out.Amount, out.AmountSource = &amount, "text"
		return out, nil
	}
	if amount, ok := DetectAmount(htmlText(env.HTML)); ok {
		out.Amount, out.AmountSource = &amount, "html"
	}
	return out, nil
}

func isReceiptFile(att Attachment) bool {
	ct := strings.ToLower(att.ContentType)
	if strings.HasPrefix(ct, "image/") || strings.Contains(ct, "pdf") {
		return true
	}
	switch att.Extension() {
	case "pdf", "png", "jpg", "jpeg", "webp":
		return att.FileName != ""
	}
	return false
}

// DetectAmount finds the first BRL amount such as "R$ 1.234,56" or
// "Valor: 50,00" in text and returns it in cents.
func DetectAmount(text string) (int64, bool) {
	for _, m := range reAmount.FindAllStringSubmatch(text, -1) {
		normalized := strings.ReplaceAll(strings.ReplaceAll(m[1], ".", ""), ",", ".")
		if cents, ok := util.ParseAmountCents(normalized); ok {
			return cents, true
		}
	}
	return 0, false
}

func htmlText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script,style").Remove()
	return doc.Text()
}

func pdfText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}
