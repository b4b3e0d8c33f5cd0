// Package criteria decides which mailbox messages look like donation
// receipts. Connectors translate it into provider searches and apply
// Matches to whatever the provider returns.
package criteria

import (
	"strings"

	"doacoes/internal/config"
	"doacoes/internal/util"
)

type Receipt struct {
	Senders           []string
	SubjectKeywords   []string
	RequireAttachment bool
}

func FromConfig(cfg config.Config) Receipt {
	return Receipt{
		Senders:           cfg.ReceiptSenders,
		SubjectKeywords:   cfg.ReceiptSubjectKeywords,
		RequireAttachment: cfg.ReceiptRequireAttachment,
	}
}

// Matches reports whether from contains one of the senders (ignoring case)
// and the folded subject contains one of the keywords. An empty list
// accepts anything.
func (r Receipt) Matches(subject, from string) bool {
	if len(r.Senders) > 0 {
		from = strings.ToLower(from)
		ok := false
		for _, s := range r.Senders {
			if strings.Contains(from, strings.ToLower(strings.TrimSpace(s))) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(r.SubjectKeywords) > 0 {
		folded := util.FoldLabel(subject)
		for _, k := range r.SubjectKeywords {
			if k = util.FoldLabel(k); k != "" && strings.Contains(folded, k) {
				return true
			}
		}
		return false
	}
	return true
}

// IsReceiptFile reports whether a MIME type can hold a receipt: any image
// or a PDF.
func IsReceiptFile(mimeType, subType string) bool {
	mimeType = strings.ToLower(mimeType)
	subType = strings.ToLower(subType)
	return mimeType == "image" || (mimeType == "application" && subType == "pdf")
}
