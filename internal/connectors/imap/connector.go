package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"doacoes/internal"
	"doacoes/internal/config"
	"doacoes/internal/connectors/criteria"
)

type Connector struct {
	host     string
	port     int
	secure   bool
	user     string
	password string
	markSeen bool
	filter   criteria.Receipt
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("IMAP_HOST", cfg.IMAPHost); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_USER", cfg.IMAPUser); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_PASSWORD", cfg.IMAPPassword); err != nil {
		return nil, err
	}

	return &Connector{
		host:     cfg.IMAPHost,
		port:     cfg.IMAPPort,
		secure:   cfg.IMAPSecure,
		user:     cfg.IMAPUser,
		password: cfg.IMAPPassword,
		markSeen: cfg.IMAPMarkSeen,
		filter:   criteria.FromConfig(cfg),
	}, nil
}

// candidate is a message whose envelope and structure passed the receipt
// filter; only candidates have their bodies downloaded.
type candidate struct {
	seq       uint32
	messageID string
	subject   string
	from      string
	received  string
}

// FetchReceipts downloads up to max unseen receipt-like messages from the
// label mailbox, oldest first. Sender and subject are searched on the
// server; attachments are checked from the body structure before any body
// is downloaded. Cancelling ctx closes the connection.
func (c *Connector) FetchReceipts(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer client.Logout()
	stop := context.AfterFunc(ctx, func() { _ = client.Terminate() })
	defer stop()

	if err := client.Login(c.user, c.password); err != nil {
		return nil, abort(ctx, err)
	}
	if _, err := client.Select(label, false); err != nil {
		return nil, abort(ctx, err)
	}

	ids, err := client.Search(searchCriteria(c.filter))
	if err != nil {
		return nil, abort(ctx, err)
	}
	if len(ids) == 0 || max <= 0 {
		return nil, nil
	}

	candidates, err := c.scan(ctx, client, ids)
	if err != nil {
		return nil, err
	}
	if len(candidates) > max {
		candidates = candidates[len(candidates)-max:]
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	for _, cand := range candidates {
		seqset.AddNum(cand.seq)
	}
	section := &imap.BodySectionName{}
	bodies := make(map[uint32][]byte, len(candidates))
	err = fetch(ctx, client, seqset, []imap.FetchItem{section.FetchItem()}, len(candidates), func(msg *imap.Message) error {
		body := msg.GetBody(section)
		if body == nil {
			return nil
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			return err
		}
		bodies[msg.SeqNum] = raw
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]internal.FetchedMailMessage, 0, len(candidates))
	for _, cand := range candidates {
		raw, ok := bodies[cand.seq]
		if !ok {
			continue
		}
		out = append(out, internal.FetchedMailMessage{
			Provider:   "imap",
			MessageID:  cand.messageID,
			Subject:    cand.subject,
			From:       cand.from,
			ReceivedAt: cand.received,
			Raw:        raw,
		})
	}

	if c.markSeen && len(out) > 0 {
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := client.Store(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
			return nil, abort(ctx, err)
		}
	}
	return out, nil
}

func (c *Connector) dial() (*imapclient.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	if c.secure {
		return imapclient.DialTLS(addr, &tls.Config{ServerName: c.host})
	}
	return imapclient.Dial(addr)
}

// scan reads envelopes and body structures of ids and keeps the messages
// that pass the receipt filter, ordered by sequence number.
func (c *Connector) scan(ctx context.Context, client *imapclient.Client, ids []uint32) ([]candidate, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, imap.FetchUid, imap.FetchBodyStructure}

	var out []candidate
	err := fetch(ctx, client, seqset, items, len(ids), func(msg *imap.Message) error {
		if cand, ok := c.accept(msg); ok {
			out = append(out, cand)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out, nil
}

func (c *Connector) accept(msg *imap.Message) (candidate, bool) {
	cand := candidate{seq: msg.SeqNum}
	if msg.Envelope != nil {
		cand.messageID = msg.Envelope.MessageId
		cand.subject = msg.Envelope.Subject
		cand.from = formatAddresses(msg.Envelope.From)
	}
	if !c.filter.Matches(cand.subject, cand.from) {
		return candidate{}, false
	}
	if c.filter.RequireAttachment && !hasReceiptPart(msg.BodyStructure) {
		return candidate{}, false
	}
	if cand.messageID == "" {
		cand.messageID = fmt.Sprintf("imap-%d", msg.Uid)
	}
	cand.received = time.Now().UTC().Format(time.RFC3339)
	if !msg.InternalDate.IsZero() {
		cand.received = msg.InternalDate.UTC().Format(time.RFC3339)
	}
	return cand, true
}

// fetch runs one FETCH and calls each per message. It keeps draining the
// channel after an error so the fetch goroutine can finish.
func fetch(ctx context.Context, client *imapclient.Client, seqset *imap.SeqSet, items []imap.FetchItem, n int, each func(*imap.Message) error) error {
	messages := make(chan *imap.Message, n)
	done := make(chan error, 1)
	go func() { done <- client.Fetch(seqset, items, messages) }()

	var firstErr error
	for msg := range messages {
		if firstErr != nil || msg == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			firstErr = err
			continue
		}
		firstErr = each(msg)
	}
	if err := <-done; err != nil && firstErr == nil {
		firstErr = err
	}
	return abort(ctx, firstErr)
}

// abort prefers the context error, since a terminated connection reports
// its own less useful error.
func abort(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// searchCriteria selects unseen messages from any configured sender whose
// subject carries any configured keyword.
func searchCriteria(filter criteria.Receipt) *imap.SearchCriteria {
	c := imap.NewSearchCriteria()
	c.WithoutFlags = []string{imap.SeenFlag}
	addAnyOf(c, "From", filter.Senders)
	addAnyOf(c, "Subject", filter.SubjectKeywords)
	return c
}

// addAnyOf ANDs "header contains one of values" into c.
func addAnyOf(c *imap.SearchCriteria, header string, values []string) {
	var leaves []*imap.SearchCriteria
	for _, v := range values {
		if v = strings.TrimSpace(v); v == "" {
			continue
		}
		leaf := imap.NewSearchCriteria()
		leaf.Header = map[string][]string{header: {v}}
		leaves = append(leaves, leaf)
	}
	switch len(leaves) {
	case 0:
		return
	case 1:
		if c.Header == nil {
			c.Header = map[string][]string{}
		}
		c.Header[header] = append(c.Header[header], leaves[0].Header[header]...)
		return
	}
	node := leaves[0]
	for _, leaf := range leaves[1 : len(leaves)-1] {
		next := imap.NewSearchCriteria()
		next.Or = [][2]*imap.SearchCriteria{{node, leaf}}
		node = next
	}
	c.Or = append(c.Or, [2]*imap.SearchCriteria{node, leaves[len(leaves)-1]})
}

func hasReceiptPart(bs *imap.BodyStructure) bool {
	if bs == nil {
		return false
	}
	if criteria.IsReceiptFile(bs.MIMEType, bs.MIMESubType) {
		return true
	}
	for _, part := range bs.Parts {
		if hasReceiptPart(part) {
			return true
		}
	}
	return false
}

func formatAddresses(addrs []*imap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		email := strings.Trim(strings.Join([]string{a.MailboxName, a.HostName}, "@"), "@")
		if a.PersonalName != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.PersonalName, email))
		} else {
			parts = append(parts, email)
		}
	}
	return strings.Join(parts, ", ")
}
