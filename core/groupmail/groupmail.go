// Package groupmail extracts group mail listings and threads from the QQ
// webmail pages.
package groupmail

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	listSelector   = `form#frm > div.toarea > table`
	threadSelector = `div.qm_converstaion_bd`
)

// Header is one row of the group mail list.
type Header struct {
	MailID    string `json:"mailId"`
	Unread    bool   `json:"unread"`
	Sender    string `json:"sender"`
	GID       string `json:"gid"`
	GroupName string `json:"groupName"`
	Subject   string `json:"subject"`
	Summary   string `json:"summary"`
	Date      string `json:"date"`
}

func (h Header) String() string {
	return fmt.Sprintf("%s：%s，%s", h.GroupName, h.Subject, h.Date)
}

// URL returns the reading page of the mail relative to /cgi-bin/.
func (h Header) URL(sid string) string {
	return fmt.Sprintf("readmail?folderid=8&t=readmail_group&mailid=%s&mode=pre&maxage=600&base=12&ver=10646&sid=%s", h.MailID, sid)
}

// Post is one message of a group mail thread.
type Post struct {
	Sender     string `json:"sender"`
	SenderID   string `json:"senderId"`
	SenderMail string `json:"senderMail"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Content    string `json:"content"`
}

func (p Post) String() string {
	return fmt.Sprintf("%s:\n\t%s", p.Sender, strings.ReplaceAll(p.Content, "\n", "\n\t"))
}

// ParseGroupMails reads the mail list page.
func ParseGroupMails(r io.Reader) ([]Header, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail list: %w", err)
	}

	var (
		headers  []Header
		parseErr error
	)
	doc.Find(listSelector).EachWithBreak(func(i int, table *goquery.Selection) bool {
		h, err := parseHeader(table)
		if err != nil {
			parseErr = fmt.Errorf("mail %d: %w", i, err)
			return false
		}
		headers = append(headers, h)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return headers, nil
}

func parseHeader(table *goquery.Selection) (Header, error) {
	var h Header

	mail, err := first(table, `input[name="mailid"]`)
	if err != nil {
		return h, err
	}
	h.MailID = mail.AttrOr("value", "")
	// only a literal "false" marks a mail as read
	h.Unread = mail.AttrOr("unread", "") != "false"
	h.Sender = mail.AttrOr("fa", "")
	h.GID = mail.AttrOr("gid", "")
	h.GroupName = mail.AttrOr("fn", "")

	subject, err := first(table, "u")
	if err != nil {
		return h, err
	}
	h.Subject = leadingText(subject)
	h.Summary = strings.TrimSpace(leadingText(subject.Next()))

	date, err := first(table, "td.dt > div")
	if err != nil {
		return h, err
	}
	h.Date = strings.TrimSpace(leadingText(date))
	return h, nil
}

// ParseSingleGroupMail reads a thread page. Posts are returned oldest first.
func ParseSingleGroupMail(r io.Reader) ([]Post, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail thread: %w", err)
	}

	var (
		posts    []Post
		parseErr error
	)
	doc.Find(threadSelector).EachWithBreak(func(i int, div *goquery.Selection) bool {
		p, err := parsePost(div)
		if err != nil {
			parseErr = fmt.Errorf("post %d: %w", i, err)
			return false
		}
		posts = append(posts, p)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	// the page lists the newest post first
	for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
		posts[i], posts[j] = posts[j], posts[i]
	}
	return posts, nil
}

func parsePost(div *goquery.Selection) (Post, error) {
	var p Post

	info, err := first(div, "div.qm_dispname")
	if err != nil {
		return p, err
	}
	sender, err := first(info, "a")
	if err != nil {
		return p, err
	}
	p.Sender = sender.AttrOr("n", "")
	p.SenderID = sender.AttrOr("u", "")
	p.SenderMail = sender.AttrOr("e", "")

	span, err := first(info, "span.normal")
	if err != nil {
		return p, err
	}
	p.Date = leadingText(span)
	p.Time = lastChildTail(span)

	content, err := first(div, "div.qm_converstaion_body")
	if err != nil {
		return p, err
	}
	p.Content = strings.TrimSpace(content.Text())
	return p, nil
}

// first returns the first match of selector under s.
func first(s *goquery.Selection, selector string) (*goquery.Selection, error) {
	m := s.Find(selector).First()
	if m.Length() == 0 {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return m, nil
}

// leadingText is the text of s before its first child element.
func leadingText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	var b strings.Builder
	for n := s.Get(0).FirstChild; n != nil && n.Type != html.ElementNode; n = n.NextSibling {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
	}
	return b.String()
}

// lastChildTail is the text following the last child element of s.
func lastChildTail(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	var last *html.Node
	for n := s.Get(0).FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode {
			last = n
		}
	}
	if last == nil {
		return ""
	}
	var b strings.Builder
	for n := last.NextSibling; n != nil && n.Type != html.ElementNode; n = n.NextSibling {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
	}
	return b.String()
}
