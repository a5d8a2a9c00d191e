package mailbox

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"
	"regexp"
	"strings"

	"github.com/emersion/go-mbox"
)

const (
	IssueMissing = "missing"
	IssueInvalid = "invalid"
	IssueDeleted = "deleted"
)

var messageIDPattern = regexp.MustCompile(`^<[^<>@\s]+@[^<>@\s]+>$`)

// Issue is one header problem found by Lint.
type Issue struct {
	Index  int    `json:"msgIndex"`
	Field  string `json:"field"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (i Issue) String() string {
	switch i.Status {
	case IssueMissing:
		return fmt.Sprintf("message %d: %s header is missing", i.Index, i.Field)
	case IssueDeleted:
		return fmt.Sprintf("message %d: marked deleted (Status: D)", i.Index)
	}
	return fmt.Sprintf("message %d: %s header is invalid (%s)", i.Index, i.Field, i.Detail)
}

// Lint checks every message of the named mailbox for the headers an
// exported or imported message needs: a parseable From and Date and a
// well-formed Message-ID. Deleted messages are reported as such.
func (d *Dir) Lint(ctx context.Context, name string) ([]Issue, error) {
	path, err := d.filePath(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	defer f.Close()

	var issues []Issue
	reader := mbox.NewReader(f)
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msgReader, err := reader.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read message %d of %s: %w", i, name, err)
		}
		msg, err := mail.ReadMessage(msgReader)
		if err != nil {
			issues = append(issues, Issue{Index: i, Field: "header", Status: IssueInvalid, Detail: err.Error()})
			continue
		}
		issues = append(issues, lintHeader(i, msg.Header)...)
	}
	return issues, nil
}

func lintHeader(i int, h mail.Header) []Issue {
	var issues []Issue
	check := func(field string, valid func(string) bool, detail string) {
		v := strings.TrimSpace(h.Get(field))
		switch {
		case v == "":
			issues = append(issues, Issue{Index: i, Field: field, Status: IssueMissing})
		case !valid(v):
			issues = append(issues, Issue{Index: i, Field: field, Status: IssueInvalid, Detail: detail})
		}
	}

	parser := &mail.AddressParser{WordDecoder: wordDecoder}
	check("From", func(v string) bool {
		_, err := parser.ParseList(v)
		return err == nil
	}, "invalid address list")
	check("Date", func(v string) bool {
		return !parseDate(v).IsZero()
	}, "unrecognised date format")
	check("Message-ID", messageIDPattern.MatchString, "expected <local@domain>")

	if strings.TrimSpace(h.Get("Status")) == "D" {
		issues = append(issues, Issue{Index: i, Field: "Status", Status: IssueDeleted})
	}
	return issues
}
