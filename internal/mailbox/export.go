package mailbox

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-mbox"
	"github.com/google/uuid"

	"github.com/emurenMRz/mailmark/internal/record"
)

// Export writes one message per record to w in mbox format. Header values
// taken from the record are kept on one line; the search engine and key are
// RFC 2047 encoded when needed.
func Export(w io.Writer, records []record.Record) error {
	mw := mbox.NewWriter(w)
	for _, r := range records {
		date := r.CreationDate
		if date.IsZero() {
			date = r.UserAddedDate
		}
		if date.IsZero() {
			date = time.Now()
		}

		addr := oneLine(r.Address)
		msg, err := mw.CreateMessage(addr, date)
		if err != nil {
			return fmt.Errorf("create message for %s: %w", addr, err)
		}
		if _, err := io.WriteString(msg, formatMessage(r, addr, date)); err != nil {
			return fmt.Errorf("write message for %s: %w", addr, err)
		}
	}
	return mw.Close()
}

var (
	lineBreaks   = strings.NewReplacer("\r", "", "\n", "")
	messageIDTok = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

func oneLine(s string) string { return lineBreaks.Replace(s) }

// messageID uses the store key when it is a plain token and a fresh uuid
// otherwise.
func messageID(id string) string {
	if !messageIDTok.MatchString(id) {
		id = uuid.NewString()
	}
	return "<" + id + "@mailmark>"
}

func formatMessage(r record.Record, addr string, date time.Time) string {
	header := fmt.Sprintf("From: <%s>\nDate: %s\nSubject: %s\nMessage-ID: %s\nX-Mailmark-Engine: %s\nContent-Type: text/plain; charset=utf-8\nContent-Transfer-Encoding: 8bit\n",
		addr,
		date.Format(time.RFC1123Z),
		mime.QEncoding.Encode("utf-8", r.SearchKey),
		messageID(r.ID),
		mime.QEncoding.Encode("utf-8", r.SearchEngine),
	)
	body := "Address: " + addr + "\nLink: " + oneLine(r.Link) + "\n"
	if r.Comments != "" {
		body += "\n" + r.Comments + "\n"
	}
	return header + "\n" + body
}

// ExportTo replaces the named mailbox with the exported records.
func (d *Dir) ExportTo(name string, records []record.Record) error {
	path, err := d.filePath(name)
	if err != nil {
		return err
	}
	return ExportFile(path, records)
}

// ExportFile replaces the file at path with the exported records. The file is
// written to a temporary file in the same directory and renamed into place.
func ExportFile(path string, records []record.Record) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".mailmark-export-*.mbox")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := Export(tmp, records); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace mailbox: %w", err)
	}
	return nil
}
