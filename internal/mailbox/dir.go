// Package mailbox reads and writes a directory of mbox files. File names on
// disk are IMAP-UTF7 encoded; callers use the decoded UTF-8 names.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-imap/utf7"
	"github.com/emersion/go-mbox"
	"go.uber.org/zap"
)

var (
	ErrNotFound    = errors.New("mailbox not found")
	ErrInvalidName = errors.New("invalid mailbox name")
)

// Address is one address seen in a message header.
type Address struct {
	Mailbox string
	Index   int // message position within the mailbox
	Name    string
	Address string
	Subject string
	Date    time.Time
}

// Dir is a directory of mbox files.
type Dir struct {
	path string
	log  *zap.Logger
}

func NewDir(path string, log *zap.Logger) *Dir {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dir{path: path, log: log}
}

// Mailboxes lists the decoded names of the mbox files in the directory.
func (d *Dir) Mailboxes() ([]string, error) {
	files, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("read mailbox dir: %w", err)
	}

	var names []string
	for _, file := range files {
		if file.IsDir() || strings.HasPrefix(file.Name(), ".") {
			continue
		}
		decoded, err := utf7.Encoding.NewDecoder().String(file.Name())
		if err != nil {
			d.log.Warn("undecodable mailbox file name", zap.String("file", file.Name()), zap.Error(err))
			continue
		}
		names = append(names, decoded)
	}
	return names, nil
}

func (d *Dir) filePath(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	encoded, err := utf7.Encoding.NewEncoder().String(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(d.path, encoded), nil
}

// Addresses returns every From, To and Cc address of the messages in the
// named mailbox. Messages marked deleted (Status: D) are skipped.
func (d *Dir) Addresses(ctx context.Context, name string) ([]Address, error) {
	path, err := d.filePath(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	defer f.Close()

	var out []Address
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
			d.log.Warn("parse message headers", zap.String("mailbox", name), zap.Int("index", i), zap.Error(err))
			continue
		}

		header := msg.Header
		if strings.TrimSpace(header.Get("Status")) == "D" {
			continue
		}
		subject := decodeHeader(header.Get("Subject"))
		date := parseDate(header.Get("Date"))

		for _, field := range []string{"From", "To", "Cc"} {
			for _, a := range parseAddresses(header.Get(field)) {
				out = append(out, Address{
					Mailbox: name,
					Index:   i,
					Name:    a.Name,
					Address: strings.ToLower(a.Address),
					Subject: subject,
					Date:    date,
				})
			}
		}
	}
	return out, nil
}
