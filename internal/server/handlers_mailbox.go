package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/emurenMRz/mailmark/internal/mailbox"
)

func (s *Server) handleMailboxes(w http.ResponseWriter, _ *http.Request) {
	if s.mailboxes == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}
	names, err := s.mailboxes.Mailboxes()
	if err != nil {
		s.log.Error("list mailboxes", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read mailbox directory")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// handleMailboxAddresses pages through the addresses seen in one mailbox,
// in message order.
func (s *Server) handleMailboxAddresses(w http.ResponseWriter, r *http.Request) {
	if s.mailboxes == nil {
		writeError(w, http.StatusNotFound, mailbox.ErrNotFound.Error())
		return
	}
	win, err := s.pageWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := mux.Vars(r)["name"]
	addrs, err := s.mailboxes.Addresses(r.Context(), name)
	switch {
	case errors.Is(err, mailbox.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, mailbox.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.log.Error("read mailbox", zap.String("mailbox", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error reading mbox")
		return
	}

	out := make([]addressResponse, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, addressResponse{
			Index:   a.Index,
			Name:    a.Name,
			Address: a.Address,
			Subject: a.Subject,
			Date:    a.Date,
		})
	}
	writeJSON(w, http.StatusOK, pageOf(out, win, s.pageSizes()))
}
