package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/emurenMRz/mailmark/internal/mailbox"
	"github.com/emurenMRz/mailmark/internal/record"
	"github.com/emurenMRz/mailmark/internal/store"
)

// loadBookmarks fetches the caller's stored records, keeping at most limit
// (all when limit <= 0). A user without bookmarks gets an empty list.
func (s *Server) loadBookmarks(r *http.Request, sess store.Session, limit int) ([]record.Record, error) {
	coll, err := s.backend.ListEmails(r.Context(), sess.Token, sess.UserID)
	if err != nil {
		return nil, err
	}
	records, err := record.Convert(record.Payload{Records: coll, Limit: limit})
	if errors.Is(err, record.ErrEmptyCollection) {
		return []record.Record{}, nil
	}
	return records, err
}

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	win, err := s.pageWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.loadBookmarks(r, sess, limit)
	if err != nil {
		s.writeBackendError(w, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, pageOf(records, win, s.pageSizes()))
}

func (s *Server) handleCreateBookmark(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	var req bookmarkRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec := req.record()
	raw := record.PrepareForPersistence(sess.UserID, &rec)
	if raw == nil {
		writeError(w, http.StatusUnauthorized, "no signed-in user")
		return
	}

	id, err := s.backend.CreateEmail(r.Context(), sess.Token, sess.UserID, raw)
	if err != nil {
		s.writeBackendError(w, "create", err)
		return
	}
	s.log.Debug("bookmark created", zap.String("user", sess.UserID), zap.String("id", id))
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) handleDeleteBookmark(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	id := mux.Vars(r)["id"]

	if err := s.backend.DeleteEmail(r.Context(), sess.Token, sess.UserID, id); err != nil {
		s.writeBackendError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExportBookmarks streams the caller's bookmarks as an mbox file.
func (s *Server) handleExportBookmarks(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	records, err := s.loadBookmarks(r, sess, 0)
	if err != nil {
		s.writeBackendError(w, "export", err)
		return
	}

	filename := "bookmarks-" + s.now().UTC().Format(time.DateOnly) + ".mbox"
	w.Header().Set("Content-Type", "application/mbox")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := mailbox.Export(w, records); err != nil {
		s.log.Error("export bookmarks", zap.Error(err))
	}
}
