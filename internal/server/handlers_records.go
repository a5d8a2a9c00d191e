package server

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/emurenMRz/mailmark/internal/metrics"
	"github.com/emurenMRz/mailmark/internal/record"
	"github.com/emurenMRz/mailmark/internal/search"
	"github.com/emurenMRz/mailmark/internal/validate"
)

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	engines := s.search.Engines()
	names := make([]string, 0, len(engines))
	for _, e := range engines {
		names = append(names, e.String())
	}
	kinds := make([]string, 0, len(validate.Kinds()))
	for _, k := range validate.Kinds() {
		kinds = append(kinds, k.String())
	}
	writeJSON(w, http.StatusOK, configResponse{
		Engines:           names,
		PageSizes:         s.pageSizes(),
		PasswordMinLength: s.cfg.Validation.PasswordMinLength,
		PasswordSpecials:  validate.PasswordSpecials,
		ValidationKinds:   kinds,
		MaxCount:          s.search.MaxCount(),
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind, err := validate.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := kind.Check(req.Value, req.Multi)
	if !res.Valid {
		metrics.ValidationFailure(kind.String())
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSearch answers GET /api/search?engine=&key=&domain=&count=&page=&size=.
// An empty engine or "all" searches every enabled engine.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	count, err := queryInt(r, "count", s.cfg.Search.DefaultCount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	win, err := s.pageWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := search.Query{
		Key:    strings.TrimSpace(q.Get("key")),
		Domain: strings.TrimSpace(q.Get("domain")),
		Count:  count,
	}

	var records []record.Record
	switch name := strings.TrimSpace(q.Get("engine")); strings.ToLower(name) {
	case "", "all":
		records, err = s.search.SearchAll(r.Context(), query, nil)
	default:
		query.Engine, err = search.ParseEngine(name)
		if err == nil {
			records, err = s.search.Search(r.Context(), query)
		}
	}
	if err != nil {
		s.writeSearchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pageOf(records, win, s.pageSizes()))
}

func (s *Server) writeSearchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrUnknownEngine),
		errors.Is(err, search.ErrEngineDisabled),
		errors.Is(err, search.ErrInvalidKey),
		errors.Is(err, search.ErrInvalidDomain),
		errors.Is(err, search.ErrInvalidCount):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
	}
}
