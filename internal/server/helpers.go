package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/emurenMRz/mailmark/internal/paging"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// decodeBody decodes a JSON request body into dst and runs the struct
// validation rules on it.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return describeValidation(err)
	}
	return nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "max":
		return fmt.Errorf("%s is too long", fe.Field())
	}
	if msg, ok := tagMessages[fe.Tag()]; ok {
		return fmt.Errorf("%s: %s", fe.Field(), msg)
	}
	return fmt.Errorf("%s is invalid", fe.Field())
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

// pageWindow reads page and size from the query string. Size defaults to
// the smallest configured page size and is capped at the largest.
func (s *Server) pageWindow(r *http.Request) (paging.Window, error) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		return paging.Window{}, err
	}
	size, err := queryInt(r, "size", 0)
	if err != nil {
		return paging.Window{}, err
	}
	sizes := s.pageSizes()
	maxSize, _ := paging.Max(sizes)
	return paging.Window{Page: page, Size: size}.Normalize(sizes[0], maxSize), nil
}

func (s *Server) pageSizes() []int {
	if len(s.cfg.Paging.Sizes) == 0 {
		return paging.DefaultSizes
	}
	return s.cfg.Paging.Sizes
}

func pageOf[T any](items []T, w paging.Window, sizes []int) pageResponse[T] {
	page := paging.Slice(items, w)
	if page == nil {
		page = []T{}
	}
	return pageResponse[T]{
		Items:     page,
		Total:     len(items),
		Page:      w.Page,
		Size:      w.Size,
		Pages:     w.Pages(len(items)),
		PageSizes: paging.SizeOptions(sizes, len(items)),
	}
}
