package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/emurenMRz/mailmark/internal/mailbox"
	"github.com/emurenMRz/mailmark/internal/metrics"
	"github.com/emurenMRz/mailmark/internal/record"
)

var (
	ErrEngineDisabled     = errors.New("search engine not enabled")
	ErrMailboxUnavailable = errors.New("no mailbox directory configured")
)

// Service runs queries against the enabled engines.
type Service struct {
	gen      *Generator
	dir      *mailbox.Dir
	engines  []Engine
	maxCount int
	log      *zap.Logger
}

// NewService creates a search service. dir may be nil, in which case the
// mailbox engine is dropped from engines.
func NewService(gen *Generator, dir *mailbox.Dir, engines []Engine, maxCount int, log *zap.Logger) *Service {
	if gen == nil {
		gen = NewGenerator(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	enabled := make([]Engine, 0, len(engines))
	for _, e := range engines {
		if e == Mailbox && dir == nil {
			log.Warn("mailbox engine enabled without a mailbox directory, disabling it")
			continue
		}
		if !slices.Contains(enabled, e) {
			enabled = append(enabled, e)
		}
	}
	return &Service{gen: gen, dir: dir, engines: enabled, maxCount: maxCount, log: log}
}

// Engines returns the enabled engines in configured order.
func (s *Service) Engines() []Engine {
	return slices.Clone(s.engines)
}

// MaxCount is the largest per-engine result count accepted.
func (s *Service) MaxCount() int { return s.maxCount }

// Search runs q against q.Engine.
func (s *Service) Search(ctx context.Context, q Query) ([]record.Record, error) {
	if !slices.Contains(s.engines, q.Engine) {
		return nil, fmt.Errorf("%w: %s", ErrEngineDisabled, q.Engine)
	}
	if err := q.Validate(s.maxCount); err != nil {
		return nil, err
	}

	var (
		records []record.Record
		err     error
	)
	if q.Engine == Mailbox {
		records, err = s.searchMailboxes(ctx, q)
	} else {
		records, err = s.gen.Records(q)
	}
	if err != nil {
		s.log.Error("search failed", zap.Stringer("engine", q.Engine), zap.Error(err))
		return nil, err
	}

	metrics.SearchResults(q.Engine.String(), len(records))
	s.log.Debug("search done",
		zap.Stringer("engine", q.Engine),
		zap.String("key", q.Key),
		zap.Int("results", len(records)))
	return records, nil
}

// SearchAll runs q against every engine concurrently and concatenates the
// results in engine order. An empty engines list means every enabled
// engine. The first failure cancels the rest.
func (s *Service) SearchAll(ctx context.Context, q Query, engines []Engine) ([]record.Record, error) {
	if len(engines) == 0 {
		engines = s.engines
	}

	results := make([][]record.Record, len(engines))
	g, ctx := errgroup.WithContext(ctx)
	for i, e := range engines {
		eq := q
		eq.Engine = e
		g.Go(func() error {
			records, err := s.Search(ctx, eq)
			if err != nil {
				return fmt.Errorf("%s: %w", e, err)
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(results...), nil
}

// searchMailboxes collects distinct addresses whose local part contains the
// key, scanning mailboxes in name order until Count addresses are found.
func (s *Service) searchMailboxes(ctx context.Context, q Query) ([]record.Record, error) {
	if s.dir == nil {
		return nil, ErrMailboxUnavailable
	}
	names, err := s.dir.Mailboxes()
	if err != nil {
		return nil, err
	}

	key := strings.ToLower(q.Key)
	domain := strings.ToLower(q.Domain)
	seen := make(map[string]bool)
	var records []record.Record

	for _, name := range names {
		addrs, err := s.dir.Addresses(ctx, name)
		if err != nil {
			return nil, err
		}
		for _, a := range addrs {
			local, host, ok := strings.Cut(a.Address, "@")
			if !ok || seen[a.Address] || !strings.Contains(local, key) {
				continue
			}
			if domain != "" && host != domain {
				continue
			}
			seen[a.Address] = true
			records = append(records, record.FromRaw(uuid.NewString(), record.Raw{
				Address:      a.Address,
				Link:         "mailto:" + a.Address,
				CreationDate: a.Date,
				SearchEngine: Mailbox.String(),
				SearchKey:    q.Key,
				Comments:     a.Subject,
			}, record.TypeSearch))
			if len(records) == q.Count {
				return records, nil
			}
		}
	}
	return records, nil
}
