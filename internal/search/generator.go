package search

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/emurenMRz/mailmark/internal/record"
)

const defaultPoolFactor = 3

var (
	placeholderDomains = []string{
		"example.com", "example.org", "example.net", "mail.example.com", "corp.example.org",
	}
	placeholderWords = []string{
		"info", "contact", "team", "office", "hello", "sales", "support", "admin", "press", "jobs",
	}
	placeholderPaths = []string{
		"about", "contact", "team", "impressum", "people", "news",
	}
)

// Generator produces placeholder search results for the simulated engines.
// It is safe for concurrent use.
type Generator struct {
	mu         sync.Mutex
	rand       *rand.Rand
	now        func() time.Time
	poolFactor int
}

// NewGenerator returns a generator drawing from r; a nil r is seeded randomly.
func NewGenerator(r *rand.Rand) *Generator {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{rand: r, now: time.Now, poolFactor: defaultPoolFactor}
}

// Records builds a sample pool for q and picks q.Count distinct records
// from it.
func (g *Generator) Records(q Query) ([]record.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return record.Convert(record.Payload{
		Generated: true,
		Samples:   g.pool(q),
		Count:     q.Count,
		Rand:      g.rand,
	})
}

// pool returns poolFactor*q.Count raws whose local part contains the key.
// Must be called with g.mu held.
func (g *Generator) pool(q Query) []record.Raw {
	n := g.poolFactor * q.Count
	key := strings.ReplaceAll(strings.ToLower(q.Key), " ", ".")
	now := g.now().UTC()

	raws := make([]record.Raw, 0, n)
	for i := range n {
		domain := q.Domain
		if domain == "" {
			domain = placeholderDomains[g.rand.IntN(len(placeholderDomains))]
		}
		domain = strings.ToLower(domain)

		local := fmt.Sprintf("%s.%s%d", placeholderWords[g.rand.IntN(len(placeholderWords))], key, i+1)
		if g.rand.IntN(2) == 0 {
			local = fmt.Sprintf("%s%d", key, i+1)
		}

		raws = append(raws, record.Raw{
			Address:      local + "@" + domain,
			Link:         "https://" + domain + "/" + placeholderPaths[g.rand.IntN(len(placeholderPaths))],
			CreationDate: now.Add(-time.Duration(g.rand.Int64N(int64(365 * 24 * time.Hour)))).Truncate(time.Second),
			SearchEngine: q.Engine.String(),
			SearchKey:    q.Key,
		})
	}
	return raws
}
