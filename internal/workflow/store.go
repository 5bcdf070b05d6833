package workflow

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/desertthunder/tracksync/internal/models"
)

const storeShards = 16

// Store holds workflow records in memory for the standalone backend. Keys
// are sharded to keep unrelated workflows off the same lock; each record is
// written only by the goroutine that owns its execution, so readers always
// see a consistent snapshot.
type Store struct {
	shards [storeShards]storeShard
}

type storeShard struct {
	mu      sync.RWMutex
	records map[string]models.WorkflowRecord
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i].records = make(map[string]models.WorkflowRecord)
	}
	return s
}

func (s *Store) shard(id string) *storeShard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.shards[h.Sum32()%storeShards]
}

// Create inserts a new running record for the request. Existing records are
// never overwritten; ids are unique by construction.
func (s *Store) Create(id string, req models.SongRequest, startedAt time.Time) {
	shard := s.shard(id)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if _, exists := shard.records[id]; exists {
		return
	}
	shard.records[id] = models.WorkflowRecord{
		ID:        id,
		Request:   req,
		State:     models.StateRunning,
		StartedAt: startedAt,
		Progress: models.Progress{
			CurrentStep: models.StepInitializing,
			StepsTotal:  models.StepsTotal,
		},
	}
}

// Update applies fn to the record for id, if present. fn receives a copy and
// its result replaces the stored record, so partial mutations never leak.
func (s *Store) Update(id string, fn func(models.WorkflowRecord) models.WorkflowRecord) {
	shard := s.shard(id)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	record, ok := shard.records[id]
	if !ok {
		return
	}
	shard.records[id] = fn(record)
}

// Get returns a snapshot of the record for id.
func (s *Store) Get(id string) (models.WorkflowRecord, bool) {
	shard := s.shard(id)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	record, ok := shard.records[id]
	return record, ok
}

// Len returns the total number of records across all shards.
func (s *Store) Len() int {
	total := 0
	for i := range s.shards {
		s.shards[i].mu.RLock()
		total += len(s.shards[i].records)
		s.shards[i].mu.RUnlock()
	}
	return total
}
