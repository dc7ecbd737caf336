// Package memory implementa un store en memoria.
//
// Pensado para desarrollo local y tests del motor de distribución: la
// relación usuario↔segmento es un único conjunto indexado por par y toda
// escritura ocurre dentro de WithinTx con el lock de escritura tomado
// (un solo escritor a la vez), con rollback por journal de deshacer.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/segmentation/internal/domain/repository"
	"github.com/dropDatabas3/segmentation/internal/store"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	return New(), nil
}

type pair struct {
	userID    int64
	segmentID int64
}

type userRow struct {
	repository.User
}

// AddHook se invoca antes de crear cada par; si retorna error la escritura falla.
// Permite inyectar fallas en tests.
type AddHook func(ctx context.Context, userID, segmentID int64) error

// Store es el store en memoria. Implementa store.AdapterConnection.
type Store struct {
	mu sync.RWMutex

	users     map[int64]*userRow
	userOrder []int64 // IDs ascendentes

	segments  map[int64]*repository.Segment
	segByName map[string]int64

	// pairs es la relación; byUser es un índice derivado que se actualiza junto con pairs.
	pairs  map[pair]time.Time
	byUser map[int64]map[int64]struct{}

	filters []repository.Filter

	nextUserID    int64
	nextSegmentID int64
	nextFilterID  int64

	addHook AddHook
	now     func() time.Time
}

// New crea un store vacío.
func New() *Store {
	return &Store{
		users:     make(map[int64]*userRow),
		segments:  make(map[int64]*repository.Segment),
		segByName: make(map[string]int64),
		pairs:     make(map[pair]time.Time),
		byUser:    make(map[int64]map[int64]struct{}),
		now:       time.Now,
	}
}

// SetAddHook instala (o quita, con nil) el hook de escritura.
func (s *Store) SetAddHook(h AddHook) {
	s.mu.Lock()
	s.addHook = h
	s.mu.Unlock()
}

func (s *Store) Name() string                   { return "memory" }
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }
func (s *Store) Close() error                   { return nil }

func (s *Store) Users() repository.UserRepository             { return (*userRepo)(s) }
func (s *Store) Segments() repository.SegmentRepository       { return (*segmentRepo)(s) }
func (s *Store) Memberships() repository.MembershipRepository { return (*membershipRepo)(s) }
func (s *Store) Filters() repository.FilterRepository         { return (*filterRepo)(s) }

// snapshotUser copia el usuario con su vista de segmentos. Requiere lock tomado.
func (s *Store) snapshotUser(row *userRow) repository.User {
	u := row.User
	set := s.byUser[u.ID]
	u.SegmentIDs = make([]int64, 0, len(set))
	for id := range set {
		u.SegmentIDs = append(u.SegmentIDs, id)
	}
	sort.Slice(u.SegmentIDs, func(i, j int) bool { return u.SegmentIDs[i] < u.SegmentIDs[j] })
	return u
}

// addPair y removePair son los únicos puntos que tocan pairs/byUser. Requieren lock de escritura.
func (s *Store) addPair(p pair) bool {
	if _, ok := s.pairs[p]; ok {
		return false
	}
	s.pairs[p] = s.now()
	set := s.byUser[p.userID]
	if set == nil {
		set = make(map[int64]struct{})
		s.byUser[p.userID] = set
	}
	set[p.segmentID] = struct{}{}
	return true
}

func (s *Store) removePair(p pair) bool {
	if _, ok := s.pairs[p]; !ok {
		return false
	}
	delete(s.pairs, p)
	if set := s.byUser[p.userID]; set != nil {
		delete(set, p.segmentID)
		if len(set) == 0 {
			delete(s.byUser, p.userID)
		}
	}
	return true
}

// Members retorna los IDs de usuario del segmento, ordenados.
// Vista inversa calculada desde el mismo conjunto de pares.
func (s *Store) Members(segmentID int64) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []int64
	for p := range s.pairs {
		if p.segmentID == segmentID {
			out = append(out, p.userID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PairCount retorna el total de pares de la relación.
func (s *Store) PairCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pairs)
}
