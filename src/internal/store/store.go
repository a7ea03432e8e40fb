// Package store resolves API codes against the JH_WS02_* metadata tables.
//
// Every resolve reads the five related tables inside one transaction so the
// definition is built from a single snapshot. Resolved definitions may be
// served from a bounded TTL cache; callers always receive their own copy.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/errors"
	"github.com/jhsoft/ws02-gateway/src/internal/log"
	"github.com/jhsoft/ws02-gateway/src/internal/model"
)

var logger = log.Named("store")

// DefaultFlowPrefix selects the batch flows listed by the export tooling.
const DefaultFlowPrefix = "FI_"

// Options configure a Store.
type Options struct {
	// CacheTTL is how long a definition may be served from cache. Zero disables caching.
	CacheTTL time.Duration
	// CacheSize bounds the number of cached definitions.
	CacheSize int
	// Isolation is one of read_committed, repeatable_read, snapshot or
	// serializable. Empty leaves the driver default.
	Isolation string
}

// Store is the Config Store. It is safe for concurrent use.
type Store struct {
	db    *gorm.DB
	hosts domain.HostDirectory
	txOpt *sql.TxOptions

	cache *expirable.LRU[string, *domain.ApiDefinition]
	group singleflight.Group
}

// New creates a store reading from db and resolving host codes through hosts.
func New(db *gorm.DB, hosts domain.HostDirectory, opts Options) *Store {
	s := &Store{db: db, hosts: hosts}

	if level, ok := isolationLevels[opts.Isolation]; ok {
		s.txOpt = &sql.TxOptions{Isolation: level}
	}

	if opts.CacheTTL > 0 {
		size := opts.CacheSize
		if size <= 0 {
			size = 512
		}
		s.cache = expirable.NewLRU[string, *domain.ApiDefinition](size, nil, opts.CacheTTL)
	}
	return s
}

var isolationLevels = map[string]sql.IsolationLevel{
	"read_committed":  sql.LevelReadCommitted,
	"repeatable_read": sql.LevelRepeatableRead,
	"snapshot":        sql.LevelSnapshot,
	"serializable":    sql.LevelSerializable,
}

// Resolve returns the definition of code.
//
// It fails with NOT_FOUND when no row carries the code and with
// CONFIG_INVALID when the rows violate an invariant. Concurrent resolves of
// the same code share one load.
func (s *Store) Resolve(ctx context.Context, code string) (*domain.ApiDefinition, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.NewNotFoundError("empty API code")
	}

	if s.cache != nil {
		if def, ok := s.cache.Get(code); ok {
			return def.Clone(), nil
		}
	}

	ch := s.group.DoChan(code, func() (interface{}, error) {
		// The shared load must not be aborted by the first caller going away
		def, err := s.load(context.WithoutCancel(ctx), code)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Add(code, def)
		}
		return def, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.ApiDefinition).Clone(), nil
	}
}

func (s *Store) load(ctx context.Context, code string) (*domain.ApiDefinition, error) {
	var snap snapshot
	var found bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []model.CodeList
		if err := tx.Where(&model.CodeList{CodeID: code}).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if len(rows) > 1 {
			return errors.NewConfigInvalidError(fmt.Sprintf("API code %s is declared %d times", code, len(rows)), nil)
		}
		found = true
		snap.code = rows[0]

		pk := snap.code.PK
		if err := tx.Where(&model.CodeFormat{CodeIDPK: pk}).Find(&snap.formats).Error; err != nil {
			return err
		}
		if err := tx.Where(&model.CodeIPRelation{CodeIDPK: pk}).Find(&snap.ips).Error; err != nil {
			return err
		}
		if err := tx.Where(&model.CodeWSRelation{CodeIDPK: pk}).Find(&snap.hosts).Error; err != nil {
			return err
		}
		return tx.Where(&model.CodeRangeAnalysis{CodeIDPK: pk}).Find(&snap.fields).Error
	}, s.txOpt)
	if err != nil {
		if errors.CodeOf(err) == errors.ErrCodeConfigInvalid {
			logger.Errorf("Definition of %s is invalid: %v", code, err)
			return nil, err
		}
		return nil, errors.NewInternalError(fmt.Sprintf("failed to read definition of %s", code), err)
	}
	if !found {
		return nil, errors.NewNotFoundError(fmt.Sprintf("API code %s not found", code))
	}

	def, issues := build(snap, s.hosts)
	if len(issues) > 0 {
		logger.Errorf("Definition of %s is invalid: %v", code, issues)
		return nil, errors.NewConfigInvalidError(fmt.Sprintf("definition of %s is invalid", code), issues)
	}

	logger.Debugf("Resolved %s: %d level(s), %d ip rule(s), %d host(s), %d field(s)",
		code, len(def.Outputs), len(def.IPRules), len(def.Hosts), len(def.Fields))
	return def, nil
}

// Invalidate drops code from the cache.
func (s *Store) Invalidate(code string) {
	if s.cache != nil {
		s.cache.Remove(code)
	}
}

// Purge empties the cache.
func (s *Store) Purge() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// ListCodes returns every API code in ascending order.
func (s *Store) ListCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := s.db.WithContext(ctx).Model(&model.CodeList{}).Pluck("CODE_ID", &codes).Error; err != nil {
		return nil, errors.NewInternalError("failed to list API codes", err)
	}
	sort.Strings(codes)
	return codes, nil
}

// ListFlows returns the flows whose id starts with prefix, each with its
// steps in CLASS_NUM order. An empty prefix lists every flow.
func (s *Store) ListFlows(ctx context.Context, prefix string) ([]domain.Flow, error) {
	var flows []domain.Flow

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lists []model.FlowList
		query := tx.Model(&model.FlowList{})
		if prefix != "" {
			query = query.Where("FLOW_ID LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%")
		}
		if err := query.Find(&lists).Error; err != nil {
			return err
		}
		sort.Slice(lists, func(i, j int) bool { return lists[i].FlowID < lists[j].FlowID })

		for _, list := range lists {
			var steps []model.FlowSchedule
			if err := tx.Where(&model.FlowSchedule{FlowIDPK: list.PK}).Find(&steps).Error; err != nil {
				return err
			}
			sort.Slice(steps, func(i, j int) bool { return steps[i].ClassNum < steps[j].ClassNum })

			flow := domain.Flow{ID: list.FlowID, Help: list.FlowHelp}
			for _, step := range steps {
				flow.Steps = append(flow.Steps, domain.FlowStep{Position: step.ClassNum, Code: strings.TrimSpace(step.CallCodeID)})
			}
			flows = append(flows, flow)
		}
		return nil
	}, s.txOpt)
	if err != nil {
		return nil, errors.NewInternalError("failed to list flows", err)
	}
	return flows, nil
}

// Ping checks that the metadata database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// escapeLike makes LIKE metacharacters in s literal.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
