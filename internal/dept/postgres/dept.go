package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"

	deptDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/dept"
	"github.com/frahmantamala/account-admin/internal/dept"
)

// UNION rather than UNION ALL so a corrupt parent cycle terminates.
const descendantsQuery = `
WITH RECURSIVE tree(dept_id) AS (
	SELECT dept_id FROM sys_dept WHERE dept_id = ?
	UNION
	SELECT d.dept_id FROM sys_dept d JOIN tree t ON d.parent_id = t.dept_id
)
SELECT dept_id FROM tree ORDER BY dept_id`

type DeptRepository struct {
	db  *gorm.DB
	sdb *sqlx.DB
}

func NewDeptRepository(db *gorm.DB, sdb *sqlx.DB) *DeptRepository {
	return &DeptRepository{db: db, sdb: sdb}
}

func (r *DeptRepository) GetAll(ctx context.Context) ([]*deptDatamodel.SysDept, error) {
	var depts []*deptDatamodel.SysDept
	err := r.db.WithContext(ctx).Order("parent_id ASC, order_num ASC").Find(&depts).Error
	return depts, err
}

// DescendantIDs returns deptID and every department below it.
func (r *DeptRepository) DescendantIDs(ctx context.Context, deptID int64) ([]int64, error) {
	var ids []int64
	if err := r.sdb.SelectContext(ctx, &ids, r.sdb.Rebind(descendantsQuery), deptID); err != nil {
		return nil, fmt.Errorf("select descendants of %d: %w", deptID, err)
	}
	return ids, nil
}

// CachedDeptRepository memoizes descendant lookups for a fixed TTL.
// Departments are read-only here, so staleness is bounded by the TTL.
type CachedDeptRepository struct {
	dept.RepositoryAPI
	cache *ristretto.Cache[int64, []int64]
	ttl   time.Duration
}

func NewCachedDeptRepository(next dept.RepositoryAPI, ttl time.Duration, maxEntries int64) (*CachedDeptRepository, error) {
	// cost 1 per entry, so MaxCost is an entry count
	cache, err := ristretto.NewCache(&ristretto.Config[int64, []int64]{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create descendant cache: %w", err)
	}
	return &CachedDeptRepository{
		RepositoryAPI: next,
		cache:         cache,
		ttl:           ttl,
	}, nil
}

func (c *CachedDeptRepository) DescendantIDs(ctx context.Context, deptID int64) ([]int64, error) {
	if ids, ok := c.cache.Get(deptID); ok {
		return ids, nil
	}

	ids, err := c.RepositoryAPI.DescendantIDs(ctx, deptID)
	if err != nil {
		return nil, err
	}
	c.cache.SetWithTTL(deptID, ids, 1, c.ttl)
	return ids, nil
}

// Wait blocks until buffered cache writes are applied.
func (c *CachedDeptRepository) Wait() {
	c.cache.Wait()
}

func (c *CachedDeptRepository) Close() {
	c.cache.Close()
}
