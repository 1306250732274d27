package statestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorldStateEntry is the relational row backing one committed key.
type WorldStateEntry struct {
	Key   string `gorm:"column:k;primaryKey"`
	Value []byte `gorm:"column:v;not null"`
}

// TableName implements the GORM table naming hook.
func (WorldStateEntry) TableName() string { return "world_state" }

// Gorm is a Backend persisting world state in a relational table, ordered by
// the key column so range scans stay lexicographic.
type Gorm struct {
	db *gorm.DB
}

// NewGorm returns a backend over the provided GORM connection.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm connection required")
	}
	return &Gorm{db: db}, nil
}

// AutoMigrate creates the world_state table. Dev and test convenience; real
// deployments run the goose migrations.
func (g *Gorm) AutoMigrate(ctx context.Context) error {
	return g.db.WithContext(ctx).AutoMigrate(&WorldStateEntry{})
}

func (g *Gorm) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry WorldStateEntry
	err := g.db.WithContext(ctx).Where("k = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("world state get: %w", err)
	}
	return entry.Value, true, nil
}

func (g *Gorm) Put(ctx context.Context, key string, value []byte) error {
	entry := WorldStateEntry{Key: key, Value: value}
	err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "k"}},
			DoUpdates: clause.AssignmentColumns([]string{"v"}),
		}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("world state put: %w", err)
	}
	return nil
}

func (g *Gorm) Delete(ctx context.Context, key string) error {
	err := g.db.WithContext(ctx).Where("k = ?", key).Delete(&WorldStateEntry{}).Error
	if err != nil {
		return fmt.Errorf("world state delete: %w", err)
	}
	return nil
}

// ApplyBatch runs the whole write-set inside one database transaction; a
// failed write rolls back everything already applied.
func (g *Gorm) ApplyBatch(ctx context.Context, deletes []string, puts []KV) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range deletes {
			if err := tx.Where("k = ?", key).Delete(&WorldStateEntry{}).Error; err != nil {
				return err
			}
		}
		for _, kv := range puts {
			entry := WorldStateEntry{Key: kv.Key, Value: kv.Value}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "k"}},
				DoUpdates: clause.AssignmentColumns([]string{"v"}),
			}).Create(&entry).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("world state batch: %w", err)
	}
	return nil
}

func (g *Gorm) Range(ctx context.Context, start, end string) (Iterator, error) {
	query := g.db.WithContext(ctx).
		Model(&WorldStateEntry{}).
		Select("k", "v").
		Order("k ASC")
	if start != "" {
		query = query.Where("k >= ?", start)
	}
	if end != "" {
		query = query.Where("k < ?", end)
	}
	rows, err := query.Rows()
	if err != nil {
		return nil, fmt.Errorf("world state range: %w", err)
	}
	return &rowsIterator{rows: rows}, nil
}

type rowsIterator struct {
	rows *sql.Rows
}

func (it *rowsIterator) Next() (KV, bool, error) {
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			return KV{}, false, err
		}
		return KV{}, false, nil
	}
	var kv KV
	if err := it.rows.Scan(&kv.Key, &kv.Value); err != nil {
		return KV{}, false, err
	}
	return kv, true, nil
}

func (it *rowsIterator) Close() error {
	return it.rows.Close()
}
