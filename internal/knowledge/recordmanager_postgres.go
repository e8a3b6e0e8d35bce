package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	errx "github.com/docbook-core-poc-v1/server/internal/core/error"
)

// upsertionRecord is one indexed document hash.
type upsertionRecord struct {
	UUID      string    `gorm:"column:uuid;primaryKey"`
	Key       string    `gorm:"column:key;not null;uniqueIndex:uix_key_namespace"`
	Namespace string    `gorm:"column:namespace;not null;uniqueIndex:uix_key_namespace;index"`
	GroupID   string    `gorm:"column:group_id;index"`
	SeenAt    time.Time `gorm:"column:updated_at;index"`
}

func (upsertionRecord) TableName() string { return "upsertion_record" }

// PostgresRecordManager stores records in Postgres through gorm, scoped to a
// namespace so several collections can share the table.
type PostgresRecordManager struct {
	db        *gorm.DB
	namespace string
}

func NewPostgresRecordManager(db *gorm.DB, namespace string) (*PostgresRecordManager, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db is nil")
	}
	if namespace == "" {
		return nil, fmt.Errorf("record manager namespace cannot be empty")
	}
	return &PostgresRecordManager{db: db, namespace: namespace}, nil
}

func (p *PostgresRecordManager) CreateSchema(ctx context.Context) error {
	if err := p.db.WithContext(ctx).AutoMigrate(&upsertionRecord{}); err != nil {
		return errx.WrapPostgres(fmt.Errorf("migrate upsertion_record: %w", err))
	}
	return nil
}

func (p *PostgresRecordManager) Exists(ctx context.Context, keys []string) ([]bool, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var found []string
	err := p.db.WithContext(ctx).
		Model(&upsertionRecord{}).
		Where("namespace = ? AND key IN ?", p.namespace, keys).
		Pluck("key", &found).Error
	if err != nil {
		return nil, errx.WrapPostgres(fmt.Errorf("lookup records: %w", err))
	}

	set := make(map[string]struct{}, len(found))
	for _, k := range found {
		set[k] = struct{}{}
	}
	out := make([]bool, len(keys))
	for i, k := range keys {
		_, out[i] = set[k]
	}
	return out, nil
}

func (p *PostgresRecordManager) Update(ctx context.Context, keys, groupIDs []string, at time.Time) error {
	if err := checkGroups(keys, groupIDs); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	rows := make([]upsertionRecord, len(keys))
	for i, k := range keys {
		rows[i] = upsertionRecord{
			UUID:      uuid.NewString(),
			Key:       k,
			Namespace: p.namespace,
			GroupID:   groupIDs[i],
			SeenAt:    at.UTC(),
		}
	}

	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}, {Name: "namespace"}},
		DoUpdates: clause.AssignmentColumns([]string{"group_id", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return errx.WrapPostgres(fmt.Errorf("upsert %d records: %w", len(rows), err))
	}
	return nil
}

func (p *PostgresRecordManager) ListKeys(ctx context.Context, groupIDs []string, before time.Time) ([]string, error) {
	q := p.db.WithContext(ctx).
		Model(&upsertionRecord{}).
		Where("namespace = ? AND updated_at < ?", p.namespace, before.UTC())
	if len(groupIDs) > 0 {
		q = q.Where("group_id IN ?", groupIDs)
	}

	var keys []string
	if err := q.Pluck("key", &keys).Error; err != nil {
		return nil, errx.WrapPostgres(fmt.Errorf("list records: %w", err))
	}
	return keys, nil
}

func (p *PostgresRecordManager) DeleteKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	err := p.db.WithContext(ctx).
		Where("namespace = ? AND key IN ?", p.namespace, keys).
		Delete(&upsertionRecord{}).Error
	if err != nil {
		return errx.WrapPostgres(fmt.Errorf("delete records: %w", err))
	}
	return nil
}

func checkGroups(keys, groupIDs []string) error {
	if len(keys) != len(groupIDs) {
		return fmt.Errorf("got %d keys but %d group ids", len(keys), len(groupIDs))
	}
	return nil
}
