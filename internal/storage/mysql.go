package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"career-copilot-go/internal/config"
	"career-copilot-go/internal/storage/models"
	"career-copilot-go/internal/types"
)

var mysqlTracer = otel.Tracer("career-copilot-go/storage/mysql")

// Document registry errors.
var (
	// ErrDuplicateDocument is returned when a document id is already
	// registered. Re-ingesting never silently overwrites.
	ErrDuplicateDocument = errors.New("storage: document id already exists")
	// ErrDocumentNotFound is returned for lookups of unknown ids.
	ErrDocumentNotFound = errors.New("storage: document not found")
)

// MySQL is the relational document registry.
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL connects to MySQL, migrates the schema and returns the
// registry.
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mysql config cannot be nil")
	}

	gormConfig := &gorm.Config{
		Logger:      gormlogger.Default.LogMode(gormlogger.Warn),
		PrepareStmt: true,
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)

	if err := db.AutoMigrate(&models.DocumentRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate document schema: %w", err)
	}

	return &MySQL{db: db, cfg: cfg}, nil
}

// DB exposes the underlying gorm handle for health checks.
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close closes the connection pool.
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateDocument registers a new document. A duplicate id is an error,
// never an overwrite.
func (m *MySQL) CreateDocument(ctx context.Context, record *models.DocumentRecord) error {
	ctx, span := mysqlTracer.Start(ctx, "mysql.CreateDocument", trace.WithAttributes(
		attribute.String("document.id", record.ID),
		attribute.String("document.type", record.Type),
	))
	defer span.End()

	var existing int64
	if err := m.db.WithContext(ctx).Model(&models.DocumentRecord{}).
		Where("id = ?", record.ID).Count(&existing).Error; err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("check document existence: %w", err)
	}
	if existing > 0 {
		span.SetStatus(codes.Error, ErrDuplicateDocument.Error())
		return fmt.Errorf("document %s: %w", record.ID, ErrDuplicateDocument)
	}

	if err := m.db.WithContext(ctx).Create(record).Error; err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("create document %s: %w", record.ID, err)
	}
	return nil
}

// GetDocument loads a registered document by id.
func (m *MySQL) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error) {
	ctx, span := mysqlTracer.Start(ctx, "mysql.GetDocument", trace.WithAttributes(
		attribute.String("document.id", id),
	))
	defer span.End()

	var record models.DocumentRecord
	err := m.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document %s: %w", id, ErrDocumentNotFound)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return &record, nil
}

// DeleteDocument removes a document from the registry. Deleting an
// unknown id is an error so callers can report it.
func (m *MySQL) DeleteDocument(ctx context.Context, id string) error {
	ctx, span := mysqlTracer.Start(ctx, "mysql.DeleteDocument", trace.WithAttributes(
		attribute.String("document.id", id),
	))
	defer span.End()

	result := m.db.WithContext(ctx).Delete(&models.DocumentRecord{}, "id = ?", id)
	if result.Error != nil {
		span.SetStatus(codes.Error, result.Error.Error())
		return fmt.Errorf("delete document %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document %s: %w", id, ErrDocumentNotFound)
	}
	return nil
}

// CountDocuments returns how many documents of the given type are
// registered, feeding the adaptive funnel parameters.
func (m *MySQL) CountDocuments(ctx context.Context, docType types.DocumentType) (int, error) {
	ctx, span := mysqlTracer.Start(ctx, "mysql.CountDocuments", trace.WithAttributes(
		attribute.String("document.type", string(docType)),
	))
	defer span.End()

	var count int64
	err := m.db.WithContext(ctx).Model(&models.DocumentRecord{}).
		Where("type = ?", string(docType)).Count(&count).Error
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("count documents of type %s: %w", docType, err)
	}
	return int(count), nil
}

// ListDocuments returns registered documents of one type, newest first.
func (m *MySQL) ListDocuments(ctx context.Context, docType types.DocumentType, limit, offset int) ([]models.DocumentRecord, error) {
	ctx, span := mysqlTracer.Start(ctx, "mysql.ListDocuments", trace.WithAttributes(
		attribute.String("document.type", string(docType)),
	))
	defer span.End()

	query := m.db.WithContext(ctx).
		Where("type = ?", string(docType)).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var records []models.DocumentRecord
	if err := query.Find(&records).Error; err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("list documents of type %s: %w", docType, err)
	}
	return records, nil
}

// UpdateObjectKey records where a document's raw bytes were archived.
func (m *MySQL) UpdateObjectKey(ctx context.Context, id, key string) error {
	result := m.db.WithContext(ctx).Model(&models.DocumentRecord{}).
		Where("id = ?", id).Update("object_key", key)
	if result.Error != nil {
		return fmt.Errorf("update object key for %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document %s: %w", id, ErrDocumentNotFound)
	}
	return nil
}

// UpdateFragmentCount records how many fragments a document produced.
func (m *MySQL) UpdateFragmentCount(ctx context.Context, id string, count int) error {
	result := m.db.WithContext(ctx).Model(&models.DocumentRecord{}).
		Where("id = ?", id).Update("fragment_count", count)
	if result.Error != nil {
		return fmt.Errorf("update fragment count for %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document %s: %w", id, ErrDocumentNotFound)
	}
	return nil
}
