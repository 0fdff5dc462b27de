// Package models defines the relational schema of the document
// registry.
package models

import (
	"time"

	"gorm.io/datatypes"
)

// DocumentRecord is one registered résumé or job description. RawText
// is the immutable ingested text; StructuredFields holds the extraction
// output so re-chunking does not need another LLM call.
type DocumentRecord struct {
	ID               string         `gorm:"type:varchar(191);primaryKey"`
	Type             string         `gorm:"type:varchar(32);not null;index:idx_documents_type"`
	RawText          string         `gorm:"type:mediumtext;not null"`
	StructuredFields datatypes.JSON `gorm:"type:json"`
	FragmentCount    int            `gorm:"not null;default:0"`
	ObjectKey        string         `gorm:"type:varchar(512)"` // raw bytes location in object storage, empty when text-only
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

// TableName maps the record to the documents table.
func (DocumentRecord) TableName() string {
	return "documents"
}
