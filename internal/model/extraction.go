package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Clause is a single categorized provision identified in a contract.
// ClauseType is provider-assigned free text, not a closed enum.
type Clause struct {
	ClauseType string `json:"clause_type"`
	Content    string `json:"content"`
	PageNumber *int   `json:"page_number"`
}

// ExtractionMetadata describes one completed extraction run.
// ClauseCount always equals len(Extraction.Clauses); ExtractionTimestamp is
// set once when the provider call completes and never updated.
type ExtractionMetadata struct {
	PageCount           int       `json:"page_count"`
	ExtractionTimestamp time.Time `json:"extraction_timestamp"`
	ClauseCount         int       `json:"clause_count"`
}

// ClauseList stores the ordered clause sequence as a MySQL JSON column.
type ClauseList []Clause

func (l ClauseList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *ClauseList) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		if s, sok := src.(string); sok {
			b = []byte(s)
		} else {
			return fmt.Errorf("scan clause list: unexpected type %T", src)
		}
	}
	return json.Unmarshal(b, l)
}

// MetadataJSON stores ExtractionMetadata as a MySQL JSON column.
type MetadataJSON ExtractionMetadata

func (m MetadataJSON) Value() (driver.Value, error) {
	return json.Marshal(ExtractionMetadata(m))
}

func (m *MetadataJSON) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		if s, sok := src.(string); sok {
			b = []byte(s)
		} else {
			return fmt.Errorf("scan extraction metadata: unexpected type %T", src)
		}
	}
	return json.Unmarshal(b, (*ExtractionMetadata)(m))
}

func (m MetadataJSON) MarshalJSON() ([]byte, error) {
	return json.Marshal(ExtractionMetadata(m))
}

func (m *MetadataJSON) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, (*ExtractionMetadata)(m))
}

// Extraction is the persisted result of one contract extraction. Records are
// insert-only: never mutated and never deleted after creation.
type Extraction struct {
	ID         uint         `gorm:"primaryKey" json:"-"`
	DocumentID string       `gorm:"size:36;uniqueIndex;not null" json:"document_id"`
	Filename   string       `gorm:"size:256;not null" json:"filename"`
	Clauses    ClauseList   `gorm:"type:json;not null" json:"clauses"`
	Metadata   MetadataJSON `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time    `gorm:"index" json:"created_at"`
}

func (Extraction) TableName() string {
	return "extractions"
}
