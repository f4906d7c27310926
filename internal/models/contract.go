package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Contract is an uploaded document template awaiting signatures
type Contract struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description *string        `gorm:"type:text" json:"description"`
	FilePath    string         `gorm:"not null" json:"file_path"`
	FileHash    string         `gorm:"size:64;not null;index" json:"file_hash"`
	Fields      datatypes.JSON `gorm:"type:jsonb" json:"fields" swaggertype:"array,object"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Contract
func (Contract) TableName() string {
	return "contracts"
}

// ContractField describes a fillable form field found in the uploaded PDF
type ContractField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// BeforeCreate assigns the identifier when the caller did not
func (c *Contract) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if len(c.Fields) == 0 {
		c.Fields = datatypes.JSON("[]")
	}
	return nil
}

// SetFields stores the extracted form fields, preserving their order
func (c *Contract) SetFields(fields []ContractField) error {
	if fields == nil {
		fields = []ContractField{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	c.Fields = datatypes.JSON(raw)
	return nil
}

// FieldList decodes the stored form fields
func (c *Contract) FieldList() []ContractField {
	fields := []ContractField{}
	if len(c.Fields) == 0 {
		return fields
	}
	if err := json.Unmarshal(c.Fields, &fields); err != nil {
		return []ContractField{}
	}
	return fields
}
