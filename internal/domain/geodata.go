package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// GeoData полный ответ геолокационного провайдера, хранится как JSON без схемы
type GeoData map[string]any

// Value реализует driver.Valuer
func (g GeoData) Value() (driver.Value, error) {
	if g == nil {
		return nil, nil
	}
	b, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal geodata: %w", err)
	}
	return string(b), nil
}

// Scan реализует sql.Scanner
func (g *GeoData) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*g = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported geodata type %T", value)
	}

	if len(raw) == 0 || string(raw) == "null" {
		*g = nil
		return nil
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("failed to unmarshal geodata: %w", err)
	}
	*g = m
	return nil
}

// GormDBDataType выбирает тип колонки под диалект
func (GeoData) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "JSONB"
	default:
		return "JSON"
	}
}
