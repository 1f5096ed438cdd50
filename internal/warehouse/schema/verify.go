package schema

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	gormschema "gorm.io/gorm/schema"
)

var ErrColumnMismatch = errors.New("column_mismatch")

var schemaCache sync.Map

// Verify checks that model's gorm columns equal the table's columns, in order,
// and that the table name and primary key agree.
func Verify(t Table, model any) error {
	s, err := gormschema.Parse(model, &schemaCache, gormschema.NamingStrategy{})
	if err != nil {
		return fmt.Errorf("parse %T: %w", model, err)
	}
	if s.Table != t.Name {
		return fmt.Errorf("%w: %T maps to table %q, want %q", ErrColumnMismatch, model, s.Table, t.Name)
	}

	want := t.ColumnNames()
	got := s.DBNames
	if len(got) != len(want) {
		return fmt.Errorf("%w: %s has %d columns [%s], row type %T has %d [%s]",
			ErrColumnMismatch, t.Name, len(want), strings.Join(want, ", "), model, len(got), strings.Join(got, ", "))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("%w: %s column %d is %q, row type %T has %q",
				ErrColumnMismatch, t.Name, i, want[i], model, got[i])
		}
	}

	if s.PrioritizedPrimaryField == nil || s.PrioritizedPrimaryField.DBName != t.PrimaryKey {
		return fmt.Errorf("%w: %s primary key must be %q", ErrColumnMismatch, t.Name, t.PrimaryKey)
	}
	return nil
}
