package mapper

import (
	"github.com/rcliao/firerecord/internal/model"
	"github.com/rcliao/firerecord/internal/schema"
)

// Materialize builds a record from a canonical field map. Relation defaults
// are filled first, then every value is reshaped, then assigned; reshaping
// therefore always sees a defaulted has-many value, never a missing one.
func Materialize(m *schema.Model, canonical map[string]any) *model.Record {
	merged := m.DefaultFields(canonical)
	for k, v := range canonical {
		merged[k] = v
	}

	rec := model.NewRecord(m)
	for k, v := range merged {
		rec.Set(k, m.ReshapeRelationValue(k, v))
	}
	return rec
}
