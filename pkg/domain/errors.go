package domain

import "fmt"

var entityLabels = map[EntityType]string{
	EntityClient:            "客戶",
	EntityProject:           "專案",
	EntitySamplingRecord:    "採樣記錄",
	EntityChemical:          "化學品",
	EntityInstrument:        "儀器",
	EntityCalibrationRecord: "校正記錄",
	EntityQCSampleRecord:    "品管樣本",
	EntityReport:            "報表",
}

// Label returns the display name of the entity type.
func (e EntityType) Label() string {
	if l, ok := entityLabels[e]; ok {
		return l
	}
	return string(e)
}

// ErrNotFound is returned when a referenced entity does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Notice returns the user-facing message for the missing entity.
func (e ErrNotFound) Notice() string {
	return "找不到" + e.Entity.Label() + "資料"
}
