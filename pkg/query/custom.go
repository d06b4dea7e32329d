package query

import (
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
)

const customSlotCount = model.CustomSlotCount

// CustomField names a custom attribute of a task: either one of the sixteen
// fixed slots or a key of the free-form attribute map.
type CustomField struct {
	slot int
	key  string
}

// Slot refers to fixed custom slot n (1..16)
func Slot(n int) CustomField {
	return CustomField{slot: n}
}

// MapKey refers to a key of the custom attribute map
func MapKey(key string) CustomField {
	return CustomField{key: key}
}

var (
	Custom1  = Slot(1)
	Custom2  = Slot(2)
	Custom3  = Slot(3)
	Custom4  = Slot(4)
	Custom5  = Slot(5)
	Custom6  = Slot(6)
	Custom7  = Slot(7)
	Custom8  = Slot(8)
	Custom9  = Slot(9)
	Custom10 = Slot(10)
	Custom11 = Slot(11)
	Custom12 = Slot(12)
	Custom13 = Slot(13)
	Custom14 = Slot(14)
	Custom15 = Slot(15)
	Custom16 = Slot(16)
)

// IsMapKey reports whether the field targets the attribute map
func (f CustomField) IsMapKey() bool {
	return f.slot == 0 && f.key != ""
}

func (f CustomField) String() string {
	if f.IsMapKey() {
		return "CUSTOM_ATTRIBUTES[" + f.key + "]"
	}
	return customSlotPrefix + strconv.Itoa(f.slot)
}

// ResolveCustomField maps a logical custom field to the column holding it.
// For map keys the column is ColumnCustomAttributes and the key is returned.
func ResolveCustomField(f CustomField) (Column, string, error) {
	if f.IsMapKey() {
		return ColumnCustomAttributes, f.key, nil
	}
	if f.slot < 1 || f.slot > customSlotCount {
		return "", "", goerr.Wrap(model.ErrInvalidArgument, "custom slot out of range",
			goerr.V("slot", f.slot), goerr.V("max", customSlotCount))
	}
	return Column(customSlotPrefix + strconv.Itoa(f.slot)), "", nil
}

func invalidSortOnMap(f CustomField) error {
	return goerr.Wrap(model.ErrInvalidArgument, "custom attribute map is not sortable", goerr.V("field", f.String()))
}
