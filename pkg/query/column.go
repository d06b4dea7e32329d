package query

import (
	"strconv"
	"strings"
)

// Column is a logical, queryable attribute of a task. Backends map columns
// to their physical representation; only the custom attribute adapter
// creates custom slot columns.
type Column string

const (
	ColumnTaskID            Column = "TASK_ID"
	ColumnName              Column = "NAME"
	ColumnDescription       Column = "DESCRIPTION"
	ColumnNote              Column = "NOTE"
	ColumnCreator           Column = "CREATOR"
	ColumnBusinessProcessID Column = "BUSINESS_PROCESS_ID"
	ColumnState             Column = "STATE"
	ColumnOwner             Column = "OWNER"
	ColumnOwnerLongName     Column = "OWNER_LONG_NAME"
	ColumnPriority          Column = "PRIORITY"

	ColumnCreated   Column = "CREATED"
	ColumnModified  Column = "MODIFIED"
	ColumnClaimed   Column = "CLAIMED"
	ColumnCompleted Column = "COMPLETED"
	ColumnPlanned   Column = "PLANNED"
	ColumnDue       Column = "DUE"
	ColumnReceived  Column = "RECEIVED"

	ColumnClassificationID       Column = "CLASSIFICATION_ID"
	ColumnClassificationKey      Column = "CLASSIFICATION_KEY"
	ColumnClassificationCategory Column = "CLASSIFICATION_CATEGORY"
	ColumnClassificationName     Column = "CLASSIFICATION_NAME"

	ColumnWorkbasketID  Column = "WORKBASKET_ID"
	ColumnWorkbasketKey Column = "WORKBASKET_KEY"
	ColumnDomain        Column = "DOMAIN"

	ColumnPrimaryObjectReference Column = "POR"
	ColumnPorCompany             Column = "POR_COMPANY"
	ColumnPorSystem              Column = "POR_SYSTEM"
	ColumnPorSystemInstance      Column = "POR_INSTANCE"
	ColumnPorType                Column = "POR_TYPE"
	ColumnPorValue               Column = "POR_VALUE"

	ColumnSecondaryObjectReference Column = "SOR"
	ColumnSorType                  Column = "SOR_TYPE"
	ColumnSorValue                 Column = "SOR_VALUE"

	ColumnAttachmentChannel           Column = "A_CHANNEL"
	ColumnAttachmentClassificationKey Column = "A_CLASSIFICATION_KEY"

	ColumnIsRead        Column = "IS_READ"
	ColumnIsTransferred Column = "IS_TRANSFERRED"

	ColumnCustomAttributes Column = "CUSTOM_ATTRIBUTES"
)

const customSlotPrefix = "CUSTOM_"

// Kind is the operand type a column compares against
type Kind int

const (
	KindUnknown Kind = iota
	KindString
	KindInt
	KindTime
	KindBool
	KindReference
	KindBlob
)

// Join is related data a column lives in
type Join string

const (
	JoinNone                     Join = ""
	JoinClassification           Join = "CLASSIFICATION"
	JoinOwner                    Join = "OWNER"
	JoinAttachment               Join = "ATTACHMENT"
	JoinSecondaryObjectReference Join = "OBJECT_REFERENCE"
)

var columnKinds = map[Column]Kind{
	ColumnTaskID:            KindString,
	ColumnName:              KindString,
	ColumnDescription:       KindString,
	ColumnNote:              KindString,
	ColumnCreator:           KindString,
	ColumnBusinessProcessID: KindString,
	ColumnState:             KindString,
	ColumnOwner:             KindString,
	ColumnOwnerLongName:     KindString,
	ColumnPriority:          KindInt,

	ColumnCreated:   KindTime,
	ColumnModified:  KindTime,
	ColumnClaimed:   KindTime,
	ColumnCompleted: KindTime,
	ColumnPlanned:   KindTime,
	ColumnDue:       KindTime,
	ColumnReceived:  KindTime,

	ColumnClassificationID:       KindString,
	ColumnClassificationKey:      KindString,
	ColumnClassificationCategory: KindString,
	ColumnClassificationName:     KindString,

	ColumnWorkbasketID:  KindString,
	ColumnWorkbasketKey: KindString,
	ColumnDomain:        KindString,

	ColumnPrimaryObjectReference: KindReference,
	ColumnPorCompany:             KindString,
	ColumnPorSystem:              KindString,
	ColumnPorSystemInstance:      KindString,
	ColumnPorType:                KindString,
	ColumnPorValue:               KindString,

	ColumnSecondaryObjectReference: KindReference,
	ColumnSorType:                  KindString,
	ColumnSorValue:                 KindString,

	ColumnAttachmentChannel:           KindString,
	ColumnAttachmentClassificationKey: KindString,

	ColumnIsRead:        KindBool,
	ColumnIsTransferred: KindBool,

	ColumnCustomAttributes: KindBlob,
}

// Kind returns the operand type of the column
func (c Column) Kind() Kind {
	if _, ok := c.CustomSlot(); ok {
		return KindString
	}
	return columnKinds[c]
}

// IsValid reports whether the column is known
func (c Column) IsValid() bool {
	return c.Kind() != KindUnknown
}

// Join returns the related data the column requires
func (c Column) Join() Join {
	switch c {
	case ColumnClassificationName:
		return JoinClassification
	case ColumnOwnerLongName:
		return JoinOwner
	case ColumnAttachmentChannel, ColumnAttachmentClassificationKey:
		return JoinAttachment
	case ColumnSecondaryObjectReference, ColumnSorType, ColumnSorValue:
		return JoinSecondaryObjectReference
	default:
		return JoinNone
	}
}

// MultiValued reports whether a task can hold several values of the column
func (c Column) MultiValued() bool {
	j := c.Join()
	return j == JoinAttachment || j == JoinSecondaryObjectReference
}

// CustomSlot returns the slot number of a custom slot column
func (c Column) CustomSlot() (int, bool) {
	s, ok := strings.CutPrefix(string(c), customSlotPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > customSlotCount {
		return 0, false
	}
	return n, true
}

func (c Column) String() string {
	return string(c)
}
