package query

import (
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
)

func stringsFilter(col Column, op Op, values []string) Filter {
	return func(b *Builder) error {
		operands := make([]any, len(values))
		for i, v := range values {
			operands[i] = v
		}
		return b.Where(col, op, operands...)
	}
}

func timesFilter(col Column, op Op, intervals []TimeInterval) Filter {
	return func(b *Builder) error {
		operands := make([]any, len(intervals))
		for i, x := range intervals {
			operands[i] = x
		}
		return b.Where(col, op, operands...)
	}
}

// ColumnIn matches rows whose column equals any value; a nil value matches NULL
func ColumnIn(col Column, values ...*string) Filter {
	return func(b *Builder) error {
		return b.add(Predicate{Columns: []Column{col}, Op: OpIn, Strings: copyStrings(values)})
	}
}

// ColumnNotIn matches non-NULL rows whose column equals none of the values
func ColumnNotIn(col Column, values ...*string) Filter {
	return func(b *Builder) error {
		return b.add(Predicate{Columns: []Column{col}, Op: OpNotIn, Strings: copyStrings(values)})
	}
}

func ColumnLike(col Column, patterns ...string) Filter {
	return stringsFilter(col, OpLike, patterns)
}

func ColumnNotLike(col Column, patterns ...string) Filter {
	return stringsFilter(col, OpNotLike, patterns)
}

func TaskIDIn(ids ...string) Filter { return stringsFilter(ColumnTaskID, OpIn, ids) }
func TaskIDNotIn(ids ...string) Filter { return stringsFilter(ColumnTaskID, OpNotIn, ids) }

func NameIn(names ...string) Filter { return stringsFilter(ColumnName, OpIn, names) }
func NameLike(patterns ...string) Filter { return stringsFilter(ColumnName, OpLike, patterns) }
func NameNotLike(patterns ...string) Filter { return stringsFilter(ColumnName, OpNotLike, patterns) }
func DescriptionLike(patterns ...string) Filter {
	return stringsFilter(ColumnDescription, OpLike, patterns)
}
func NoteLike(patterns ...string) Filter { return stringsFilter(ColumnNote, OpLike, patterns) }
func CreatorIn(creators ...string) Filter { return stringsFilter(ColumnCreator, OpIn, creators) }
func CreatorLike(patterns ...string) Filter { return stringsFilter(ColumnCreator, OpLike, patterns) }
func BusinessProcessIDIn(ids ...string) Filter {
	return stringsFilter(ColumnBusinessProcessID, OpIn, ids)
}
func BusinessProcessIDLike(patterns ...string) Filter {
	return stringsFilter(ColumnBusinessProcessID, OpLike, patterns)
}

func stateOperands(states []types.TaskState) []any {
	operands := make([]any, len(states))
	for i, s := range states {
		operands[i] = s
	}
	return operands
}

func StateIn(states ...types.TaskState) Filter {
	return func(b *Builder) error {
		for _, s := range states {
			if !s.IsValid() {
				return invalidState(s)
			}
		}
		return b.Where(ColumnState, OpIn, stateOperands(states)...)
	}
}

func StateNotIn(states ...types.TaskState) Filter {
	return func(b *Builder) error {
		for _, s := range states {
			if !s.IsValid() {
				return invalidState(s)
			}
		}
		return b.Where(ColumnState, OpNotIn, stateOperands(states)...)
	}
}

// OwnerIn matches tasks owned by any of owners. An empty owner matches
// unclaimed tasks.
func OwnerIn(owners ...string) Filter {
	return func(b *Builder) error {
		values := make([]*string, len(owners))
		for i, o := range owners {
			if o != "" {
				values[i] = Str(o)
			}
		}
		return ColumnIn(ColumnOwner, values...)(b)
	}
}

func OwnerNotIn(owners ...string) Filter { return stringsFilter(ColumnOwner, OpNotIn, owners) }
func OwnerLike(patterns ...string) Filter {
	return stringsFilter(ColumnOwner, OpLike, patterns)
}
func OwnerLongNameLike(patterns ...string) Filter {
	return stringsFilter(ColumnOwnerLongName, OpLike, patterns)
}

func PriorityIn(priorities ...int) Filter {
	return func(b *Builder) error {
		operands := make([]any, len(priorities))
		for i, p := range priorities {
			operands[i] = p
		}
		return b.Where(ColumnPriority, OpIn, operands...)
	}
}

func PriorityWithin(ranges ...IntInterval) Filter {
	return func(b *Builder) error {
		operands := make([]any, len(ranges))
		for i, r := range ranges {
			operands[i] = r
		}
		return b.Where(ColumnPriority, OpWithin, operands...)
	}
}

func TimeWithin(col Column, intervals ...TimeInterval) Filter {
	return timesFilter(col, OpWithin, intervals)
}
func TimeNotWithin(col Column, intervals ...TimeInterval) Filter {
	return timesFilter(col, OpNotWithin, intervals)
}
func CreatedWithin(intervals ...TimeInterval) Filter {
	return timesFilter(ColumnCreated, OpWithin, intervals)
}
func ModifiedWithin(intervals ...TimeInterval) Filter {
	return timesFilter(ColumnModified, OpWithin, intervals)
}
func ClaimedWithin(intervals ...TimeInterval) Filter {
	return timesFilter(ColumnClaimed, OpWithin, intervals)
}
func CompletedWithin(intervals ...TimeInterval) Filter {
	return timesFilter(ColumnCompleted, OpWithin, intervals)
}
func PlannedWithin(intervals ...TimeInterval) Filter {
	return timesFilter(ColumnPlanned, OpWithin, intervals)
}
func DueWithin(intervals ...TimeInterval) Filter {
	return timesFilter(ColumnDue, OpWithin, intervals)
}
func DueNotWithin(intervals ...TimeInterval) Filter {
	return timesFilter(ColumnDue, OpNotWithin, intervals)
}
func ReceivedWithin(intervals ...TimeInterval) Filter {
	return timesFilter(ColumnReceived, OpWithin, intervals)
}

func ClassificationIDIn(ids ...string) Filter {
	return stringsFilter(ColumnClassificationID, OpIn, ids)
}
func ClassificationKeyIn(keys ...string) Filter {
	return stringsFilter(ColumnClassificationKey, OpIn, keys)
}
func ClassificationKeyNotIn(keys ...string) Filter {
	return stringsFilter(ColumnClassificationKey, OpNotIn, keys)
}
func ClassificationKeyLike(patterns ...string) Filter {
	return stringsFilter(ColumnClassificationKey, OpLike, patterns)
}
func ClassificationCategoryIn(categories ...string) Filter {
	return stringsFilter(ColumnClassificationCategory, OpIn, categories)
}
func ClassificationCategoryLike(patterns ...string) Filter {
	return stringsFilter(ColumnClassificationCategory, OpLike, patterns)
}
func ClassificationNameIn(names ...string) Filter {
	return stringsFilter(ColumnClassificationName, OpIn, names)
}
func ClassificationNameLike(patterns ...string) Filter {
	return stringsFilter(ColumnClassificationName, OpLike, patterns)
}

func WorkbasketIDIn(ids ...string) Filter { return stringsFilter(ColumnWorkbasketID, OpIn, ids) }
func WorkbasketKeyIn(keys ...string) Filter {
	return stringsFilter(ColumnWorkbasketKey, OpIn, keys)
}
func DomainIn(domains ...string) Filter { return stringsFilter(ColumnDomain, OpIn, domains) }

// PrimaryObjectReferenceIn matches tasks whose primary object reference
// equals any of refs
func PrimaryObjectReferenceIn(refs ...model.ObjectReference) Filter {
	return func(b *Builder) error {
		operands := make([]any, len(refs))
		for i, r := range refs {
			operands[i] = r
		}
		return b.Where(ColumnPrimaryObjectReference, OpIn, operands...)
	}
}

// SecondaryObjectReferenceIn matches tasks holding a secondary object
// reference equal to any of refs
func SecondaryObjectReferenceIn(refs ...model.ObjectReference) Filter {
	return func(b *Builder) error {
		operands := make([]any, len(refs))
		for i, r := range refs {
			operands[i] = r
		}
		return b.Where(ColumnSecondaryObjectReference, OpIn, operands...)
	}
}

func PorCompanyIn(values ...string) Filter { return stringsFilter(ColumnPorCompany, OpIn, values) }
func PorSystemIn(values ...string) Filter { return stringsFilter(ColumnPorSystem, OpIn, values) }
func PorTypeIn(values ...string) Filter { return stringsFilter(ColumnPorType, OpIn, values) }
func PorValueIn(values ...string) Filter { return stringsFilter(ColumnPorValue, OpIn, values) }
func PorValueLike(patterns ...string) Filter { return stringsFilter(ColumnPorValue, OpLike, patterns) }
func PorSystemInstanceIn(values ...string) Filter {
	return stringsFilter(ColumnPorSystemInstance, OpIn, values)
}

func SecondaryObjectReferenceTypeIn(sorTypes ...string) Filter {
	return stringsFilter(ColumnSorType, OpIn, sorTypes)
}
func SecondaryObjectReferenceValueIn(values ...string) Filter {
	return stringsFilter(ColumnSorValue, OpIn, values)
}
func SecondaryObjectReferenceValueLike(patterns ...string) Filter {
	return stringsFilter(ColumnSorValue, OpLike, patterns)
}

func AttachmentChannelIn(channels ...string) Filter {
	return stringsFilter(ColumnAttachmentChannel, OpIn, channels)
}
func AttachmentChannelLike(patterns ...string) Filter {
	return stringsFilter(ColumnAttachmentChannel, OpLike, patterns)
}
func AttachmentClassificationKeyIn(keys ...string) Filter {
	return stringsFilter(ColumnAttachmentClassificationKey, OpIn, keys)
}

func IsRead(read bool) Filter {
	return func(b *Builder) error { return b.Where(ColumnIsRead, OpIn, read) }
}

func IsTransferred(transferred bool) Filter {
	return func(b *Builder) error { return b.Where(ColumnIsTransferred, OpIn, transferred) }
}

// CustomIn matches a custom slot equal to any value. A nil value matches
// NULL and "" matches the empty string.
func CustomIn(field CustomField, values ...*string) Filter {
	return func(b *Builder) error { return b.WhereCustom(field, OpIn, values...) }
}

func CustomNotIn(field CustomField, values ...*string) Filter {
	return func(b *Builder) error { return b.WhereCustom(field, OpNotIn, values...) }
}

func CustomLike(field CustomField, patterns ...string) Filter {
	return func(b *Builder) error { return b.WhereCustom(field, OpLike, stringPtrs(patterns)...) }
}

func CustomNotLike(field CustomField, patterns ...string) Filter {
	return func(b *Builder) error { return b.WhereCustom(field, OpNotLike, stringPtrs(patterns)...) }
}

// CustomAttributeLike searches values of the custom attribute map
func CustomAttributeLike(key string, patterns ...string) Filter {
	return CustomLike(MapKey(key), patterns...)
}

func WildcardSearch(pattern string, columns ...Column) Filter {
	return func(b *Builder) error { return b.WildcardSearch(pattern, columns...) }
}

func OrderBy(col Column, dir types.SortDirection) Filter {
	return func(b *Builder) error { return b.OrderBy(col, dir) }
}

// OrderByCustom sorts by a custom slot
func OrderByCustom(field CustomField, dir types.SortDirection) Filter {
	return func(b *Builder) error {
		col, key, err := ResolveCustomField(field)
		if err != nil {
			return err
		}
		if key != "" {
			return invalidSortOnMap(field)
		}
		return b.OrderBy(col, dir)
	}
}

func GroupBy(key GroupKey) Filter {
	return func(b *Builder) error { return b.GroupBy(key) }
}

func RequirePermission(perms ...types.Permission) Filter {
	return func(b *Builder) error { return b.RequirePermission(perms...) }
}

func stringPtrs(values []string) []*string {
	out := make([]*string, len(values))
	for i := range values {
		out[i] = &values[i]
	}
	return out
}
