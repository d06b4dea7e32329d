package firestore

import (
	"time"

	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/repository/codec"
)

type referenceDoc struct {
	Company        string `firestore:"company"`
	System         string `firestore:"system"`
	SystemInstance string `firestore:"system_instance"`
	Type           string `firestore:"type"`
	Value          string `firestore:"value"`
}

type attachmentDoc struct {
	ID                     string       `firestore:"id"`
	ClassificationID       string       `firestore:"classification_id"`
	ClassificationKey      string       `firestore:"classification_key"`
	ClassificationCategory string       `firestore:"classification_category"`
	ClassificationPriority int          `firestore:"classification_priority"`
	ObjectReference        referenceDoc `firestore:"object_reference"`
	Channel                string       `firestore:"channel"`
	Received               *time.Time   `firestore:"received"`
}

// taskDoc is the stored shape of a task. The custom attribute map is kept
// as the codec blob so that it is stored the same way in every backend.
type taskDoc struct {
	ID        string     `firestore:"id"`
	Created   time.Time  `firestore:"created"`
	Modified  time.Time  `firestore:"modified"`
	Claimed   *time.Time `firestore:"claimed"`
	Completed *time.Time `firestore:"completed"`
	Planned   *time.Time `firestore:"planned"`
	Due       *time.Time `firestore:"due"`
	Received  *time.Time `firestore:"received"`

	Name              string `firestore:"name"`
	Description       string `firestore:"description"`
	Note              string `firestore:"note"`
	Creator           string `firestore:"creator"`
	BusinessProcessID string `firestore:"business_process_id"`

	ClassificationID       string `firestore:"classification_id"`
	ClassificationKey      string `firestore:"classification_key"`
	ClassificationCategory string `firestore:"classification_category"`
	ClassificationPriority int    `firestore:"classification_priority"`

	WorkbasketID     string `firestore:"workbasket_id"`
	WorkbasketKey    string `firestore:"workbasket_key"`
	WorkbasketDomain string `firestore:"domain"`

	Owner          string `firestore:"owner"`
	State          string `firestore:"state"`
	Priority       int    `firestore:"priority"`
	ManualPriority int    `firestore:"manual_priority"`

	PrimaryObjectReference    referenceDoc   `firestore:"por"`
	SecondaryObjectReferences []referenceDoc `firestore:"sor"`

	Customs          []*string         `firestore:"customs"`
	CustomAttributes string            `firestore:"custom_attributes"`
	CallbackInfo     map[string]string `firestore:"callback_info"`

	IsRead        bool `firestore:"is_read"`
	IsTransferred bool `firestore:"is_transferred"`

	Attachments []attachmentDoc `firestore:"attachments"`
}

func toReferenceDoc(r model.ObjectReference) referenceDoc {
	return referenceDoc{Company: r.Company, System: r.System, SystemInstance: r.SystemInstance, Type: r.Type, Value: r.Value}
}

func (d referenceDoc) model() model.ObjectReference {
	return model.ObjectReference{Company: d.Company, System: d.System, SystemInstance: d.SystemInstance, Type: d.Type, Value: d.Value}
}

func toTaskDoc(t *model.Task) (*taskDoc, error) {
	blob, err := codec.Encode(t.CustomAttributes)
	if err != nil {
		return nil, err
	}

	c := t.Clone()
	d := &taskDoc{
		ID:                     c.ID,
		Created:                c.Created,
		Modified:               c.Modified,
		Claimed:                c.Claimed,
		Completed:              c.Completed,
		Planned:                c.Planned,
		Due:                    c.Due,
		Received:               c.Received,
		Name:                   c.Name,
		Description:            c.Description,
		Note:                   c.Note,
		Creator:                c.Creator,
		BusinessProcessID:      c.BusinessProcessID,
		ClassificationID:       c.Classification.ID,
		ClassificationKey:      c.Classification.Key,
		ClassificationCategory: c.Classification.Category,
		ClassificationPriority: c.Classification.Priority,
		WorkbasketID:           c.Workbasket.ID,
		WorkbasketKey:          c.Workbasket.Key,
		WorkbasketDomain:       c.Workbasket.Domain,
		Owner:                  c.Owner,
		State:                  c.State.String(),
		Priority:               c.Priority,
		ManualPriority:         c.ManualPriority,
		PrimaryObjectReference: toReferenceDoc(c.PrimaryObjectReference),
		Customs:                c.Customs[:],
		CustomAttributes:       blob,
		CallbackInfo:           c.CallbackInfo,
		IsRead:                 c.IsRead,
		IsTransferred:          c.IsTransferred,
	}
	for _, ref := range c.SecondaryObjectReferences {
		d.SecondaryObjectReferences = append(d.SecondaryObjectReferences, toReferenceDoc(ref))
	}
	for _, a := range c.Attachments {
		d.Attachments = append(d.Attachments, attachmentDoc{
			ID:                     a.ID,
			ClassificationID:       a.Classification.ID,
			ClassificationKey:      a.Classification.Key,
			ClassificationCategory: a.Classification.Category,
			ClassificationPriority: a.Classification.Priority,
			ObjectReference:        toReferenceDoc(a.ObjectReference),
			Channel:                a.Channel,
			Received:               a.Received,
		})
	}
	return d, nil
}

func (d *taskDoc) model() (*model.Task, error) {
	attrs, err := codec.Decode(d.CustomAttributes)
	if err != nil {
		return nil, err
	}

	t := &model.Task{
		ID:                d.ID,
		Created:           d.Created,
		Modified:          d.Modified,
		Claimed:           d.Claimed,
		Completed:         d.Completed,
		Planned:           d.Planned,
		Due:               d.Due,
		Received:          d.Received,
		Name:              d.Name,
		Description:       d.Description,
		Note:              d.Note,
		Creator:           d.Creator,
		BusinessProcessID: d.BusinessProcessID,
		Classification: model.ClassificationSummary{
			ID:       d.ClassificationID,
			Key:      d.ClassificationKey,
			Category: d.ClassificationCategory,
			Priority: d.ClassificationPriority,
		},
		Workbasket: model.WorkbasketSummary{
			ID:     d.WorkbasketID,
			Key:    d.WorkbasketKey,
			Domain: d.WorkbasketDomain,
		},
		Owner:                  d.Owner,
		State:                  types.TaskState(d.State),
		Priority:               d.Priority,
		ManualPriority:         d.ManualPriority,
		PrimaryObjectReference: d.PrimaryObjectReference.model(),
		CustomAttributes:       attrs,
		CallbackInfo:           d.CallbackInfo,
		IsRead:                 d.IsRead,
		IsTransferred:          d.IsTransferred,
	}
	for i, v := range d.Customs {
		if i < model.CustomSlotCount {
			t.Customs[i] = v
		}
	}
	for _, ref := range d.SecondaryObjectReferences {
		t.SecondaryObjectReferences = append(t.SecondaryObjectReferences, ref.model())
	}
	for _, a := range d.Attachments {
		t.Attachments = append(t.Attachments, model.Attachment{
			ID: a.ID,
			Classification: model.ClassificationSummary{
				ID:       a.ClassificationID,
				Key:      a.ClassificationKey,
				Category: a.ClassificationCategory,
				Priority: a.ClassificationPriority,
			},
			ObjectReference: a.ObjectReference.model(),
			Channel:         a.Channel,
			Received:        a.Received,
		})
	}
	return t, nil
}
