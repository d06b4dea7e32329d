package config

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/interfaces"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Seed holds the CLI flag of the seed data file
type Seed struct {
	path string
}

func (s *Seed) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "seed",
			Usage:       "TOML file with classifications, workbaskets, users and tasks loaded at startup",
			Sources:     cli.EnvVars("TASKBASKET_SEED"),
			Destination: &s.path,
		},
	}
}

// Configure loads the seed file, if any, into repo
func (s *Seed) Configure(ctx context.Context, repo interfaces.Repository) error {
	if s.path == "" {
		return nil
	}
	data, err := LoadSeed(s.path)
	if err != nil {
		return err
	}
	if err := data.Apply(ctx, repo, time.Now()); err != nil {
		return goerr.Wrap(err, "failed to apply seed data", goerr.V(SeedPathKey, s.path))
	}
	logging.Default().Info("Seed data loaded",
		"path", s.path,
		"classifications", len(data.Classifications),
		"workbaskets", len(data.Workbaskets),
		"users", len(data.Users),
		"tasks", len(data.Tasks),
	)
	return nil
}

// SeedData is the content of a seed file
type SeedData struct {
	Classifications []SeedClassification `toml:"classification"`
	Workbaskets     []SeedWorkbasket     `toml:"workbasket"`
	Users           []SeedUser           `toml:"user"`
	Tasks           []SeedTask           `toml:"task"`
}

type SeedClassification struct {
	ID       string `toml:"id"`
	Key      string `toml:"key"`
	Domain   string `toml:"domain"`
	Name     string `toml:"name"`
	Category string `toml:"category"`
	Type     string `toml:"type"`
	Priority int    `toml:"priority"`
}

type SeedAccess struct {
	AccessID    string   `toml:"access_id"`
	AccessName  string   `toml:"access_name"`
	Permissions []string `toml:"permissions"`
}

type SeedWorkbasket struct {
	ID          string       `toml:"id"`
	Key         string       `toml:"key"`
	Domain      string       `toml:"domain"`
	Name        string       `toml:"name"`
	Description string       `toml:"description"`
	Owner       string       `toml:"owner"`
	Access      []SeedAccess `toml:"access"`
}

type SeedUser struct {
	ID        string `toml:"id"`
	FirstName string `toml:"first_name"`
	LastName  string `toml:"last_name"`
	LongName  string `toml:"long_name"`
}

type SeedReference struct {
	Company        string `toml:"company"`
	System         string `toml:"system"`
	SystemInstance string `toml:"system_instance"`
	Type           string `toml:"type"`
	Value          string `toml:"value"`
}

func (r SeedReference) toModel() model.ObjectReference {
	return model.ObjectReference{
		Company:        r.Company,
		System:         r.System,
		SystemInstance: r.SystemInstance,
		Type:           r.Type,
		Value:          r.Value,
	}
}

type SeedAttachment struct {
	Channel           string        `toml:"channel"`
	ClassificationKey string        `toml:"classification_key"`
	Reference         SeedReference `toml:"reference"`
}

type SeedTask struct {
	ID                string     `toml:"id"`
	WorkbasketKey     string     `toml:"workbasket_key"`
	Domain            string     `toml:"domain"`
	ClassificationKey string     `toml:"classification_key"`
	Name              string     `toml:"name"`
	Description       string     `toml:"description"`
	Note              string     `toml:"note"`
	Creator           string     `toml:"creator"`
	Owner             string     `toml:"owner"`
	State             string     `toml:"state"`
	BusinessProcessID string     `toml:"business_process_id"`
	Created           *time.Time `toml:"created"`
	Planned           *time.Time `toml:"planned"`
	Due               *time.Time `toml:"due"`
	Received          *time.Time `toml:"received"`
	ManualPriority    *int       `toml:"manual_priority"`
	Read              bool       `toml:"read"`

	// Custom maps slot numbers "1".."16" to values
	Custom           map[string]string `toml:"custom"`
	CustomAttributes map[string]string `toml:"custom_attributes"`

	PrimaryReference    SeedReference    `toml:"por"`
	SecondaryReferences []SeedReference  `toml:"sor"`
	Attachments         []SeedAttachment `toml:"attachment"`
}

// Validate checks the references inside the seed file
func (d *SeedData) Validate() error {
	classes := make(map[string]bool)
	for i, c := range d.Classifications {
		if c.Key == "" || c.Domain == "" {
			return goerr.Wrap(ErrInvalidSeed, "classification key and domain are required", goerr.V(IndexKey, i))
		}
		k := c.Domain + "/" + c.Key
		if classes[k] {
			return goerr.Wrap(ErrInvalidSeed, "duplicate classification", goerr.V("key", c.Key), goerr.V("domain", c.Domain))
		}
		classes[k] = true
	}

	baskets := make(map[string]string)
	for i, wb := range d.Workbaskets {
		if wb.Key == "" || wb.Domain == "" {
			return goerr.Wrap(ErrInvalidSeed, "workbasket key and domain are required", goerr.V(IndexKey, i))
		}
		if _, ok := baskets[wb.Key]; ok {
			return goerr.Wrap(ErrInvalidSeed, "duplicate workbasket key", goerr.V("key", wb.Key))
		}
		baskets[wb.Key] = wb.Domain
		for _, a := range wb.Access {
			for _, p := range a.Permissions {
				if _, err := types.ParsePermission(p); err != nil {
					return goerr.Wrap(ErrInvalidSeed, "invalid permission",
						goerr.V("key", wb.Key), goerr.V(model.PermissionKey, p))
				}
			}
		}
	}

	for i, u := range d.Users {
		if u.ID == "" {
			return goerr.Wrap(ErrInvalidSeed, "user id is required", goerr.V(IndexKey, i))
		}
	}

	for i, t := range d.Tasks {
		domain, ok := baskets[t.WorkbasketKey]
		if !ok {
			return goerr.Wrap(ErrInvalidSeed, "task refers to unknown workbasket",
				goerr.V(IndexKey, i), goerr.V("workbasket_key", t.WorkbasketKey))
		}
		if !classes[domain+"/"+t.ClassificationKey] {
			return goerr.Wrap(ErrInvalidSeed, "task refers to unknown classification",
				goerr.V(IndexKey, i), goerr.V("classification_key", t.ClassificationKey))
		}
		if t.State != "" {
			if _, err := types.ParseTaskState(t.State); err != nil {
				return goerr.Wrap(ErrInvalidSeed, "invalid task state", goerr.V(IndexKey, i), goerr.V("state", t.State))
			}
		}
		for slot := range t.Custom {
			n, err := strconv.Atoi(slot)
			if err != nil || n < 1 || n > model.CustomSlotCount {
				return goerr.Wrap(ErrInvalidSeed, "invalid custom slot", goerr.V(IndexKey, i), goerr.V("slot", slot))
			}
		}
	}
	return nil
}

// LoadSeed reads and validates a seed file
func LoadSeed(path string) (*SeedData, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read seed file", goerr.V(SeedPathKey, path))
	}

	var data SeedData
	if err := toml.Unmarshal(raw, &data); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML seed", goerr.V(SeedPathKey, path))
	}
	if err := data.Validate(); err != nil {
		return nil, goerr.Wrap(err, "seed validation failed", goerr.V(SeedPathKey, path))
	}
	return &data, nil
}

func orNewID(id, prefix string) string {
	if id != "" {
		return id
	}
	return prefix + uuid.NewString()
}

// Apply stores the seed data. Timestamps not given in the file default to now.
func (d *SeedData) Apply(ctx context.Context, repo interfaces.Repository, now time.Time) error {
	now = now.UTC().Truncate(time.Microsecond)

	classes := make(map[string]*model.Classification)
	for _, c := range d.Classifications {
		class := &model.Classification{
			ID:       orNewID(c.ID, "CLI:"),
			Key:      c.Key,
			Domain:   c.Domain,
			Name:     c.Name,
			Category: c.Category,
			Type:     c.Type,
			Priority: c.Priority,
		}
		if err := repo.Classification().Create(ctx, class); err != nil {
			return goerr.Wrap(err, "failed to create classification", goerr.V("key", c.Key))
		}
		classes[c.Domain+"/"+c.Key] = class
	}

	baskets := make(map[string]*model.Workbasket)
	for _, w := range d.Workbaskets {
		wb := &model.Workbasket{
			ID:          orNewID(w.ID, "WBI:"),
			Key:         w.Key,
			Domain:      w.Domain,
			Name:        w.Name,
			Description: w.Description,
			Owner:       w.Owner,
			Created:     now,
			Modified:    now,
		}
		if err := repo.Workbasket().Create(ctx, wb); err != nil {
			return goerr.Wrap(err, "failed to create workbasket", goerr.V("key", w.Key))
		}
		baskets[w.Key] = wb

		for _, a := range w.Access {
			perms := make([]types.Permission, 0, len(a.Permissions))
			for _, p := range a.Permissions {
				perm, err := types.ParsePermission(p)
				if err != nil {
					return goerr.Wrap(ErrInvalidSeed, "invalid permission", goerr.V(model.PermissionKey, p))
				}
				perms = append(perms, perm)
			}
			if err := repo.Workbasket().PutAccessItem(ctx, &model.WorkbasketAccessItem{
				WorkbasketID: wb.ID,
				AccessID:     a.AccessID,
				AccessName:   a.AccessName,
				Permissions:  types.NewPermissionSet(perms...),
			}); err != nil {
				return goerr.Wrap(err, "failed to put access item", goerr.V("key", w.Key), goerr.V("access_id", a.AccessID))
			}
		}
	}

	for _, u := range d.Users {
		if err := repo.User().Put(ctx, &model.User{
			ID:        u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			LongName:  u.LongName,
		}); err != nil {
			return goerr.Wrap(err, "failed to put user", goerr.V("user_id", u.ID))
		}
	}

	for i, st := range d.Tasks {
		task, err := st.toModel(baskets, classes, now)
		if err != nil {
			return goerr.Wrap(err, "invalid seed task", goerr.V(IndexKey, i))
		}
		if err := repo.Task().Create(ctx, task); err != nil {
			return goerr.Wrap(err, "failed to create task", goerr.V(model.TaskIDKey, task.ID))
		}
	}
	return nil
}

func (st *SeedTask) toModel(baskets map[string]*model.Workbasket, classes map[string]*model.Classification, now time.Time) (*model.Task, error) {
	wb, ok := baskets[st.WorkbasketKey]
	if !ok {
		return nil, goerr.Wrap(ErrInvalidSeed, "unknown workbasket", goerr.V("workbasket_key", st.WorkbasketKey))
	}
	class, ok := classes[wb.Domain+"/"+st.ClassificationKey]
	if !ok {
		return nil, goerr.Wrap(ErrInvalidSeed, "unknown classification", goerr.V("classification_key", st.ClassificationKey))
	}

	state := types.TaskStateReady
	if st.State != "" {
		parsed, err := types.ParseTaskState(st.State)
		if err != nil {
			return nil, goerr.Wrap(ErrInvalidSeed, "invalid task state", goerr.V("state", st.State))
		}
		state = parsed
	}

	created := now
	if st.Created != nil {
		created = st.Created.UTC().Truncate(time.Microsecond)
	}

	task := &model.Task{
		ID:                     orNewID(st.ID, "TKI:"),
		Created:                created,
		Modified:               created,
		Planned:                st.Planned,
		Due:                    st.Due,
		Received:               st.Received,
		Name:                   st.Name,
		Description:            st.Description,
		Note:                   st.Note,
		Creator:                st.Creator,
		BusinessProcessID:      st.BusinessProcessID,
		Classification:         class.Summary(),
		Workbasket:             wb.Summary(),
		Owner:                  st.Owner,
		State:                  state,
		IsRead:                 st.Read,
		ManualPriority:         model.NoManualPriority,
		PrimaryObjectReference: st.PrimaryReference.toModel(),
		CustomAttributes:       st.CustomAttributes,
	}
	if task.Name == "" {
		task.Name = class.Name
	}
	if st.ManualPriority != nil {
		task.ManualPriority = *st.ManualPriority
	}
	task.Priority = task.EffectivePriority()

	switch {
	case state == types.TaskStateClaimed || state == types.TaskStateInReview:
		task.Claimed = &created
	case state.IsEndState():
		task.Completed = &created
	}

	for slot, value := range st.Custom {
		n, err := strconv.Atoi(slot)
		if err != nil {
			return nil, goerr.Wrap(ErrInvalidSeed, "invalid custom slot", goerr.V("slot", slot))
		}
		task.SetCustom(n, &value)
	}

	for _, ref := range st.SecondaryReferences {
		task.SecondaryObjectReferences = append(task.SecondaryObjectReferences, ref.toModel())
	}
	for i, a := range st.Attachments {
		att := model.Attachment{
			ID:              task.ID + ":" + strconv.Itoa(i+1),
			Channel:         a.Channel,
			ObjectReference: a.Reference.toModel(),
		}
		if c, ok := classes[wb.Domain+"/"+a.ClassificationKey]; ok {
			att.Classification = c.Summary()
		}
		task.Attachments = append(task.Attachments, att)
	}
	return task, nil
}
