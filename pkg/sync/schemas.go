package sync

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/cliplabel/cliplabel-engine/pkg/database"
	"github.com/cliplabel/cliplabel-engine/pkg/models"
)

type schemaInput struct {
	idx         int
	schema      models.Schema
	groupTitles []string
}

type schemaCreate struct {
	schema   models.Schema
	groupIDs []uuid.UUID
}

type schemaUpdate struct {
	schema   models.Schema
	groupIDs []uuid.UUID
	reorder  bool
}

// SyncSchemas reconciles a batch of schema records. A stored schema's
// question group set is fixed; later submissions may only touch
// instructions_url, has_custom_display, the archived flag and group order.
func (e *Engine) SyncSchemas(ctx context.Context, records []SchemaRecord) (*Summary, error) {
	sum := newSummary(KindSchemas, len(records))
	batch := &BatchErrors{}

	inputs := make([]schemaInput, 0, len(records))
	seenName := make(map[string]int)
	for i, rec := range records {
		name := strings.TrimSpace(rec.SchemaName)
		if name == "" {
			batch.add(structuralErr(i, "", "schema_name is required"))
			continue
		}
		if prev, ok := seenName[name]; ok {
			batch.add(structuralErr(i, name, "duplicate schema_name in batch (also at record %d)", prev))
			continue
		}
		seenName[name] = i
		if len(rec.QuestionGroupNames) == 0 {
			batch.add(structuralErr(i, name, "question_group_names must not be empty"))
			continue
		}
		seenGroup := make(map[string]bool, len(rec.QuestionGroupNames))
		dup := false
		for _, title := range rec.QuestionGroupNames {
			if seenGroup[title] {
				batch.add(structuralErr(i, name, "question group %q listed twice", title))
				dup = true
				break
			}
			seenGroup[title] = true
		}
		if dup {
			continue
		}
		inputs = append(inputs, schemaInput{
			idx: i,
			schema: models.Schema{
				Name:             name,
				InstructionsURL:  rec.InstructionsURL,
				HasCustomDisplay: rec.HasCustomDisplay,
				IsArchived:       archivedFlag(rec.IsActive),
			},
			groupTitles: rec.QuestionGroupNames,
		})
	}
	if batch.Len() > 0 {
		return sum.reject(batch)
	}

	repos := e.repos(e.store)
	var creates []schemaCreate
	var updates []schemaUpdate
	for _, in := range inputs {
		groupIDs := make([]uuid.UUID, 0, len(in.groupTitles))
		groups := make([]*models.QuestionGroup, 0, len(in.groupTitles))
		ok := true
		for _, title := range in.groupTitles {
			g, err := repos.QuestionGroups.GetByTitle(ctx, title)
			if err != nil {
				return nil, err
			}
			if g == nil {
				batch.add(dependencyErr(in.idx, in.schema.Name, "question group %q not found", title))
				ok = false
				break
			}
			if g.IsArchived {
				batch.add(dependencyErr(in.idx, in.schema.Name, "question group %q is archived", title))
				ok = false
				break
			}
			groupIDs = append(groupIDs, g.ID)
			groups = append(groups, g)
		}
		if !ok {
			continue
		}

		stored, err := repos.Schemas.GetByName(ctx, in.schema.Name)
		if err != nil {
			return nil, err
		}

		if stored == nil {
			for _, g := range groups {
				if g.IsReusable {
					continue
				}
				using, err := repos.Schemas.SchemasUsingGroup(ctx, g.ID)
				if err != nil {
					return nil, err
				}
				if len(using) > 0 {
					batch.add(conflictErr(in.idx, in.schema.Name,
						"question group %q is not reusable and already belongs to another schema", g.Title))
					ok = false
					break
				}
			}
			if ok {
				creates = append(creates, schemaCreate{schema: in.schema, groupIDs: groupIDs})
			}
			continue
		}

		storedIDs, err := repos.Schemas.ListGroupIDs(ctx, stored.ID)
		if err != nil {
			return nil, err
		}
		if !sameIDSet(storedIDs, groupIDs) {
			batch.add(conflictErr(in.idx, in.schema.Name,
				"the question group set of schema %q is fixed after creation", in.schema.Name))
			continue
		}

		changed := stored.InstructionsURL != in.schema.InstructionsURL ||
			stored.HasCustomDisplay != in.schema.HasCustomDisplay ||
			stored.IsArchived != in.schema.IsArchived
		reorder := !slices.Equal(storedIDs, groupIDs)
		if !changed && !reorder {
			sum.Skipped++
			continue
		}

		updated := *stored
		updated.InstructionsURL = in.schema.InstructionsURL
		updated.HasCustomDisplay = in.schema.HasCustomDisplay
		updated.IsArchived = in.schema.IsArchived
		updates = append(updates, schemaUpdate{schema: updated, groupIDs: groupIDs, reorder: reorder})
	}
	if batch.Len() > 0 {
		return sum.reject(batch)
	}

	err := e.store.WithTx(ctx, func(q database.Querier) error {
		r := e.repos(q)
		for i := range creates {
			if err := r.Schemas.Create(ctx, &creates[i].schema, creates[i].groupIDs); err != nil {
				return err
			}
		}
		for _, u := range updates {
			if err := r.Schemas.Update(ctx, &u.schema); err != nil {
				return err
			}
			if u.reorder {
				if err := r.Schemas.UpdateGroupOrder(ctx, u.schema.ID, u.groupIDs); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply schema batch: %w", err)
	}

	sum.Created = len(creates)
	sum.Updated = len(updates)
	e.logSummary(sum)
	return sum, nil
}

// sameIDSet reports whether two ID lists contain the same elements,
// ignoring order.
func sameIDSet(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[uuid.UUID]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}
