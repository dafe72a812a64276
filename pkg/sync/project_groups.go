package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cliplabel/cliplabel-engine/pkg/database"
	"github.com/cliplabel/cliplabel-engine/pkg/models"
	"github.com/cliplabel/cliplabel-engine/pkg/repositories"
)

type projectGroupInput struct {
	idx          int
	name         string
	description  string
	archived     bool
	projectNames []string
}

type projectGroupCreate struct {
	group      models.ProjectGroup
	projectIDs []uuid.UUID
}

type projectGroupUpdate struct {
	group         models.ProjectGroup
	fieldsChanged bool
	addIDs        []uuid.UUID
	removeIDs     []uuid.UUID
}

// memberFootprint is the question and non-archived video sets of one member
// project, used for the pairwise overlap check.
type memberFootprint struct {
	questions map[uuid.UUID]bool
	videos    map[uuid.UUID]bool
}

// SyncProjectGroups reconciles a batch of project group records. The member
// list is exact: projects listed are linked, stored members not listed are
// unlinked. Two members of one group may not share both questions and
// videos, since that would make per-question results ambiguous within the
// group.
func (e *Engine) SyncProjectGroups(ctx context.Context, records []ProjectGroupRecord) (*Summary, error) {
	sum := newSummary(KindProjectGroups, len(records))
	batch := &BatchErrors{}

	inputs := make([]projectGroupInput, 0, len(records))
	seenName := make(map[string]int)
	for i, rec := range records {
		name := strings.TrimSpace(rec.ProjectGroupName)
		if name == "" {
			batch.add(structuralErr(i, "", "project_group_name is required"))
			continue
		}
		if prev, ok := seenName[name]; ok {
			batch.add(structuralErr(i, name, "duplicate project_group_name in batch (also at record %d)", prev))
			continue
		}
		seenName[name] = i

		in := projectGroupInput{
			idx:         i,
			name:        name,
			description: rec.Description,
			archived:    archivedFlag(rec.IsActive),
		}
		seenProject := make(map[string]bool, len(rec.Projects))
		ok := true
		for _, pname := range rec.Projects {
			pname = strings.TrimSpace(pname)
			if pname == "" {
				batch.add(structuralErr(i, name, "project entry without a name"))
				ok = false
				break
			}
			if seenProject[pname] {
				batch.add(structuralErr(i, name, "project %q listed twice", pname))
				ok = false
				break
			}
			seenProject[pname] = true
			in.projectNames = append(in.projectNames, pname)
		}
		if !ok {
			continue
		}
		inputs = append(inputs, in)
	}
	if batch.Len() > 0 {
		return sum.reject(batch)
	}

	repos := e.repos(e.store)
	footprints := make(map[uuid.UUID]*memberFootprint)
	var creates []projectGroupCreate
	var updates []projectGroupUpdate
	for _, in := range inputs {
		members := make([]*models.Project, 0, len(in.projectNames))
		ok := true
		for _, pname := range in.projectNames {
			p, err := repos.Projects.GetByName(ctx, pname)
			if err != nil {
				return nil, err
			}
			if p == nil {
				batch.add(dependencyErr(in.idx, in.name, "project %q not found", pname))
				ok = false
				break
			}
			members = append(members, p)
		}
		if !ok {
			continue
		}

		if pair, err := overlappingMembers(ctx, repos, members, footprints); err != nil {
			return nil, err
		} else if pair != nil {
			batch.add(conflictErr(in.idx, in.name,
				"projects %q and %q share questions and videos", pair[0], pair[1]))
			continue
		}

		stored, err := repos.ProjectGroups.GetByName(ctx, in.name)
		if err != nil {
			return nil, err
		}
		memberIDs := make([]uuid.UUID, len(members))
		for j, p := range members {
			memberIDs[j] = p.ID
		}

		if stored == nil {
			creates = append(creates, projectGroupCreate{
				group: models.ProjectGroup{
					Name:        in.name,
					Description: in.description,
					IsArchived:  in.archived,
				},
				projectIDs: memberIDs,
			})
			continue
		}

		storedIDs, err := repos.ProjectGroups.ListProjectIDs(ctx, stored.ID)
		if err != nil {
			return nil, err
		}
		linked := make(map[uuid.UUID]bool, len(storedIDs))
		for _, id := range storedIDs {
			linked[id] = true
		}
		desired := make(map[uuid.UUID]bool, len(memberIDs))
		var addIDs []uuid.UUID
		for _, id := range memberIDs {
			desired[id] = true
			if !linked[id] {
				addIDs = append(addIDs, id)
			}
		}
		var removeIDs []uuid.UUID
		for _, id := range storedIDs {
			if !desired[id] {
				removeIDs = append(removeIDs, id)
			}
		}

		fieldsChanged := stored.Description != in.description || stored.IsArchived != in.archived
		if !fieldsChanged && len(addIDs) == 0 && len(removeIDs) == 0 {
			sum.Skipped++
			continue
		}

		updated := *stored
		updated.Description = in.description
		updated.IsArchived = in.archived
		updates = append(updates, projectGroupUpdate{
			group:         updated,
			fieldsChanged: fieldsChanged,
			addIDs:        addIDs,
			removeIDs:     removeIDs,
		})
	}
	if batch.Len() > 0 {
		return sum.reject(batch)
	}

	err := e.store.WithTx(ctx, func(q database.Querier) error {
		r := e.repos(q)
		for i := range creates {
			c := &creates[i]
			if err := r.ProjectGroups.Create(ctx, &c.group, c.projectIDs); err != nil {
				return err
			}
		}
		for i := range updates {
			u := &updates[i]
			if u.fieldsChanged {
				if err := r.ProjectGroups.Update(ctx, &u.group); err != nil {
					return err
				}
			}
			for _, pid := range u.addIDs {
				if err := r.ProjectGroups.AddProject(ctx, u.group.ID, pid); err != nil {
					return err
				}
			}
			for _, pid := range u.removeIDs {
				if err := r.ProjectGroups.RemoveProject(ctx, u.group.ID, pid); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply project group batch: %w", err)
	}

	sum.Created = len(creates)
	sum.Updated = len(updates)
	e.logSummary(sum)
	return sum, nil
}

// overlappingMembers returns the names of the first member pair sharing both
// a question and a non-archived video, or nil when the group is consistent.
// footprints caches per-project lookups across the batch.
func overlappingMembers(ctx context.Context, repos *repositories.Set, members []*models.Project,
	footprints map[uuid.UUID]*memberFootprint) ([]string, error) {

	for _, p := range members {
		if footprints[p.ID] != nil {
			continue
		}
		fp := &memberFootprint{
			questions: make(map[uuid.UUID]bool),
			videos:    make(map[uuid.UUID]bool),
		}
		questions, err := repos.Projects.ListQuestions(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, q := range questions {
			fp.questions[q.ID] = true
		}
		videos, err := repos.Projects.ListVideos(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, v := range videos {
			if !v.IsArchived {
				fp.videos[v.ID] = true
			}
		}
		footprints[p.ID] = fp
	}

	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			a, b := footprints[members[i].ID], footprints[members[j].ID]
			if !setsIntersect(a.questions, b.questions) {
				continue
			}
			if setsIntersect(a.videos, b.videos) {
				return []string{members[i].Name, members[j].Name}, nil
			}
		}
	}
	return nil, nil
}

func setsIntersect(a, b map[uuid.UUID]bool) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for id := range a {
		if b[id] {
			return true
		}
	}
	return false
}
