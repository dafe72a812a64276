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

type projectInput struct {
	idx          int
	name         string
	schemaName   string
	description  string
	archived     bool
	videoUIDs    []string
	cfg          map[string][]QuestionOverride
	hasOverrides bool
}

type projectCreate struct {
	project  models.Project
	videoIDs []uuid.UUID
	ops      []displayOp
}

type projectUpdate struct {
	project       models.Project
	fieldsChanged bool
	newVideoIDs   []uuid.UUID
	ops           []displayOp
}

// SyncProjects reconciles a batch of project records, including each
// project's video list and per-video display overrides. A project's schema
// is fixed at creation; videos can be added but never removed.
func (e *Engine) SyncProjects(ctx context.Context, records []ProjectRecord) (*Summary, error) {
	sum := newSummary(KindProjects, len(records))
	sum.Display = &DisplayStats{}
	batch := &BatchErrors{}

	inputs := make([]projectInput, 0, len(records))
	seenName := make(map[string]int)
	for i, rec := range records {
		name := strings.TrimSpace(rec.ProjectName)
		if name == "" {
			batch.add(structuralErr(i, "", "project_name is required"))
			continue
		}
		if prev, ok := seenName[name]; ok {
			batch.add(structuralErr(i, name, "duplicate project_name in batch (also at record %d)", prev))
			continue
		}
		seenName[name] = i
		if strings.TrimSpace(rec.SchemaName) == "" {
			batch.add(structuralErr(i, name, "schema_name is required"))
			continue
		}

		in := projectInput{
			idx:         i,
			name:        name,
			schemaName:  rec.SchemaName,
			description: rec.Description,
			archived:    archivedFlag(rec.IsActive),
			cfg:         make(map[string][]QuestionOverride),
		}
		ok := true
		for _, entry := range rec.Videos {
			uid := strings.TrimSpace(entry.VideoUID)
			if uid == "" {
				batch.add(structuralErr(i, name, "video entry without video_uid"))
				ok = false
				break
			}
			if _, dup := in.cfg[uid]; dup {
				batch.add(structuralErr(i, name, "video %q listed twice", uid))
				ok = false
				break
			}
			in.videoUIDs = append(in.videoUIDs, uid)
			in.cfg[uid] = entry.Overrides
			if len(entry.Overrides) > 0 {
				in.hasOverrides = true
			}
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
	var creates []projectCreate
	var updates []projectUpdate
	for _, in := range inputs {
		schema, err := repos.Schemas.GetByName(ctx, in.schemaName)
		if err != nil {
			return nil, err
		}
		if schema == nil {
			batch.add(dependencyErr(in.idx, in.name, "schema %q not found", in.schemaName))
			continue
		}
		if schema.IsArchived {
			batch.add(dependencyErr(in.idx, in.name, "schema %q is archived", in.schemaName))
			continue
		}
		if in.hasOverrides && !schema.HasCustomDisplay {
			batch.add(dependencyErr(in.idx, in.name,
				"schema %q does not allow custom display overrides", in.schemaName))
			continue
		}

		stored, err := repos.Projects.GetByName(ctx, in.name)
		if err != nil {
			return nil, err
		}
		if stored != nil && stored.SchemaID != schema.ID {
			batch.add(conflictErr(in.idx, in.name, "the schema of project %q is fixed after creation", in.name))
			continue
		}

		videos := make([]*models.Video, 0, len(in.videoUIDs))
		ok := true
		for _, uid := range in.videoUIDs {
			v, err := repos.Videos.GetByUID(ctx, uid)
			if err != nil {
				return nil, err
			}
			if v == nil {
				batch.add(dependencyErr(in.idx, in.name, "video %q not found", uid))
				ok = false
				break
			}
			if v.IsArchived {
				batch.add(dependencyErr(in.idx, in.name, "video %q is archived", uid))
				ok = false
				break
			}
			videos = append(videos, v)
		}
		if !ok {
			continue
		}

		questions, err := schemaQuestions(ctx, repos, schema.ID)
		if err != nil {
			return nil, err
		}

		if stored == nil {
			ops, skipped, errs := planDisplayOps(in.idx, in.name, videos, questions, nil, in.cfg)
			if len(errs) > 0 {
				for _, de := range errs {
					batch.add(de)
				}
				continue
			}
			videoIDs := make([]uuid.UUID, len(videos))
			for j, v := range videos {
				videoIDs[j] = v.ID
			}
			creates = append(creates, projectCreate{
				project: models.Project{
					Name:        in.name,
					SchemaID:    schema.ID,
					Description: in.description,
					IsArchived:  in.archived,
				},
				videoIDs: videoIDs,
				ops:      ops,
			})
			sum.Display.Skipped += skipped
			continue
		}

		storedVideos, err := repos.Projects.ListVideos(ctx, stored.ID)
		if err != nil {
			return nil, err
		}
		linked := make(map[uuid.UUID]bool, len(storedVideos))
		allVideos := make([]*models.Video, 0, len(storedVideos)+len(videos))
		for _, v := range storedVideos {
			linked[v.ID] = true
			allVideos = append(allVideos, v)
		}
		var newVideoIDs []uuid.UUID
		for _, v := range videos {
			if !linked[v.ID] {
				newVideoIDs = append(newVideoIDs, v.ID)
				allVideos = append(allVideos, v)
			}
		}

		storedOverrides, err := repos.Displays.ListByProject(ctx, stored.ID)
		if err != nil {
			return nil, err
		}
		ops, skipped, errs := planDisplayOps(in.idx, in.name, allVideos, questions, storedOverrides, in.cfg)
		if len(errs) > 0 {
			for _, de := range errs {
				batch.add(de)
			}
			continue
		}
		sum.Display.Skipped += skipped

		fieldsChanged := stored.Description != in.description || stored.IsArchived != in.archived
		if !fieldsChanged && len(newVideoIDs) == 0 && len(ops) == 0 {
			sum.Skipped++
			continue
		}

		updated := *stored
		updated.Description = in.description
		updated.IsArchived = in.archived
		updates = append(updates, projectUpdate{
			project:       updated,
			fieldsChanged: fieldsChanged,
			newVideoIDs:   newVideoIDs,
			ops:           ops,
		})
	}
	if batch.Len() > 0 {
		return sum.reject(batch)
	}

	err := e.store.WithTx(ctx, func(q database.Querier) error {
		r := e.repos(q)
		for i := range creates {
			c := &creates[i]
			if err := r.Projects.Create(ctx, &c.project, c.videoIDs); err != nil {
				return err
			}
			if err := applyDisplayOps(ctx, r, c.project.ID, c.ops, sum.Display); err != nil {
				return err
			}
		}
		for i := range updates {
			u := &updates[i]
			if u.fieldsChanged {
				if err := r.Projects.Update(ctx, &u.project); err != nil {
					return err
				}
			}
			for _, vid := range u.newVideoIDs {
				if err := r.Projects.AddVideo(ctx, u.project.ID, vid); err != nil {
					return err
				}
			}
			if err := applyDisplayOps(ctx, r, u.project.ID, u.ops, sum.Display); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply project batch: %w", err)
	}

	sum.Created = len(creates)
	sum.Updated = len(updates)
	e.logSummary(sum)
	return sum, nil
}

// schemaQuestions returns every question of a schema, in group order then
// question order.
func schemaQuestions(ctx context.Context, repos *repositories.Set, schemaID uuid.UUID) ([]*models.Question, error) {
	groupIDs, err := repos.Schemas.ListGroupIDs(ctx, schemaID)
	if err != nil {
		return nil, err
	}
	var questions []*models.Question
	for _, gid := range groupIDs {
		qs, err := repos.Questions.ListByGroup(ctx, gid)
		if err != nil {
			return nil, err
		}
		questions = append(questions, qs...)
	}
	return questions, nil
}

func applyDisplayOps(ctx context.Context, r *repositories.Set, projectID uuid.UUID, ops []displayOp, stats *DisplayStats) error {
	for _, op := range ops {
		switch op.action {
		case displayCreate, displayUpdate:
			err := r.Displays.Upsert(ctx, &models.DisplayOverride{
				ProjectID:          projectID,
				VideoID:            op.videoID,
				QuestionID:         op.questionID,
				CustomDisplayText:  op.text,
				CustomOptionValues: op.optionMap,
			})
			if err != nil {
				return err
			}
			if op.action == displayCreate {
				stats.Created++
			} else {
				stats.Updated++
			}
		case displayRemove:
			if err := r.Displays.Delete(ctx, projectID, op.videoID, op.questionID); err != nil {
				return err
			}
			stats.Removed++
		}
	}
	return nil
}
