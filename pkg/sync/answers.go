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

// SyncAnnotations reconciles a batch of annotator answer records.
func (e *Engine) SyncAnnotations(ctx context.Context, records []AnswerRecord) (*Summary, error) {
	return e.syncAnswers(ctx, KindAnnotations, records, false)
}

// SyncGroundTruths reconciles a batch of reviewer ground-truth records. The
// single ground truth per (video, question, project) is overwritten by later
// submissions.
func (e *Engine) SyncGroundTruths(ctx context.Context, records []AnswerRecord) (*Summary, error) {
	return e.syncAnswers(ctx, KindGroundTruths, records, true)
}

type answerInput struct {
	idx    int
	rec    AnswerRecord
	uid    string
	key    string
	ground bool
}

func (e *Engine) syncAnswers(ctx context.Context, kind string, records []AnswerRecord, groundTruth bool) (*Summary, error) {
	sum := newSummary(kind, len(records))
	batch := &BatchErrors{}

	inputs := make([]answerInput, 0, len(records))
	seen := make(map[[4]string]int)
	for i, rec := range records {
		uid := answerVideoUID(rec.VideoUID)
		key := fmt.Sprintf("%s/%s", rec.UserName, uid)
		if rec.QuestionGroupTitle == "" || rec.ProjectName == "" || rec.UserName == "" || uid == "" {
			batch.add(structuralErr(i, key,
				"question_group_title, project_name, user_name and video_uid are required"))
			continue
		}
		if len(rec.Answers) == 0 {
			batch.add(structuralErr(i, key, "answers must not be empty"))
			continue
		}
		if rec.IsGroundTruth != groundTruth {
			if groundTruth {
				batch.add(structuralErr(i, key, "record is not marked as ground truth"))
			} else {
				batch.add(structuralErr(i, key, "ground-truth records go through the ground-truth sync"))
			}
			continue
		}
		if groundTruth && len(rec.ConfidenceScores) > 0 {
			batch.add(structuralErr(i, key, "confidence_scores only apply to annotator submissions"))
			continue
		}

		dupKey := [4]string{uid, rec.UserName, rec.QuestionGroupTitle, rec.ProjectName}
		if prev, ok := seen[dupKey]; ok {
			batch.add(structuralErr(i, key, "duplicate submission in batch (also at record %d)", prev))
			continue
		}
		seen[dupKey] = i
		inputs = append(inputs, answerInput{idx: i, rec: rec, uid: uid, key: key, ground: groundTruth})
	}
	if batch.Len() > 0 {
		return sum.reject(batch)
	}

	repos := e.repos(e.store)
	lookups := newAnswerLookups(repos)
	var annotations []models.AnnotatorAnswer
	var truths []models.ReviewerGroundTruth
	// Ground truths are keyed per (video, project, group), not per user, so
	// two reviewers in one batch can address the same rows. Staged values are
	// tracked so a later record overrides the earlier one instead of being
	// compared against the database.
	stagedAt := make(map[[3]uuid.UUID][]int)
	stagedVals := make(map[[3]uuid.UUID]map[uuid.UUID]string)
	for _, in := range inputs {
		rec := in.rec

		project, err := lookups.project(ctx, rec.ProjectName)
		if err != nil {
			return nil, err
		}
		if project == nil {
			batch.add(dependencyErr(in.idx, in.key, "project %q not found", rec.ProjectName))
			continue
		}
		if project.IsArchived {
			batch.add(dependencyErr(in.idx, in.key, "project %q is archived", rec.ProjectName))
			continue
		}

		user, err := lookups.user(ctx, rec.UserName)
		if err != nil {
			return nil, err
		}
		if user == nil {
			batch.add(dependencyErr(in.idx, in.key, "user %q not found", rec.UserName))
			continue
		}
		if user.IsArchived {
			batch.add(dependencyErr(in.idx, in.key, "user %q is archived", rec.UserName))
			continue
		}

		group, err := lookups.group(ctx, rec.QuestionGroupTitle)
		if err != nil {
			return nil, err
		}
		if group == nil {
			batch.add(dependencyErr(in.idx, in.key, "question group %q not found", rec.QuestionGroupTitle))
			continue
		}
		if group.IsArchived {
			batch.add(dependencyErr(in.idx, in.key, "question group %q is archived", rec.QuestionGroupTitle))
			continue
		}
		inSchema, err := lookups.groupInSchema(ctx, project.SchemaID, group.ID)
		if err != nil {
			return nil, err
		}
		if !inSchema {
			batch.add(dependencyErr(in.idx, in.key,
				"question group %q is not part of project %q", rec.QuestionGroupTitle, rec.ProjectName))
			continue
		}

		video, err := lookups.projectVideo(ctx, project.ID, in.uid)
		if err != nil {
			return nil, err
		}
		if video == nil {
			batch.add(dependencyErr(in.idx, in.key, "video %q is not in project %q", in.uid, rec.ProjectName))
			continue
		}
		if video.IsArchived {
			batch.add(dependencyErr(in.idx, in.key, "video %q is archived", in.uid))
			continue
		}

		allowed, err := e.checkAnswerRole(ctx, repos, batch, in, project, user)
		if err != nil {
			return nil, err
		}
		if !allowed {
			continue
		}

		questions, err := lookups.questionsOfGroup(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		if !e.validateAnswerSet(batch, in, group, questions) {
			continue
		}

		questionIDs := make([]uuid.UUID, len(questions))
		for j, q := range questions {
			questionIDs[j] = q.ID
		}

		if in.ground {
			tripleKey := [3]uuid.UUID{video.ID, project.ID, group.ID}
			if vals, ok := stagedVals[tripleKey]; ok {
				if answersMatch(vals, questions, rec.Answers) {
					sum.Skipped++
					continue
				}
				for j, pos := range stagedAt[tripleKey] {
					q := questions[j]
					truths[pos].ReviewerID = user.ID
					truths[pos].AnswerValue = rec.Answers[q.Text]
					truths[pos].Notes = notePtr(rec.Notes, q.Text)
					vals[q.ID] = rec.Answers[q.Text]
				}
				sum.Updated++
				continue
			}

			existing, err := repos.Answers.GetGroundTruths(ctx, video.ID, project.ID, questionIDs)
			if err != nil {
				return nil, err
			}
			if answersMatch(existing, questions, rec.Answers) {
				sum.Skipped++
				continue
			}
			vals := make(map[uuid.UUID]string, len(questions))
			for _, q := range questions {
				stagedAt[tripleKey] = append(stagedAt[tripleKey], len(truths))
				truths = append(truths, models.ReviewerGroundTruth{
					VideoID:     video.ID,
					QuestionID:  q.ID,
					ProjectID:   project.ID,
					ReviewerID:  user.ID,
					AnswerType:  q.QType,
					AnswerValue: rec.Answers[q.Text],
					Notes:       notePtr(rec.Notes, q.Text),
				})
				vals[q.ID] = rec.Answers[q.Text]
			}
			stagedVals[tripleKey] = vals
			if len(existing) == 0 {
				sum.Created++
			} else {
				sum.Updated++
			}
			continue
		}

		existing, err := repos.Answers.GetUserAnswers(ctx, video.ID, project.ID, user.ID, questionIDs)
		if err != nil {
			return nil, err
		}
		if answersMatch(existing, questions, rec.Answers) {
			sum.Skipped++
			continue
		}
		for _, q := range questions {
			annotations = append(annotations, models.AnnotatorAnswer{
				VideoID:         video.ID,
				QuestionID:      q.ID,
				UserID:          user.ID,
				ProjectID:       project.ID,
				AnswerType:      q.QType,
				AnswerValue:     rec.Answers[q.Text],
				ConfidenceScore: floatPtr(rec.ConfidenceScores, q.Text),
				Notes:           notePtr(rec.Notes, q.Text),
			})
		}
		if len(existing) == 0 {
			sum.Created++
		} else {
			sum.Updated++
		}
	}
	if batch.Len() > 0 {
		return sum.reject(batch)
	}

	err := e.store.WithTx(ctx, func(q database.Querier) error {
		r := e.repos(q)
		for i := range annotations {
			if err := r.Answers.UpsertAnswer(ctx, &annotations[i]); err != nil {
				return err
			}
		}
		for i := range truths {
			if err := r.Answers.UpsertGroundTruth(ctx, &truths[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply %s batch: %w", kind, err)
	}

	e.logSummary(sum)
	return sum, nil
}

// checkAnswerRole enforces who may submit: ground truth needs an active
// reviewer link, annotations an active annotator or model link. Admin
// accounts bypass both.
func (e *Engine) checkAnswerRole(ctx context.Context, repos *repositories.Set, batch *BatchErrors,
	in answerInput, project *models.Project, user *models.User) (bool, error) {

	if user.UserType == models.UserTypeAdmin {
		return true, nil
	}
	a, err := repos.Assignments.Get(ctx, project.ID, user.ID)
	if err != nil {
		return false, err
	}
	if a == nil || a.IsArchived {
		batch.add(dependencyErr(in.idx, in.key,
			"user %q is not assigned to project %q", user.UserID, project.Name))
		return false, nil
	}
	if in.ground {
		if a.Role != models.RoleReviewer {
			batch.add(dependencyErr(in.idx, in.key,
				"user %q needs the reviewer role in project %q to submit ground truth", user.UserID, project.Name))
			return false, nil
		}
		return true, nil
	}
	if a.Role != models.RoleAnnotator && a.Role != models.RoleModel {
		batch.add(dependencyErr(in.idx, in.key,
			"user %q needs an annotator or model role in project %q", user.UserID, project.Name))
		return false, nil
	}
	return true, nil
}

// validateAnswerSet checks that the record answers exactly the group's
// questions, that single-choice values are legal options, that score and
// note keys reference real questions, and that the group's verification
// function accepts the set.
func (e *Engine) validateAnswerSet(batch *BatchErrors, in answerInput,
	group *models.QuestionGroup, questions []*models.Question) bool {

	rec := in.rec
	byText := make(map[string]*models.Question, len(questions))
	for _, q := range questions {
		byText[q.Text] = q
	}

	if len(rec.Answers) != len(questions) {
		batch.add(conflictErr(in.idx, in.key,
			"answers must cover exactly the %d question(s) of group %q", len(questions), group.Title))
		return false
	}
	for _, q := range questions {
		value, ok := rec.Answers[q.Text]
		if !ok {
			batch.add(conflictErr(in.idx, in.key,
				"missing answer for question %q of group %q", q.Text, group.Title))
			return false
		}
		if q.QType == models.QuestionTypeSingle && !q.HasOption(value) {
			batch.add(conflictErr(in.idx, in.key,
				"answer %q is not an option of question %q", value, q.Text))
			return false
		}
	}
	for text := range rec.ConfidenceScores {
		if _, ok := byText[text]; !ok {
			batch.add(conflictErr(in.idx, in.key,
				"confidence score for unknown question %q", text))
			return false
		}
	}
	for text := range rec.Notes {
		if _, ok := byText[text]; !ok {
			batch.add(conflictErr(in.idx, in.key, "note for unknown question %q", text))
			return false
		}
	}

	if group.VerificationFunction != nil {
		fn, ok := e.verifiers.Lookup(*group.VerificationFunction)
		if !ok {
			batch.add(dependencyErr(in.idx, in.key,
				"unknown verification function %q on group %q", *group.VerificationFunction, group.Title))
			return false
		}
		if err := fn(rec.Answers); err != nil {
			batch.add(conflictErr(in.idx, in.key,
				"verification %q rejected the record: %v", *group.VerificationFunction, err))
			return false
		}
	}
	return true
}

// answersMatch reports whether the stored values cover every question with
// the same value as the record.
func answersMatch(stored map[uuid.UUID]string, questions []*models.Question, answers map[string]string) bool {
	if len(stored) != len(questions) {
		return false
	}
	for _, q := range questions {
		if stored[q.ID] != answers[q.Text] {
			return false
		}
	}
	return true
}

// answerVideoUID normalizes a submitted video_uid: exported files sometimes
// carry a path prefix, only the filename identifies the video.
func answerVideoUID(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndexByte(raw, '/'); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

// answerLookups caches the per-batch entity lookups so repeated names do not
// requery.
type answerLookups struct {
	repos          *repositories.Set
	projects       map[string]*models.Project
	users          map[string]*models.User
	groups         map[string]*models.QuestionGroup
	schemaGroups   map[uuid.UUID]map[uuid.UUID]bool
	projectVideos  map[uuid.UUID]map[string]*models.Video
	groupQuestions map[uuid.UUID][]*models.Question
}

func newAnswerLookups(repos *repositories.Set) *answerLookups {
	return &answerLookups{
		repos:          repos,
		projects:       make(map[string]*models.Project),
		users:          make(map[string]*models.User),
		groups:         make(map[string]*models.QuestionGroup),
		schemaGroups:   make(map[uuid.UUID]map[uuid.UUID]bool),
		projectVideos:  make(map[uuid.UUID]map[string]*models.Video),
		groupQuestions: make(map[uuid.UUID][]*models.Question),
	}
}

func (l *answerLookups) project(ctx context.Context, name string) (*models.Project, error) {
	if p, ok := l.projects[name]; ok {
		return p, nil
	}
	p, err := l.repos.Projects.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	l.projects[name] = p
	return p, nil
}

func (l *answerLookups) user(ctx context.Context, userID string) (*models.User, error) {
	if u, ok := l.users[userID]; ok {
		return u, nil
	}
	u, err := l.repos.Users.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	l.users[userID] = u
	return u, nil
}

func (l *answerLookups) group(ctx context.Context, title string) (*models.QuestionGroup, error) {
	if g, ok := l.groups[title]; ok {
		return g, nil
	}
	g, err := l.repos.QuestionGroups.GetByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	l.groups[title] = g
	return g, nil
}

func (l *answerLookups) groupInSchema(ctx context.Context, schemaID, groupID uuid.UUID) (bool, error) {
	set, ok := l.schemaGroups[schemaID]
	if !ok {
		ids, err := l.repos.Schemas.ListGroupIDs(ctx, schemaID)
		if err != nil {
			return false, err
		}
		set = make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			set[id] = true
		}
		l.schemaGroups[schemaID] = set
	}
	return set[groupID], nil
}

func (l *answerLookups) projectVideo(ctx context.Context, projectID uuid.UUID, uid string) (*models.Video, error) {
	byUID, ok := l.projectVideos[projectID]
	if !ok {
		videos, err := l.repos.Projects.ListVideos(ctx, projectID)
		if err != nil {
			return nil, err
		}
		byUID = make(map[string]*models.Video, len(videos))
		for _, v := range videos {
			byUID[v.VideoUID] = v
		}
		l.projectVideos[projectID] = byUID
	}
	return byUID[uid], nil
}

func (l *answerLookups) questionsOfGroup(ctx context.Context, groupID uuid.UUID) ([]*models.Question, error) {
	if qs, ok := l.groupQuestions[groupID]; ok {
		return qs, nil
	}
	qs, err := l.repos.Questions.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	l.groupQuestions[groupID] = qs
	return qs, nil
}

func floatPtr(m map[string]float64, key string) *float64 {
	if v, ok := m[key]; ok {
		return &v
	}
	return nil
}

func notePtr(m map[string]string, key string) *string {
	if v, ok := m[key]; ok {
		return &v
	}
	return nil
}
