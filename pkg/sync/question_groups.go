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

type groupInput struct {
	idx       int
	group     models.QuestionGroup
	questions []models.Question
}

type groupCreate struct {
	group     models.QuestionGroup
	questions []models.Question
}

type groupUpdate struct {
	group       models.QuestionGroup
	questionIDs []uuid.UUID
	reorder     bool
}

// SyncQuestionGroups reconciles a batch of question group records, creating
// their questions alongside. A stored group's question set is fixed; later
// submissions may only touch display fields and question order.
func (e *Engine) SyncQuestionGroups(ctx context.Context, records []QuestionGroupRecord) (*Summary, error) {
	sum := newSummary(KindQuestionGroups, len(records))
	batch := &BatchErrors{}

	inputs := make([]groupInput, 0, len(records))
	seenTitle := make(map[string]int)
	seenQuestion := make(map[string]int)
	for i, rec := range records {
		title := strings.TrimSpace(rec.Title)
		if title == "" {
			batch.add(structuralErr(i, "", "title is required"))
			continue
		}
		if prev, ok := seenTitle[title]; ok {
			batch.add(structuralErr(i, title, "duplicate title in batch (also at record %d)", prev))
			continue
		}
		seenTitle[title] = i
		if len(rec.Questions) == 0 {
			batch.add(structuralErr(i, title, "questions must not be empty"))
			continue
		}

		verification := emptyToNil(rec.VerificationFunction)
		if verification != nil {
			if _, ok := e.verifiers.Lookup(*verification); !ok {
				batch.add(structuralErr(i, title, "unknown verification function %q", *verification))
				continue
			}
		}

		in := groupInput{
			idx: i,
			group: models.QuestionGroup{
				Title:                title,
				DisplayTitle:         rec.DisplayTitle,
				Description:          rec.Description,
				IsReusable:           rec.IsReusable,
				IsAutoSubmit:         rec.IsAutoSubmit,
				VerificationFunction: verification,
				IsArchived:           archivedFlag(rec.IsActive),
			},
		}
		if in.group.DisplayTitle == "" {
			in.group.DisplayTitle = title
		}

		ok := true
		for _, qr := range rec.Questions {
			q, err := buildQuestion(qr)
			if err != nil {
				batch.add(structuralErr(i, title, "question %q: %v", qr.Text, err))
				ok = false
				break
			}
			if prev, dup := seenQuestion[q.Text]; dup {
				batch.add(structuralErr(i, title, "question %q already appears in record %d; questions belong to exactly one group", q.Text, prev))
				ok = false
				break
			}
			seenQuestion[q.Text] = i
			in.questions = append(in.questions, q)
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
	var creates []groupCreate
	var updates []groupUpdate
	for _, in := range inputs {
		stored, err := repos.QuestionGroups.GetByTitle(ctx, in.group.Title)
		if err != nil {
			return nil, err
		}

		if stored == nil {
			ok := true
			for _, q := range in.questions {
				existing, err := repos.Questions.GetByText(ctx, q.Text)
				if err != nil {
					return nil, err
				}
				if existing != nil {
					batch.add(conflictErr(in.idx, in.group.Title,
						"question %q already belongs to another group", q.Text))
					ok = false
					break
				}
			}
			if ok {
				creates = append(creates, groupCreate{group: in.group, questions: in.questions})
			}
			continue
		}

		storedIDs, err := repos.QuestionGroups.ListQuestionIDs(ctx, stored.ID)
		if err != nil {
			return nil, err
		}
		storedSet := make(map[uuid.UUID]bool, len(storedIDs))
		for _, id := range storedIDs {
			storedSet[id] = true
		}

		incomingIDs := make([]uuid.UUID, 0, len(in.questions))
		ok := true
		for _, q := range in.questions {
			existing, err := repos.Questions.GetByText(ctx, q.Text)
			if err != nil {
				return nil, err
			}
			if existing == nil || !storedSet[existing.ID] {
				batch.add(conflictErr(in.idx, in.group.Title,
					"the question set of group %q is fixed after creation (question %q is not in it)", in.group.Title, q.Text))
				ok = false
				break
			}
			if diff := questionDiff(existing, &q); diff != "" {
				batch.add(conflictErr(in.idx, in.group.Title,
					"question %q is immutable (%s changed)", q.Text, diff))
				ok = false
				break
			}
			incomingIDs = append(incomingIDs, existing.ID)
		}
		if !ok {
			continue
		}
		if len(incomingIDs) != len(storedIDs) {
			batch.add(conflictErr(in.idx, in.group.Title,
				"the question set of group %q is fixed after creation", in.group.Title))
			continue
		}

		changed := stored.DisplayTitle != in.group.DisplayTitle ||
			stored.Description != in.group.Description ||
			stored.IsReusable != in.group.IsReusable ||
			stored.IsAutoSubmit != in.group.IsAutoSubmit ||
			!strPtrEqual(stored.VerificationFunction, in.group.VerificationFunction) ||
			stored.IsArchived != in.group.IsArchived
		reorder := !slices.Equal(storedIDs, incomingIDs)
		if !changed && !reorder {
			sum.Skipped++
			continue
		}

		updated := *stored
		updated.DisplayTitle = in.group.DisplayTitle
		updated.Description = in.group.Description
		updated.IsReusable = in.group.IsReusable
		updated.IsAutoSubmit = in.group.IsAutoSubmit
		updated.VerificationFunction = in.group.VerificationFunction
		updated.IsArchived = in.group.IsArchived
		updates = append(updates, groupUpdate{group: updated, questionIDs: incomingIDs, reorder: reorder})
	}
	if batch.Len() > 0 {
		return sum.reject(batch)
	}

	err := e.store.WithTx(ctx, func(q database.Querier) error {
		r := e.repos(q)
		for i := range creates {
			c := &creates[i]
			ids := make([]uuid.UUID, 0, len(c.questions))
			for j := range c.questions {
				if err := r.Questions.Create(ctx, &c.questions[j]); err != nil {
					return err
				}
				ids = append(ids, c.questions[j].ID)
			}
			if err := r.QuestionGroups.Create(ctx, &c.group, ids); err != nil {
				return err
			}
		}
		for _, u := range updates {
			if err := r.QuestionGroups.Update(ctx, &u.group); err != nil {
				return err
			}
			if u.reorder {
				if err := r.QuestionGroups.UpdateQuestionOrder(ctx, u.group.ID, u.questionIDs); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply question group batch: %w", err)
	}

	sum.Created = len(creates)
	sum.Updated = len(updates)
	e.logSummary(sum)
	return sum, nil
}

// buildQuestion validates one question record and fills in the defaults:
// display_text falls back to text and display_values to options.
func buildQuestion(rec QuestionRecord) (models.Question, error) {
	var q models.Question
	q.Text = strings.TrimSpace(rec.Text)
	if q.Text == "" {
		return q, fmt.Errorf("text is required")
	}
	if !models.IsValidQuestionType(rec.QType) {
		return q, fmt.Errorf("invalid qtype %q", rec.QType)
	}
	q.QType = rec.QType
	q.DisplayText = rec.DisplayText
	if q.DisplayText == "" {
		q.DisplayText = q.Text
	}

	if rec.QType != models.QuestionTypeSingle {
		if len(rec.Options) > 0 || len(rec.DisplayValues) > 0 || len(rec.OptionWeights) > 0 || rec.DefaultOption != nil {
			return q, fmt.Errorf("option fields only apply to single-choice questions")
		}
		return q, nil
	}

	if len(rec.Options) == 0 {
		return q, fmt.Errorf("single-choice questions need options")
	}
	q.Options = rec.Options
	q.DisplayValues = rec.DisplayValues
	if q.DisplayValues == nil {
		q.DisplayValues = slices.Clone(rec.Options)
	}
	if len(q.DisplayValues) != len(q.Options) {
		return q, fmt.Errorf("display_values must match options in length")
	}
	if rec.OptionWeights != nil {
		if len(rec.OptionWeights) != len(q.Options) {
			return q, fmt.Errorf("option_weights must match options in length")
		}
		q.OptionWeights = rec.OptionWeights
	}
	if rec.DefaultOption != nil {
		if !q.HasOption(*rec.DefaultOption) {
			return q, fmt.Errorf("default_option %q is not one of the options", *rec.DefaultOption)
		}
		q.DefaultOption = rec.DefaultOption
	}
	return q, nil
}

// questionDiff names the first immutable field that differs between a stored
// question and an incoming definition, or "" when they match.
func questionDiff(stored, incoming *models.Question) string {
	switch {
	case stored.QType != incoming.QType:
		return "qtype"
	case stored.DisplayText != incoming.DisplayText:
		return "display_text"
	case !slices.Equal(stored.Options, incoming.Options):
		return "options"
	case !slices.Equal(stored.DisplayValues, incoming.DisplayValues):
		return "display_values"
	case incoming.OptionWeights != nil && !slices.Equal(stored.OptionWeights, incoming.OptionWeights):
		return "option_weights"
	case !strPtrEqual(stored.DefaultOption, incoming.DefaultOption):
		return "default_option"
	}
	return ""
}
