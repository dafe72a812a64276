package sync

import (
	"maps"
	"sort"

	"github.com/google/uuid"

	"github.com/cliplabel/cliplabel-engine/pkg/models"
)

type displayAction int

const (
	displayCreate displayAction = iota
	displayUpdate
	displayRemove
)

// displayOp is one staged override write for a (video, question) pair.
type displayOp struct {
	action       displayAction
	videoID      uuid.UUID
	questionID   uuid.UUID
	videoUID     string
	questionText string
	text         *string
	optionMap    map[string]string
}

type displayKey struct {
	videoID    uuid.UUID
	questionID uuid.UUID
}

// planDisplayOps diffs the desired per-video overrides of one project record
// against the stored ones. Every stored override not re-declared in cfg is
// removed, so a video submitted as a bare UID (or omitted entirely) drops
// all of its overrides. Pairs whose stored and desired override match, and
// pairs with no override on either side, are counted as skipped.
//
// videos and questions scope the diff: all the project's videos and all the
// questions of its schema. cfg maps video UID to the overrides declared for
// it. idx and key only feed error reporting.
func planDisplayOps(idx int, key string, videos []*models.Video, questions []*models.Question,
	stored []*models.DisplayOverride, cfg map[string][]QuestionOverride) ([]displayOp, int, []*RecordError) {

	videosByUID := make(map[string]*models.Video, len(videos))
	videosByID := make(map[uuid.UUID]*models.Video, len(videos))
	for _, v := range videos {
		videosByUID[v.VideoUID] = v
		videosByID[v.ID] = v
	}
	questionsByText := make(map[string]*models.Question, len(questions))
	questionsByID := make(map[uuid.UUID]*models.Question, len(questions))
	for _, q := range questions {
		questionsByText[q.Text] = q
		questionsByID[q.ID] = q
	}

	var errs []*RecordError
	desired := make(map[displayKey]*QuestionOverride)
	for uid, overrides := range cfg {
		video, ok := videosByUID[uid]
		if !ok {
			errs = append(errs, dependencyErr(idx, key, "video %q is not in the project", uid))
			continue
		}
		for i := range overrides {
			o := &overrides[i]
			question, ok := questionsByText[o.QuestionText]
			if !ok {
				errs = append(errs, dependencyErr(idx, key,
					"question %q is not part of the project's schema", o.QuestionText))
				continue
			}
			if o.DisplayText == nil && o.OptionMap == nil {
				errs = append(errs, structuralErr(idx, key,
					"override for question %q on video %q sets neither display text nor option map", o.QuestionText, uid))
				continue
			}
			if o.OptionMap != nil {
				if question.QType != models.QuestionTypeSingle {
					errs = append(errs, structuralErr(idx, key,
						"option overrides only apply to single-choice questions (question %q)", o.QuestionText))
					continue
				}
				if !sameOptionKeys(o.OptionMap, question.Options) {
					errs = append(errs, structuralErr(idx, key,
						"option override for question %q must map exactly its original options", o.QuestionText))
					continue
				}
			}
			desired[displayKey{video.ID, question.ID}] = o
		}
	}
	if len(errs) > 0 {
		return nil, 0, errs
	}

	storedByKey := make(map[displayKey]*models.DisplayOverride, len(stored))
	for _, s := range stored {
		storedByKey[displayKey{s.VideoID, s.QuestionID}] = s
	}

	var ops []displayOp
	skipped := 0
	for k, d := range desired {
		s := storedByKey[k]
		if s != nil && strPtrEqual(s.CustomDisplayText, d.DisplayText) && maps.Equal(s.CustomOptionValues, d.OptionMap) {
			skipped++
			continue
		}
		action := displayCreate
		if s != nil {
			action = displayUpdate
		}
		ops = append(ops, displayOp{
			action:       action,
			videoID:      k.videoID,
			questionID:   k.questionID,
			videoUID:     videosByID[k.videoID].VideoUID,
			questionText: questionsByID[k.questionID].Text,
			text:         d.DisplayText,
			optionMap:    d.OptionMap,
		})
	}
	for k := range storedByKey {
		if _, ok := desired[k]; ok {
			continue
		}
		op := displayOp{action: displayRemove, videoID: k.videoID, questionID: k.questionID}
		if v := videosByID[k.videoID]; v != nil {
			op.videoUID = v.VideoUID
		}
		if q := questionsByID[k.questionID]; q != nil {
			op.questionText = q.Text
		}
		ops = append(ops, op)
	}

	for _, v := range videos {
		for _, q := range questions {
			k := displayKey{v.ID, q.ID}
			if _, ok := desired[k]; ok {
				continue
			}
			if _, ok := storedByKey[k]; ok {
				continue
			}
			skipped++
		}
	}

	sort.Slice(ops, func(i, j int) bool {
		if ops[i].videoUID != ops[j].videoUID {
			return ops[i].videoUID < ops[j].videoUID
		}
		return ops[i].questionText < ops[j].questionText
	})
	return ops, skipped, nil
}

// sameOptionKeys reports whether the override map covers exactly the
// question's original options.
func sameOptionKeys(m map[string]string, options []string) bool {
	if len(m) != len(options) {
		return false
	}
	for _, opt := range options {
		if _, ok := m[opt]; !ok {
			return false
		}
	}
	return true
}
