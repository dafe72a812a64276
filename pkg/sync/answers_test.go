package sync

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliplabel/cliplabel-engine/pkg/models"
)

type answerFixture struct {
	project   *models.Project
	user      *models.User
	group     *models.QuestionGroup
	questions []*models.Question
	video     *models.Video
	mocks     *mocks
}

// newAnswerFixture wires a project whose schema holds one group with a
// single-choice and a description question, one video in the project, and
// one user holding the given role.
func newAnswerFixture(userType, role string) *answerFixture {
	f := &answerFixture{
		project: &models.Project{ID: uuid.New(), Name: "Pizza Project", SchemaID: uuid.New()},
		user:    &models.User{ID: uuid.New(), UserID: "alice", UserType: userType},
		group:   &models.QuestionGroup{ID: uuid.New(), Title: "Pizza Check"},
		questions: []*models.Question{
			{ID: uuid.New(), Text: "Is there a pizza?", QType: models.QuestionTypeSingle, Options: []string{"yes", "no"}},
			{ID: uuid.New(), Text: "Describe it.", QType: models.QuestionTypeDescription},
		},
		video: &models.Video{ID: uuid.New(), VideoUID: "v1.mp4"},
		mocks: newMocks(),
	}
	m := f.mocks
	m.projects.getByName = func(name string) (*models.Project, error) {
		if name == f.project.Name {
			return f.project, nil
		}
		return nil, nil
	}
	m.users.getByUserID = func(userID string) (*models.User, error) {
		if userID == f.user.UserID {
			return f.user, nil
		}
		return nil, nil
	}
	m.groups.getByTitle = func(title string) (*models.QuestionGroup, error) {
		if title == f.group.Title {
			return f.group, nil
		}
		return nil, nil
	}
	m.schemas.listGroupIDs = func(uuid.UUID) ([]uuid.UUID, error) {
		return []uuid.UUID{f.group.ID}, nil
	}
	m.projects.listVideos = func(uuid.UUID) ([]*models.Video, error) {
		return []*models.Video{f.video}, nil
	}
	m.questions.listByGroup = func(uuid.UUID) ([]*models.Question, error) {
		return f.questions, nil
	}
	if role != "" {
		m.assignments.get = func(uuid.UUID, uuid.UUID) (*models.ProjectUserRole, error) {
			return &models.ProjectUserRole{
				ProjectID: f.project.ID, UserID: f.user.ID, Role: role, UserWeight: 1.0,
			}, nil
		}
	}
	return f
}

func goodAnswerRecord(ground bool) AnswerRecord {
	return AnswerRecord{
		QuestionGroupTitle: "Pizza Check",
		ProjectName:        "Pizza Project",
		UserName:           "alice",
		VideoUID:           "v1.mp4",
		Answers: map[string]string{
			"Is there a pizza?": "yes",
			"Describe it.":      "a thin margherita",
		},
		IsGroundTruth: ground,
	}
}

func TestSyncAnnotationsCreate(t *testing.T) {
	f := newAnswerFixture(models.UserTypeHuman, models.RoleAnnotator)
	e := newTestEngine(f.mocks)

	sum, err := e.SyncAnnotations(context.Background(), []AnswerRecord{goodAnswerRecord(false)})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Created)
	require.Len(t, f.mocks.answers.answers, 2)
	assert.Equal(t, f.user.ID, f.mocks.answers.answers[0].UserID)
	assert.Equal(t, models.QuestionTypeSingle, f.mocks.answers.answers[0].AnswerType)
}

func TestSyncAnnotationsSkipsUnchanged(t *testing.T) {
	f := newAnswerFixture(models.UserTypeHuman, models.RoleAnnotator)
	f.mocks.answers.getUserAnswers = func(_, _, _ uuid.UUID, _ []uuid.UUID) (map[uuid.UUID]string, error) {
		return map[uuid.UUID]string{
			f.questions[0].ID: "yes",
			f.questions[1].ID: "a thin margherita",
		}, nil
	}
	e := newTestEngine(f.mocks)

	sum, err := e.SyncAnnotations(context.Background(), []AnswerRecord{goodAnswerRecord(false)})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Skipped)
	assert.Empty(t, f.mocks.answers.answers)
}

func TestSyncAnnotationsCoverage(t *testing.T) {
	f := newAnswerFixture(models.UserTypeHuman, models.RoleAnnotator)
	e := newTestEngine(f.mocks)

	rec := goodAnswerRecord(false)
	delete(rec.Answers, "Describe it.")

	_, err := e.SyncAnnotations(context.Background(), []AnswerRecord{rec})
	require.Error(t, err)

	var batch *BatchErrors
	require.ErrorAs(t, err, &batch)
	assert.Equal(t, CategoryConflict, batch.Errs[0].Category)
	assert.Contains(t, batch.Errs[0].Message, "cover exactly")
}

func TestSyncAnnotationsOptionMembership(t *testing.T) {
	f := newAnswerFixture(models.UserTypeHuman, models.RoleAnnotator)
	e := newTestEngine(f.mocks)

	rec := goodAnswerRecord(false)
	rec.Answers["Is there a pizza?"] = "maybe"

	_, err := e.SyncAnnotations(context.Background(), []AnswerRecord{rec})
	require.Error(t, err)

	var batch *BatchErrors
	require.ErrorAs(t, err, &batch)
	assert.Contains(t, batch.Errs[0].Message, "not an option")
}

func TestSyncAnnotationsRequireAssignment(t *testing.T) {
	f := newAnswerFixture(models.UserTypeHuman, "")
	e := newTestEngine(f.mocks)

	_, err := e.SyncAnnotations(context.Background(), []AnswerRecord{goodAnswerRecord(false)})
	require.Error(t, err)

	var batch *BatchErrors
	require.ErrorAs(t, err, &batch)
	assert.Equal(t, CategoryDependency, batch.Errs[0].Category)
	assert.Contains(t, batch.Errs[0].Message, "not assigned")
}

func TestSyncAnnotationsModelConfidence(t *testing.T) {
	f := newAnswerFixture(models.UserTypeModel, models.RoleModel)
	e := newTestEngine(f.mocks)

	rec := goodAnswerRecord(false)
	rec.ConfidenceScores = map[string]float64{"Is there a pizza?": 0.93}

	sum, err := e.SyncAnnotations(context.Background(), []AnswerRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Created)

	for _, a := range f.mocks.answers.answers {
		if a.QuestionID == f.questions[0].ID {
			require.NotNil(t, a.ConfidenceScore)
			assert.Equal(t, 0.93, *a.ConfidenceScore)
		} else {
			assert.Nil(t, a.ConfidenceScore)
		}
	}
}

func TestSyncAnnotationsVerifierRejects(t *testing.T) {
	f := newAnswerFixture(models.UserTypeHuman, models.RoleAnnotator)
	f.group.VerificationFunction = strPtr("verify_non_empty")
	e := newTestEngine(f.mocks)

	rec := goodAnswerRecord(false)
	rec.Answers["Describe it."] = "  "

	_, err := e.SyncAnnotations(context.Background(), []AnswerRecord{rec})
	require.Error(t, err)

	var batch *BatchErrors
	require.ErrorAs(t, err, &batch)
	assert.Equal(t, CategoryConflict, batch.Errs[0].Category)
	assert.Contains(t, batch.Errs[0].Message, "verify_non_empty")
}

func TestSyncAnnotationsUnknownVerifierOnGroup(t *testing.T) {
	f := newAnswerFixture(models.UserTypeHuman, models.RoleAnnotator)
	f.group.VerificationFunction = strPtr("verify_legacy")
	e := newTestEngine(f.mocks)

	_, err := e.SyncAnnotations(context.Background(), []AnswerRecord{goodAnswerRecord(false)})
	require.Error(t, err)

	var batch *BatchErrors
	require.ErrorAs(t, err, &batch)
	assert.Equal(t, CategoryDependency, batch.Errs[0].Category)
}

func TestSyncGroundTruthsOverwrite(t *testing.T) {
	f := newAnswerFixture(models.UserTypeHuman, models.RoleReviewer)
	f.mocks.answers.getGroundTruths = func(_, _ uuid.UUID, _ []uuid.UUID) (map[uuid.UUID]string, error) {
		return map[uuid.UUID]string{
			f.questions[0].ID: "no",
			f.questions[1].ID: "nothing here",
		}, nil
	}
	e := newTestEngine(f.mocks)

	sum, err := e.SyncGroundTruths(context.Background(), []AnswerRecord{goodAnswerRecord(true)})
	require.NoError(t, err)

	// The stored ground truth is replaced, not protected.
	assert.Equal(t, 1, sum.Updated)
	require.Len(t, f.mocks.answers.truths, 2)
	assert.Equal(t, f.user.ID, f.mocks.answers.truths[0].ReviewerID)
}

// addReviewer registers a second reviewer account in the fixture's user
// lookup. The fixture's assignment mock already grants the role to any user.
func (f *answerFixture) addReviewer(userID string) *models.User {
	u := &models.User{ID: uuid.New(), UserID: userID, UserType: models.UserTypeHuman}
	prev := f.mocks.users.getByUserID
	f.mocks.users.getByUserID = func(id string) (*models.User, error) {
		if id == u.UserID {
			return u, nil
		}
		return prev(id)
	}
	return u
}

func TestSyncGroundTruthsLaterRecordOverridesStaged(t *testing.T) {
	f := newAnswerFixture(models.UserTypeHuman, models.RoleReviewer)
	bob := f.addReviewer("bob")
	e := newTestEngine(f.mocks)

	first := goodAnswerRecord(true)
	second := goodAnswerRecord(true)
	second.UserName = "bob"
	second.Answers = map[string]string{
		"Is there a pizza?": "no",
		"Describe it.":      "no pizza at all",
	}

	sum, err := e.SyncGroundTruths(context.Background(), []AnswerRecord{first, second})
	require.NoError(t, err)

	// One row set per (video, question, project): the triple is created once
	// and the second reviewer's record counts as an overwrite.
	assert.Equal(t, 1, sum.Created)
	assert.Equal(t, 1, sum.Updated)
	require.Len(t, f.mocks.answers.truths, 2)
	for _, truth := range f.mocks.answers.truths {
		assert.Equal(t, bob.ID, truth.ReviewerID)
	}
	assert.Equal(t, "no", f.mocks.answers.truths[0].AnswerValue)
	assert.Equal(t, "no pizza at all", f.mocks.answers.truths[1].AnswerValue)
}

func TestSyncGroundTruthsIdenticalTripleSkipsStaged(t *testing.T) {
	f := newAnswerFixture(models.UserTypeHuman, models.RoleReviewer)
	f.addReviewer("bob")
	e := newTestEngine(f.mocks)

	first := goodAnswerRecord(true)
	second := goodAnswerRecord(true)
	second.UserName = "bob"

	sum, err := e.SyncGroundTruths(context.Background(), []AnswerRecord{first, second})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Created)
	assert.Equal(t, 1, sum.Skipped)
	require.Len(t, f.mocks.answers.truths, 2)
	assert.Equal(t, f.user.ID, f.mocks.answers.truths[0].ReviewerID)
}

func TestSyncGroundTruthsNeedReviewerRole(t *testing.T) {
	f := newAnswerFixture(models.UserTypeHuman, models.RoleAnnotator)
	e := newTestEngine(f.mocks)

	_, err := e.SyncGroundTruths(context.Background(), []AnswerRecord{goodAnswerRecord(true)})
	require.Error(t, err)

	var batch *BatchErrors
	require.ErrorAs(t, err, &batch)
	assert.Contains(t, batch.Errs[0].Message, "reviewer")
}

func TestSyncGroundTruthsAdminBypassesRole(t *testing.T) {
	f := newAnswerFixture(models.UserTypeAdmin, "")
	e := newTestEngine(f.mocks)

	sum, err := e.SyncGroundTruths(context.Background(), []AnswerRecord{goodAnswerRecord(true)})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Created)
}

func TestSyncAnswersModeMismatch(t *testing.T) {
	f := newAnswerFixture(models.UserTypeHuman, models.RoleAnnotator)
	e := newTestEngine(f.mocks)

	_, err := e.SyncAnnotations(context.Background(), []AnswerRecord{goodAnswerRecord(true)})
	require.Error(t, err)

	var batch *BatchErrors
	require.ErrorAs(t, err, &batch)
	assert.Equal(t, CategoryStructural, batch.Errs[0].Category)
}

func TestSyncAnswersDuplicateSubmission(t *testing.T) {
	f := newAnswerFixture(models.UserTypeHuman, models.RoleAnnotator)
	e := newTestEngine(f.mocks)

	_, err := e.SyncAnnotations(context.Background(), []AnswerRecord{
		goodAnswerRecord(false),
		goodAnswerRecord(false),
	})
	require.Error(t, err)

	var batch *BatchErrors
	require.ErrorAs(t, err, &batch)
	require.Len(t, batch.Errs, 1)
	assert.Equal(t, CategoryStructural, batch.Errs[0].Category)
	assert.Equal(t, 1, batch.Errs[0].Index)
}

func TestAnswerLookupsCacheGroupQuestions(t *testing.T) {
	m := newMocks()
	calls := 0
	m.questions.listByGroup = func(uuid.UUID) ([]*models.Question, error) {
		calls++
		return []*models.Question{{ID: uuid.New(), Text: "Is there a pizza?"}}, nil
	}

	lookups := newAnswerLookups(m.set)
	groupID := uuid.New()
	first, err := lookups.questionsOfGroup(context.Background(), groupID)
	require.NoError(t, err)
	second, err := lookups.questionsOfGroup(context.Background(), groupID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestAnswerVideoUIDNormalizesPaths(t *testing.T) {
	assert.Equal(t, "v1.mp4", answerVideoUID("folder/v1.mp4"))
	assert.Equal(t, "v1.mp4", answerVideoUID(" v1.mp4 "))
}
