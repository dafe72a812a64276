package sync

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliplabel/cliplabel-engine/pkg/models"
)

type projectGroupFixture struct {
	projects []*models.Project
	mocks    *mocks
}

// newProjectGroupFixture sets up two projects on disjoint schemas sharing no
// questions, so grouping them is always consistent unless a test overrides
// the footprint lookups.
func newProjectGroupFixture() *projectGroupFixture {
	f := &projectGroupFixture{
		projects: []*models.Project{
			{ID: uuid.New(), Name: "Pizza Project", SchemaID: uuid.New()},
			{ID: uuid.New(), Name: "Burger Project", SchemaID: uuid.New()},
		},
		mocks: newMocks(),
	}
	m := f.mocks
	m.projects.getByName = func(name string) (*models.Project, error) {
		for _, p := range f.projects {
			if p.Name == name {
				return p, nil
			}
		}
		return nil, nil
	}
	m.projects.listQuestions = func(projectID uuid.UUID) ([]*models.Question, error) {
		return []*models.Question{{ID: uuid.NewSHA1(uuid.NameSpaceOID, projectID[:])}}, nil
	}
	return f
}

func TestSyncProjectGroupsCreate(t *testing.T) {
	f := newProjectGroupFixture()
	e := newTestEngine(f.mocks)

	sum, err := e.SyncProjectGroups(context.Background(), []ProjectGroupRecord{
		{
			ProjectGroupName: "Food Benchmarks",
			Description:      "All food clips",
			Projects:         []string{"Pizza Project", "Burger Project"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Created)
	require.Len(t, f.mocks.projectGroups.created, 1)
	group := f.mocks.projectGroups.created[0]
	assert.Equal(t, "Food Benchmarks", group.Name)
	assert.Equal(t, "All food clips", group.Description)
	assert.Equal(t, []uuid.UUID{f.projects[0].ID, f.projects[1].ID},
		f.mocks.projectGroups.createdMembers[group.ID])
}

func TestSyncProjectGroupsUpdateMembership(t *testing.T) {
	f := newProjectGroupFixture()
	stored := &models.ProjectGroup{ID: uuid.New(), Name: "Food Benchmarks"}
	f.mocks.projectGroups.getByName = func(string) (*models.ProjectGroup, error) { return stored, nil }
	f.mocks.projectGroups.listProjectIDs = func(uuid.UUID) ([]uuid.UUID, error) {
		return []uuid.UUID{f.projects[0].ID}, nil
	}
	e := newTestEngine(f.mocks)

	sum, err := e.SyncProjectGroups(context.Background(), []ProjectGroupRecord{
		{ProjectGroupName: "Food Benchmarks", Projects: []string{"Burger Project"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Updated)
	assert.Equal(t, []uuid.UUID{f.projects[1].ID}, f.mocks.projectGroups.added[stored.ID])
	assert.Equal(t, []uuid.UUID{f.projects[0].ID}, f.mocks.projectGroups.removed[stored.ID])
	// Description and archived flag unchanged, so no field update.
	assert.Empty(t, f.mocks.projectGroups.updated)
}

func TestSyncProjectGroupsIdempotentSkip(t *testing.T) {
	f := newProjectGroupFixture()
	stored := &models.ProjectGroup{ID: uuid.New(), Name: "Food Benchmarks"}
	f.mocks.projectGroups.getByName = func(string) (*models.ProjectGroup, error) { return stored, nil }
	f.mocks.projectGroups.listProjectIDs = func(uuid.UUID) ([]uuid.UUID, error) {
		return []uuid.UUID{f.projects[0].ID}, nil
	}
	e := newTestEngine(f.mocks)

	sum, err := e.SyncProjectGroups(context.Background(), []ProjectGroupRecord{
		{ProjectGroupName: "Food Benchmarks", Projects: []string{"Pizza Project"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Skipped)
	assert.Empty(t, f.mocks.projectGroups.updated)
	assert.Empty(t, f.mocks.projectGroups.added)
	assert.Empty(t, f.mocks.projectGroups.removed)
}

func TestSyncProjectGroupsMissingProject(t *testing.T) {
	f := newProjectGroupFixture()
	e := newTestEngine(f.mocks)

	_, err := e.SyncProjectGroups(context.Background(), []ProjectGroupRecord{
		{ProjectGroupName: "Food Benchmarks", Projects: []string{"Ghost Project"}},
	})
	require.Error(t, err)

	var batch *BatchErrors
	require.ErrorAs(t, err, &batch)
	require.Len(t, batch.Errs, 1)
	assert.Equal(t, CategoryDependency, batch.Errs[0].Category)
	assert.Contains(t, batch.Errs[0].Message, "Ghost Project")
	assert.Empty(t, f.mocks.projectGroups.created)
}

func TestSyncProjectGroupsOverlappingMembers(t *testing.T) {
	f := newProjectGroupFixture()
	sharedQuestion := uuid.New()
	sharedVideo := uuid.New()
	f.mocks.projects.listQuestions = func(uuid.UUID) ([]*models.Question, error) {
		return []*models.Question{{ID: sharedQuestion}}, nil
	}
	f.mocks.projects.listVideos = func(uuid.UUID) ([]*models.Video, error) {
		return []*models.Video{{ID: sharedVideo, VideoUID: "v1.mp4"}}, nil
	}
	e := newTestEngine(f.mocks)

	_, err := e.SyncProjectGroups(context.Background(), []ProjectGroupRecord{
		{ProjectGroupName: "Food Benchmarks", Projects: []string{"Pizza Project", "Burger Project"}},
	})
	require.Error(t, err)

	var batch *BatchErrors
	require.ErrorAs(t, err, &batch)
	require.Len(t, batch.Errs, 1)
	assert.Equal(t, CategoryConflict, batch.Errs[0].Category)
	assert.Contains(t, batch.Errs[0].Message, "share questions and videos")
}

func TestSyncProjectGroupsArchivedVideosDoNotOverlap(t *testing.T) {
	f := newProjectGroupFixture()
	sharedQuestion := uuid.New()
	sharedVideo := uuid.New()
	f.mocks.projects.listQuestions = func(uuid.UUID) ([]*models.Question, error) {
		return []*models.Question{{ID: sharedQuestion}}, nil
	}
	f.mocks.projects.listVideos = func(uuid.UUID) ([]*models.Video, error) {
		return []*models.Video{{ID: sharedVideo, VideoUID: "v1.mp4", IsArchived: true}}, nil
	}
	e := newTestEngine(f.mocks)

	sum, err := e.SyncProjectGroups(context.Background(), []ProjectGroupRecord{
		{ProjectGroupName: "Food Benchmarks", Projects: []string{"Pizza Project", "Burger Project"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Created)
}

func TestSyncProjectGroupsStructuralErrors(t *testing.T) {
	f := newProjectGroupFixture()
	e := newTestEngine(f.mocks)

	_, err := e.SyncProjectGroups(context.Background(), []ProjectGroupRecord{
		{ProjectGroupName: ""},
		{ProjectGroupName: "Dupes", Projects: []string{"Pizza Project", "Pizza Project"}},
		{ProjectGroupName: "Dupes"},
	})
	require.Error(t, err)

	var batch *BatchErrors
	require.ErrorAs(t, err, &batch)
	require.Len(t, batch.Errs, 3)
	for _, re := range batch.Errs {
		assert.Equal(t, CategoryStructural, re.Category)
	}
	assert.Contains(t, batch.Errs[0].Message, "required")
	assert.Contains(t, batch.Errs[1].Message, "listed twice")
	assert.Contains(t, batch.Errs[2].Message, "duplicate project_group_name")
}
