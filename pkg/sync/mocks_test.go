package sync

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cliplabel/cliplabel-engine/pkg/config"
	"github.com/cliplabel/cliplabel-engine/pkg/database"
	"github.com/cliplabel/cliplabel-engine/pkg/models"
	"github.com/cliplabel/cliplabel-engine/pkg/repositories"
)

// stubStore satisfies database.Store without a database. WithTx runs the
// callback against the stub itself, so staged writes land in the mocks.
type stubStore struct{}

func (s *stubStore) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (s *stubStore) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, nil
}

func (s *stubStore) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func (s *stubStore) WithTx(ctx context.Context, fn func(database.Querier) error) error {
	return fn(s)
}

// mocks bundles one mock per repository plus the Set handed to the engine.
type mocks struct {
	videos        *mockVideoRepo
	users         *mockUserRepo
	questions     *mockQuestionRepo
	groups        *mockQuestionGroupRepo
	schemas       *mockSchemaRepo
	projects      *mockProjectRepo
	projectGroups *mockProjectGroupRepo
	displays      *mockDisplayRepo
	assignments   *mockAssignmentRepo
	answers       *mockAnswerRepo
	set           *repositories.Set
}

func newMocks() *mocks {
	m := &mocks{
		videos:        &mockVideoRepo{},
		users:         &mockUserRepo{},
		questions:     &mockQuestionRepo{},
		groups:        &mockQuestionGroupRepo{},
		schemas:       &mockSchemaRepo{},
		projects:      &mockProjectRepo{},
		projectGroups: &mockProjectGroupRepo{},
		displays:      &mockDisplayRepo{},
		assignments:   &mockAssignmentRepo{},
		answers:       &mockAnswerRepo{},
	}
	m.set = &repositories.Set{
		Videos:         m.videos,
		Users:          m.users,
		Questions:      m.questions,
		QuestionGroups: m.groups,
		Schemas:        m.schemas,
		Projects:       m.projects,
		ProjectGroups:  m.projectGroups,
		Displays:       m.displays,
		Assignments:    m.assignments,
		Answers:        m.answers,
	}
	return m
}

func newTestEngine(m *mocks) *Engine {
	e := NewEngine(&stubStore{}, nil, config.SyncConfig{AnswerWorkers: 1, BcryptCost: bcrypt.MinCost}, zap.NewNop())
	e.repos = func(database.Querier) *repositories.Set { return m.set }
	return e
}

type mockVideoRepo struct {
	getByUID  func(uid string) (*models.Video, error)
	getByURL  func(url string) (*models.Video, error)
	createErr error
	created   []*models.Video
	updated   []*models.Video
}

func (m *mockVideoRepo) GetByUID(_ context.Context, uid string) (*models.Video, error) {
	if m.getByUID != nil {
		return m.getByUID(uid)
	}
	return nil, nil
}

func (m *mockVideoRepo) GetByURL(_ context.Context, url string) (*models.Video, error) {
	if m.getByURL != nil {
		return m.getByURL(url)
	}
	return nil, nil
}

func (m *mockVideoRepo) Create(_ context.Context, v *models.Video) error {
	if m.createErr != nil {
		return m.createErr
	}
	v.ID = uuid.New()
	m.created = append(m.created, v)
	return nil
}

func (m *mockVideoRepo) Update(_ context.Context, v *models.Video) error {
	m.updated = append(m.updated, v)
	return nil
}

type mockUserRepo struct {
	getByUserID func(userID string) (*models.User, error)
	getByEmail  func(email string) (*models.User, error)
	created     []*models.User
	updated     []*models.User
}

func (m *mockUserRepo) GetByUserID(_ context.Context, userID string) (*models.User, error) {
	if m.getByUserID != nil {
		return m.getByUserID(userID)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if m.getByEmail != nil {
		return m.getByEmail(email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(_ context.Context, u *models.User) error {
	u.ID = uuid.New()
	m.created = append(m.created, u)
	return nil
}

func (m *mockUserRepo) Update(_ context.Context, u *models.User) error {
	m.updated = append(m.updated, u)
	return nil
}

type mockQuestionRepo struct {
	getByText   func(text string) (*models.Question, error)
	listByGroup func(groupID uuid.UUID) ([]*models.Question, error)
	ownerGroup  func(questionID uuid.UUID) (uuid.UUID, error)
	created     []*models.Question
}

func (m *mockQuestionRepo) GetByText(_ context.Context, text string) (*models.Question, error) {
	if m.getByText != nil {
		return m.getByText(text)
	}
	return nil, nil
}

func (m *mockQuestionRepo) ListByGroup(_ context.Context, groupID uuid.UUID) ([]*models.Question, error) {
	if m.listByGroup != nil {
		return m.listByGroup(groupID)
	}
	return nil, nil
}

func (m *mockQuestionRepo) OwnerGroup(_ context.Context, questionID uuid.UUID) (uuid.UUID, error) {
	if m.ownerGroup != nil {
		return m.ownerGroup(questionID)
	}
	return uuid.Nil, nil
}

func (m *mockQuestionRepo) Create(_ context.Context, q *models.Question) error {
	q.ID = uuid.New()
	m.created = append(m.created, q)
	return nil
}

type mockQuestionGroupRepo struct {
	getByTitle      func(title string) (*models.QuestionGroup, error)
	getByID         func(id uuid.UUID) (*models.QuestionGroup, error)
	listQuestionIDs func(groupID uuid.UUID) ([]uuid.UUID, error)
	created         []*models.QuestionGroup
	createdLinks    map[uuid.UUID][]uuid.UUID
	updated         []*models.QuestionGroup
	reordered       map[uuid.UUID][]uuid.UUID
}

func (m *mockQuestionGroupRepo) GetByTitle(_ context.Context, title string) (*models.QuestionGroup, error) {
	if m.getByTitle != nil {
		return m.getByTitle(title)
	}
	return nil, nil
}

func (m *mockQuestionGroupRepo) GetByID(_ context.Context, id uuid.UUID) (*models.QuestionGroup, error) {
	if m.getByID != nil {
		return m.getByID(id)
	}
	return nil, nil
}

func (m *mockQuestionGroupRepo) Create(_ context.Context, g *models.QuestionGroup, questionIDs []uuid.UUID) error {
	g.ID = uuid.New()
	m.created = append(m.created, g)
	if m.createdLinks == nil {
		m.createdLinks = make(map[uuid.UUID][]uuid.UUID)
	}
	m.createdLinks[g.ID] = questionIDs
	return nil
}

func (m *mockQuestionGroupRepo) Update(_ context.Context, g *models.QuestionGroup) error {
	m.updated = append(m.updated, g)
	return nil
}

func (m *mockQuestionGroupRepo) UpdateQuestionOrder(_ context.Context, groupID uuid.UUID, questionIDs []uuid.UUID) error {
	if m.reordered == nil {
		m.reordered = make(map[uuid.UUID][]uuid.UUID)
	}
	m.reordered[groupID] = questionIDs
	return nil
}

func (m *mockQuestionGroupRepo) ListQuestionIDs(_ context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	if m.listQuestionIDs != nil {
		return m.listQuestionIDs(groupID)
	}
	return nil, nil
}

type mockSchemaRepo struct {
	getByName         func(name string) (*models.Schema, error)
	getByID           func(id uuid.UUID) (*models.Schema, error)
	listGroupIDs      func(schemaID uuid.UUID) ([]uuid.UUID, error)
	schemasUsingGroup func(groupID uuid.UUID) ([]uuid.UUID, error)
	created           []*models.Schema
	createdLinks      map[uuid.UUID][]uuid.UUID
	updated           []*models.Schema
	reordered         map[uuid.UUID][]uuid.UUID
}

func (m *mockSchemaRepo) GetByName(_ context.Context, name string) (*models.Schema, error) {
	if m.getByName != nil {
		return m.getByName(name)
	}
	return nil, nil
}

func (m *mockSchemaRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Schema, error) {
	if m.getByID != nil {
		return m.getByID(id)
	}
	return nil, nil
}

func (m *mockSchemaRepo) Create(_ context.Context, s *models.Schema, groupIDs []uuid.UUID) error {
	s.ID = uuid.New()
	m.created = append(m.created, s)
	if m.createdLinks == nil {
		m.createdLinks = make(map[uuid.UUID][]uuid.UUID)
	}
	m.createdLinks[s.ID] = groupIDs
	return nil
}

func (m *mockSchemaRepo) Update(_ context.Context, s *models.Schema) error {
	m.updated = append(m.updated, s)
	return nil
}

func (m *mockSchemaRepo) UpdateGroupOrder(_ context.Context, schemaID uuid.UUID, groupIDs []uuid.UUID) error {
	if m.reordered == nil {
		m.reordered = make(map[uuid.UUID][]uuid.UUID)
	}
	m.reordered[schemaID] = groupIDs
	return nil
}

func (m *mockSchemaRepo) ListGroupIDs(_ context.Context, schemaID uuid.UUID) ([]uuid.UUID, error) {
	if m.listGroupIDs != nil {
		return m.listGroupIDs(schemaID)
	}
	return nil, nil
}

func (m *mockSchemaRepo) SchemasUsingGroup(_ context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	if m.schemasUsingGroup != nil {
		return m.schemasUsingGroup(groupID)
	}
	return nil, nil
}

type mockProjectRepo struct {
	getByName     func(name string) (*models.Project, error)
	getByID       func(id uuid.UUID) (*models.Project, error)
	listVideos    func(projectID uuid.UUID) ([]*models.Video, error)
	listQuestions func(projectID uuid.UUID) ([]*models.Question, error)
	created       []*models.Project
	createdVideos map[uuid.UUID][]uuid.UUID
	updated       []*models.Project
	addedVideos   map[uuid.UUID][]uuid.UUID
}

func (m *mockProjectRepo) GetByName(_ context.Context, name string) (*models.Project, error) {
	if m.getByName != nil {
		return m.getByName(name)
	}
	return nil, nil
}

func (m *mockProjectRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Project, error) {
	if m.getByID != nil {
		return m.getByID(id)
	}
	return nil, nil
}

func (m *mockProjectRepo) Create(_ context.Context, p *models.Project, videoIDs []uuid.UUID) error {
	p.ID = uuid.New()
	m.created = append(m.created, p)
	if m.createdVideos == nil {
		m.createdVideos = make(map[uuid.UUID][]uuid.UUID)
	}
	m.createdVideos[p.ID] = videoIDs
	return nil
}

func (m *mockProjectRepo) Update(_ context.Context, p *models.Project) error {
	m.updated = append(m.updated, p)
	return nil
}

func (m *mockProjectRepo) AddVideo(_ context.Context, projectID, videoID uuid.UUID) error {
	if m.addedVideos == nil {
		m.addedVideos = make(map[uuid.UUID][]uuid.UUID)
	}
	m.addedVideos[projectID] = append(m.addedVideos[projectID], videoID)
	return nil
}

func (m *mockProjectRepo) ListVideos(_ context.Context, projectID uuid.UUID) ([]*models.Video, error) {
	if m.listVideos != nil {
		return m.listVideos(projectID)
	}
	return nil, nil
}

func (m *mockProjectRepo) ListQuestions(_ context.Context, projectID uuid.UUID) ([]*models.Question, error) {
	if m.listQuestions != nil {
		return m.listQuestions(projectID)
	}
	return nil, nil
}

type mockProjectGroupRepo struct {
	getByName      func(name string) (*models.ProjectGroup, error)
	listProjectIDs func(groupID uuid.UUID) ([]uuid.UUID, error)
	created        []*models.ProjectGroup
	createdMembers map[uuid.UUID][]uuid.UUID
	updated        []*models.ProjectGroup
	added          map[uuid.UUID][]uuid.UUID
	removed        map[uuid.UUID][]uuid.UUID
}

func (m *mockProjectGroupRepo) GetByName(_ context.Context, name string) (*models.ProjectGroup, error) {
	if m.getByName != nil {
		return m.getByName(name)
	}
	return nil, nil
}

func (m *mockProjectGroupRepo) Create(_ context.Context, g *models.ProjectGroup, projectIDs []uuid.UUID) error {
	g.ID = uuid.New()
	m.created = append(m.created, g)
	if m.createdMembers == nil {
		m.createdMembers = make(map[uuid.UUID][]uuid.UUID)
	}
	m.createdMembers[g.ID] = projectIDs
	return nil
}

func (m *mockProjectGroupRepo) Update(_ context.Context, g *models.ProjectGroup) error {
	m.updated = append(m.updated, g)
	return nil
}

func (m *mockProjectGroupRepo) ListProjectIDs(_ context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	if m.listProjectIDs != nil {
		return m.listProjectIDs(groupID)
	}
	return nil, nil
}

func (m *mockProjectGroupRepo) AddProject(_ context.Context, groupID, projectID uuid.UUID) error {
	if m.added == nil {
		m.added = make(map[uuid.UUID][]uuid.UUID)
	}
	m.added[groupID] = append(m.added[groupID], projectID)
	return nil
}

func (m *mockProjectGroupRepo) RemoveProject(_ context.Context, groupID, projectID uuid.UUID) error {
	if m.removed == nil {
		m.removed = make(map[uuid.UUID][]uuid.UUID)
	}
	m.removed[groupID] = append(m.removed[groupID], projectID)
	return nil
}

type mockDisplayRepo struct {
	get           func(projectID, videoID, questionID uuid.UUID) (*models.DisplayOverride, error)
	listByProject func(projectID uuid.UUID) ([]*models.DisplayOverride, error)
	upserted      []*models.DisplayOverride
	deleted       [][3]uuid.UUID
}

func (m *mockDisplayRepo) Get(_ context.Context, projectID, videoID, questionID uuid.UUID) (*models.DisplayOverride, error) {
	if m.get != nil {
		return m.get(projectID, videoID, questionID)
	}
	return nil, nil
}

func (m *mockDisplayRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]*models.DisplayOverride, error) {
	if m.listByProject != nil {
		return m.listByProject(projectID)
	}
	return nil, nil
}

func (m *mockDisplayRepo) Upsert(_ context.Context, o *models.DisplayOverride) error {
	m.upserted = append(m.upserted, o)
	return nil
}

func (m *mockDisplayRepo) Delete(_ context.Context, projectID, videoID, questionID uuid.UUID) error {
	m.deleted = append(m.deleted, [3]uuid.UUID{projectID, videoID, questionID})
	return nil
}

type mockAssignmentRepo struct {
	get      func(projectID, userID uuid.UUID) (*models.ProjectUserRole, error)
	upserted []*models.ProjectUserRole
	archived [][2]uuid.UUID
}

func (m *mockAssignmentRepo) Get(_ context.Context, projectID, userID uuid.UUID) (*models.ProjectUserRole, error) {
	if m.get != nil {
		return m.get(projectID, userID)
	}
	return nil, nil
}

func (m *mockAssignmentRepo) Upsert(_ context.Context, role *models.ProjectUserRole) error {
	m.upserted = append(m.upserted, role)
	return nil
}

func (m *mockAssignmentRepo) Archive(_ context.Context, projectID, userID uuid.UUID) error {
	m.archived = append(m.archived, [2]uuid.UUID{projectID, userID})
	return nil
}

type mockAnswerRepo struct {
	getUserAnswers  func(videoID, projectID, userID uuid.UUID, questionIDs []uuid.UUID) (map[uuid.UUID]string, error)
	getGroundTruths func(videoID, projectID uuid.UUID, questionIDs []uuid.UUID) (map[uuid.UUID]string, error)
	answers         []*models.AnnotatorAnswer
	truths          []*models.ReviewerGroundTruth
}

func (m *mockAnswerRepo) GetUserAnswers(_ context.Context, videoID, projectID, userID uuid.UUID, questionIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	if m.getUserAnswers != nil {
		return m.getUserAnswers(videoID, projectID, userID, questionIDs)
	}
	return map[uuid.UUID]string{}, nil
}

func (m *mockAnswerRepo) UpsertAnswer(_ context.Context, a *models.AnnotatorAnswer) error {
	m.answers = append(m.answers, a)
	return nil
}

func (m *mockAnswerRepo) GetGroundTruths(_ context.Context, videoID, projectID uuid.UUID, questionIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	if m.getGroundTruths != nil {
		return m.getGroundTruths(videoID, projectID, questionIDs)
	}
	return map[uuid.UUID]string{}, nil
}

func (m *mockAnswerRepo) UpsertGroundTruth(_ context.Context, t *models.ReviewerGroundTruth) error {
	m.truths = append(m.truths, t)
	return nil
}
