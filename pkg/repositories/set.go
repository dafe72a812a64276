package repositories

import (
	"github.com/cliplabel/cliplabel-engine/pkg/database"
)

// Set bundles every repository bound to one Querier. The sync engine builds
// one Set against the pool for read-only phases and a fresh Set against the
// open transaction for the apply phase.
type Set struct {
	Videos         VideoRepository
	Users          UserRepository
	Questions      QuestionRepository
	QuestionGroups QuestionGroupRepository
	Schemas        SchemaRepository
	Projects       ProjectRepository
	ProjectGroups  ProjectGroupRepository
	Displays       DisplayRepository
	Assignments    AssignmentRepository
	Answers        AnswerRepository
}

// NewSet creates a repository set bound to q.
func NewSet(q database.Querier) *Set {
	return &Set{
		Videos:         NewVideoRepository(q),
		Users:          NewUserRepository(q),
		Questions:      NewQuestionRepository(q),
		QuestionGroups: NewQuestionGroupRepository(q),
		Schemas:        NewSchemaRepository(q),
		Projects:       NewProjectRepository(q),
		ProjectGroups:  NewProjectGroupRepository(q),
		Displays:       NewDisplayRepository(q),
		Assignments:    NewAssignmentRepository(q),
		Answers:        NewAnswerRepository(q),
	}
}
