package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cliplabel/cliplabel-engine/pkg/database"
	"github.com/cliplabel/cliplabel-engine/pkg/models"
)

type assignmentInput struct {
	idx         int
	userName    string
	userEmail   string
	projectName string
	role        string
	weight      float64
	active      bool
}

func (a *assignmentInput) userKey() string {
	if a.userEmail != "" {
		return a.userEmail
	}
	return a.userName
}

type assignmentPair struct {
	projectID uuid.UUID
	userID    uuid.UUID
}

// SyncAssignments reconciles a batch of user-project role links. Each record
// resolves to one of create, update, remove or skip depending on the stored
// link and the record's is_active flag. Admin accounts have implicit access
// everywhere, so their records never produce a stored link.
func (e *Engine) SyncAssignments(ctx context.Context, records []AssignmentRecord) (*Summary, error) {
	sum := newSummary(KindAssignments, len(records))
	batch := &BatchErrors{}

	inputs := make([]assignmentInput, 0, len(records))
	seen := make(map[[2]string]int)
	for i, rec := range records {
		in := assignmentInput{
			idx:         i,
			userName:    strings.TrimSpace(rec.UserName),
			userEmail:   strings.TrimSpace(rec.UserEmail),
			projectName: strings.TrimSpace(rec.ProjectName),
			role:        rec.Role,
			weight:      1.0,
			active:      !archivedFlag(rec.IsActive),
		}
		if rec.UserWeight != nil {
			in.weight = *rec.UserWeight
		}
		if in.userName == "" && in.userEmail == "" {
			batch.add(structuralErr(i, "", "user_name or user_email is required"))
			continue
		}
		if in.projectName == "" {
			batch.add(structuralErr(i, in.userKey(), "project_name is required"))
			continue
		}
		if !models.IsValidRole(in.role) {
			batch.add(structuralErr(i, in.userKey(), "invalid role %q", in.role))
			continue
		}
		if in.weight < 0 {
			batch.add(structuralErr(i, in.userKey(), "user_weight must not be negative"))
			continue
		}

		// Duplicates are caught before any lookup, on the identity values
		// as submitted.
		pairKey := [2]string{in.userKey(), in.projectName}
		if prev, ok := seen[pairKey]; ok {
			batch.add(structuralErr(i, in.userKey(),
				"duplicate assignment for project %q in batch (also at record %d)", in.projectName, prev))
			continue
		}
		seen[pairKey] = i
		inputs = append(inputs, in)
	}
	if batch.Len() > 0 {
		return sum.reject(batch)
	}

	repos := e.repos(e.store)
	var upserts []models.ProjectUserRole
	var archives []assignmentPair
	for _, in := range inputs {
		var user *models.User
		var err error
		if in.userEmail != "" {
			user, err = repos.Users.GetByEmail(ctx, in.userEmail)
		} else {
			user, err = repos.Users.GetByUserID(ctx, in.userName)
		}
		if err != nil {
			return nil, err
		}
		if user == nil {
			batch.add(dependencyErr(in.idx, in.userKey(), "user %q not found", in.userKey()))
			continue
		}
		if user.IsArchived {
			batch.add(dependencyErr(in.idx, in.userKey(), "user %q is archived", user.UserID))
			continue
		}

		project, err := repos.Projects.GetByName(ctx, in.projectName)
		if err != nil {
			return nil, err
		}
		if project == nil {
			batch.add(dependencyErr(in.idx, in.userKey(), "project %q not found", in.projectName))
			continue
		}
		if project.IsArchived {
			batch.add(dependencyErr(in.idx, in.userKey(), "project %q is archived", in.projectName))
			continue
		}

		if user.UserType == models.UserTypeAdmin {
			if in.role != models.RoleAdmin {
				batch.add(conflictErr(in.idx, in.userKey(),
					"admin account %q cannot take project role %q", user.UserID, in.role))
				continue
			}
			// Admin access is implicit; nothing to store.
			sum.Skipped++
			continue
		}
		if in.role == models.RoleAdmin {
			batch.add(conflictErr(in.idx, in.userKey(),
				"role admin requires an admin account (%q is %s)", user.UserID, user.UserType))
			continue
		}
		if !models.RoleAllowedForUserType(in.role, user.UserType) {
			batch.add(conflictErr(in.idx, in.userKey(),
				"role %q is not allowed for %s account %q", in.role, user.UserType, user.UserID))
			continue
		}

		stored, err := repos.Assignments.Get(ctx, project.ID, user.ID)
		if err != nil {
			return nil, err
		}
		present := stored != nil && !stored.IsArchived

		switch {
		case !present && in.active:
			upserts = append(upserts, models.ProjectUserRole{
				ProjectID:  project.ID,
				UserID:     user.ID,
				Role:       in.role,
				UserWeight: in.weight,
			})
			sum.Created++
		case present && in.active && stored.Role == in.role && stored.UserWeight == in.weight:
			sum.Skipped++
		case present && in.active:
			upserts = append(upserts, models.ProjectUserRole{
				ProjectID:  project.ID,
				UserID:     user.ID,
				Role:       in.role,
				UserWeight: in.weight,
			})
			sum.Updated++
		case present:
			archives = append(archives, assignmentPair{projectID: project.ID, userID: user.ID})
			sum.Removed++
		default:
			// No stored link and the record is inactive.
			sum.Skipped++
		}
	}
	if batch.Len() > 0 {
		return sum.reject(batch)
	}

	err := e.store.WithTx(ctx, func(q database.Querier) error {
		r := e.repos(q)
		for i := range upserts {
			if err := r.Assignments.Upsert(ctx, &upserts[i]); err != nil {
				return err
			}
		}
		for _, p := range archives {
			if err := r.Assignments.Archive(ctx, p.projectID, p.userID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply assignment batch: %w", err)
	}

	e.logSummary(sum)
	return sum, nil
}
