package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/cliplabel/cliplabel-engine/pkg/auth"
	"github.com/cliplabel/cliplabel-engine/pkg/database"
	"github.com/cliplabel/cliplabel-engine/pkg/models"
)

type userInput struct {
	idx      int
	userID   string
	email    *string
	password string
	userType string
	archived bool
}

// SyncUsers reconciles a batch of user records. A record may match a stored
// account by user_id, by email, or by both; matching two different accounts
// is a conflict.
func (e *Engine) SyncUsers(ctx context.Context, records []UserRecord) (*Summary, error) {
	sum := newSummary(KindUsers, len(records))
	batch := &BatchErrors{}

	inputs := make([]userInput, 0, len(records))
	seenID := make(map[string]int)
	seenEmail := make(map[string]int)
	for i, rec := range records {
		userID := strings.TrimSpace(rec.UserID)
		if userID == "" {
			batch.add(structuralErr(i, "", "user_id is required"))
			continue
		}
		if rec.Password == "" {
			batch.add(structuralErr(i, userID, "password is required"))
			continue
		}
		if !models.IsValidUserType(rec.UserType) {
			batch.add(structuralErr(i, userID, "invalid user_type %q", rec.UserType))
			continue
		}
		email := emptyToNil(rec.Email)
		if rec.UserType == models.UserTypeModel {
			if email != nil {
				batch.add(structuralErr(i, userID, "model accounts must not have an email"))
				continue
			}
		} else if email == nil {
			batch.add(structuralErr(i, userID, "email is required for %s accounts", rec.UserType))
			continue
		}

		if prev, ok := seenID[userID]; ok {
			batch.add(structuralErr(i, userID, "duplicate user_id in batch (also at record %d)", prev))
			continue
		}
		seenID[userID] = i
		if email != nil {
			if prev, ok := seenEmail[*email]; ok {
				batch.add(structuralErr(i, userID, "duplicate email in batch (also at record %d)", prev))
				continue
			}
			seenEmail[*email] = i
		}
		inputs = append(inputs, userInput{
			idx:      i,
			userID:   userID,
			email:    email,
			password: rec.Password,
			userType: rec.UserType,
			archived: archivedFlag(rec.IsActive),
		})
	}
	if batch.Len() > 0 {
		return sum.reject(batch)
	}

	repos := e.repos(e.store)
	var creates, updates []*models.User
	for _, in := range inputs {
		byID, err := repos.Users.GetByUserID(ctx, in.userID)
		if err != nil {
			return nil, err
		}
		var byEmail *models.User
		if in.email != nil {
			byEmail, err = repos.Users.GetByEmail(ctx, *in.email)
			if err != nil {
				return nil, err
			}
		}

		if byID == nil && byEmail == nil {
			hash, err := auth.HashPassword(in.password, e.bcryptCost)
			if err != nil {
				return nil, err
			}
			creates = append(creates, &models.User{
				UserID:       in.userID,
				Email:        in.email,
				PasswordHash: hash,
				UserType:     in.userType,
				IsArchived:   in.archived,
			})
			continue
		}
		if byID != nil && byEmail != nil && byID.ID != byEmail.ID {
			batch.add(conflictErr(in.idx, in.userID,
				"user_id %q and email %q belong to different accounts", in.userID, *in.email))
			continue
		}

		target := byID
		if target == nil {
			target = byEmail
		}
		// Model accounts never become human or admin, and vice versa.
		if target.IsModel() != (in.userType == models.UserTypeModel) {
			batch.add(conflictErr(in.idx, in.userID,
				"account %q cannot change between model and %s types", target.UserID, in.userType))
			continue
		}

		updated := *target
		changed := false
		if updated.UserID != in.userID {
			updated.UserID = in.userID
			changed = true
		}
		if !strPtrEqual(updated.Email, in.email) {
			updated.Email = in.email
			changed = true
		}
		if updated.UserType != in.userType {
			updated.UserType = in.userType
			changed = true
		}
		if updated.IsArchived != in.archived {
			updated.IsArchived = in.archived
			changed = true
		}
		if !auth.CheckPassword(updated.PasswordHash, in.password) {
			hash, err := auth.HashPassword(in.password, e.bcryptCost)
			if err != nil {
				return nil, err
			}
			updated.PasswordHash = hash
			changed = true
		}
		if !changed {
			sum.Skipped++
			continue
		}
		updates = append(updates, &updated)
	}
	if batch.Len() > 0 {
		return sum.reject(batch)
	}

	err := e.store.WithTx(ctx, func(q database.Querier) error {
		r := e.repos(q)
		for _, u := range creates {
			if err := r.Users.Create(ctx, u); err != nil {
				return err
			}
		}
		for _, u := range updates {
			if err := r.Users.Update(ctx, u); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply user batch: %w", err)
	}

	sum.Created = len(creates)
	sum.Updated = len(updates)
	e.logSummary(sum)
	return sum, nil
}
