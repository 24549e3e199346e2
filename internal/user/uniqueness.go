package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	errors "github.com/frahmantamala/account-admin/internal"
)

const (
	FieldUserName = "user_name"
	FieldPhone    = "phone"
	FieldEmail    = "email"
)

// HolderLookup finds the id of the live user currently holding a value.
// A zero id means nobody holds it.
type HolderLookup interface {
	FindIDByUserName(ctx context.Context, userName string) (int64, error)
	FindIDByPhone(ctx context.Context, phone string) (int64, error)
	FindIDByEmail(ctx context.Context, email string) (int64, error)
}

// Candidate is the identity a write wants to claim. UserID is 0 on create.
type Candidate struct {
	UserID   int64
	UserName string
	Phone    string
	Email    string
}

type UniquenessChecker struct {
	lookup HolderLookup
	logger *slog.Logger
}

func NewUniquenessChecker(lookup HolderLookup, logger *slog.Logger) *UniquenessChecker {
	return &UniquenessChecker{
		lookup: lookup,
		logger: logger,
	}
}

func (c *UniquenessChecker) CheckUserNameUnique(ctx context.Context, userID int64, userName string) (bool, error) {
	return c.unique(ctx, userID, userName, c.lookup.FindIDByUserName)
}

func (c *UniquenessChecker) CheckPhoneUnique(ctx context.Context, userID int64, phone string) (bool, error) {
	return c.unique(ctx, userID, phone, c.lookup.FindIDByPhone)
}

func (c *UniquenessChecker) CheckEmailUnique(ctx context.Context, userID int64, email string) (bool, error) {
	return c.unique(ctx, userID, email, c.lookup.FindIDByEmail)
}

// Check evaluates user name, phone and email in that order and stops at the
// first value held by another account. action is "add" or "modify".
func (c *UniquenessChecker) Check(ctx context.Context, action string, cand Candidate) error {
	checks := []struct {
		field string
		fn    func(context.Context, int64, string) (bool, error)
		value string
	}{
		{FieldUserName, c.CheckUserNameUnique, cand.UserName},
		{FieldPhone, c.CheckPhoneUnique, cand.Phone},
		{FieldEmail, c.CheckEmailUnique, cand.Email},
	}

	for _, chk := range checks {
		ok, err := chk.fn(ctx, cand.UserID, chk.value)
		if err != nil {
			c.logger.Error("uniqueness lookup failed", "field", chk.field, "error", err)
			return errors.NewInternalError("failed to check uniqueness", err)
		}
		if !ok {
			return ConflictFor(action, cand.UserName, chk.field)
		}
	}
	return nil
}

func (c *UniquenessChecker) unique(ctx context.Context, userID int64, value string, find func(context.Context, string) (int64, error)) (bool, error) {
	if strings.TrimSpace(value) == "" {
		return true, nil
	}
	holder, err := find(ctx, value)
	if err != nil {
		return false, err
	}
	return holder == 0 || holder == userID, nil
}

// ConflictFor builds the conflict reported for a taken field, whether the
// pre-check caught it or the unique index did.
func ConflictFor(action, userName, field string) *errors.AppError {
	switch field {
	case FieldPhone:
		return errors.NewConflictError(
			fmt.Sprintf("%s user '%s' failed: phone number already exists", action, userName),
			errors.ErrCodePhoneTaken)
	case FieldEmail:
		return errors.NewConflictError(
			fmt.Sprintf("%s user '%s' failed: email already exists", action, userName),
			errors.ErrCodeEmailTaken)
	default:
		return errors.NewConflictError(
			fmt.Sprintf("%s user '%s' failed: user name already exists", action, userName),
			errors.ErrCodeUserNameTaken)
	}
}
