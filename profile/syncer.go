// Package profile keeps the session's user record in step with the
// accounts API profile.
package profile

import (
	"context"
	"errors"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/accounts"
)

const (
	fetchFailedMessage  = "Failed to fetch profile."
	updateFailedMessage = "Failed to update profile."
)

// Service is the profile side of the accounts API.
type Service interface {
	FetchProfile(ctx context.Context) (goSession.UserPatch, error)
	PatchProfile(ctx context.Context, patch goSession.UserPatch) (goSession.UserPatch, error)
}

// SyncError is a failed sync. Message is safe to show to the user.
type SyncError struct {
	Message string
	Err     error
}

func (e *SyncError) Error() string {
	return e.Message + ": " + e.Err.Error()
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Syncer feeds successful profile reads and writes into the session.
// A failure never touches the session.
type Syncer struct {
	Service Service
	Session goSession.Session
}

// Refresh pulls the profile and merges it into the session user. It does
// nothing when no one is logged in.
func (s *Syncer) Refresh(ctx context.Context) (goSession.UserPatch, error) {
	if !s.Session.View().IsAuthenticated() {
		return goSession.UserPatch{}, nil
	}
	fields, err := s.Service.FetchProfile(ctx)
	if err != nil {
		return goSession.UserPatch{}, &SyncError{Message: accounts.MessageOf(err, fetchFailedMessage), Err: err}
	}
	if err := s.Session.UpdateUser(ctx, fields); err != nil {
		return goSession.UserPatch{}, &SyncError{Message: fetchFailedMessage, Err: err}
	}
	return fields, nil
}

// Update sends patch to the API and merges the stored result into the
// session user.
func (s *Syncer) Update(ctx context.Context, patch goSession.UserPatch) (goSession.UserPatch, error) {
	updated, err := s.Service.PatchProfile(ctx, patch)
	if err != nil {
		return goSession.UserPatch{}, &SyncError{Message: accounts.MessageOf(err, updateFailedMessage), Err: err}
	}
	if err := s.Session.UpdateUser(ctx, updated); err != nil {
		return goSession.UserPatch{}, &SyncError{Message: updateFailedMessage, Err: err}
	}
	return updated, nil
}

// UserMessage extracts the user-visible message of a sync failure.
func UserMessage(err error) string {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Message
	}
	if err == nil {
		return ""
	}
	return updateFailedMessage
}
