package controller

import (
	"bottarot-be/internal/clientsession"

	"github.com/google/uuid"
)

// userID is uuid.Nil for anonymous visitors.
func userID(cs *clientsession.ClientSession) uuid.UUID {
	if u := cs.Auth.User(); u != nil {
		return u.Id
	}
	return uuid.Nil
}
