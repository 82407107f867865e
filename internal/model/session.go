// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Credentials are the username and password typed by the student.
// They are used for a single login attempt and never persisted or logged.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session is the persisted proof of authentication plus the identity fields
// the dashboard shows. A Session is either stored as a whole or not at all:
// Token and UserID are always present together.
type Session struct {
	Token     string  `json:"-"`
	UserID    int64   `json:"userId"`
	Username  string  `json:"username"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	FullName  string  `json:"fullName"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// Complete reports whether the session carries both a token and a user id.
func (s Session) Complete() bool {
	return s.Token != "" && s.UserID != 0
}

// Initials returns the upper-cased first letters of the first and last name.
func (s Session) Initials() string {
	return firstLetter(s.FirstName) + firstLetter(s.LastName)
}

// ShortName returns "First L." or just the first name when there is no last name.
func (s Session) ShortName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	r, _ := utf8.DecodeRuneInString(s.LastName)
	return s.FirstName + " " + string(r) + "."
}

func firstLetter(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r))
}

// UserProfile is the richer profile record returned by the user lookup
// endpoint. Unlike Session it is never persisted.
type UserProfile struct {
	ID              int64   `json:"id"`
	Username        string  `json:"username"`
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	FullName        string  `json:"fullName"`
	Email           string  `json:"email,omitempty"`
	ProfileImageURL *string `json:"profileImageUrl,omitempty"`
}
