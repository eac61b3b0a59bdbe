// Package card holds the card form, its validation rules and the derivation
// of card identifiers.
//
// A card is built in two phases: the submitted Form is validated, the avatar is
// resolved once, and the result is frozen into a Data value that the renderer
// and the identifier derivation both read. Nothing mutates a Data after that.
package card

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// IDLength is the number of hex characters in a card identifier.
const IDLength = 32

var idPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Form is a card-creation submission as posted by the browser.
type Form struct {
	FirstName string `form:"firstName" validate:"required,alphaspace"`
	LastName  string `form:"lastName" validate:"required,alphaspace"`
	Email     string `form:"email" validate:"required,nospace,email"`
	GitHub    string `form:"github" validate:"required,githubhandle"`
	Company   string `form:"company" validate:"required,alphaspace"`
}

// Normalize trims surrounding whitespace from every field.
func (f Form) Normalize() Form {
	return Form{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Email:     strings.TrimSpace(f.Email),
		GitHub:    strings.TrimSpace(f.GitHub),
		Company:   strings.TrimSpace(f.Company),
	}
}

// WithAvatar freezes a validated form and its resolved avatar into Data.
func (f Form) WithAvatar(avatarURL string) Data {
	return Data{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Email:     f.Email,
		GitHub:    f.GitHub,
		Company:   f.Company,
		AvatarURL: avatarURL,
	}
}

// Data is the immutable input of the card renderer.
type Data struct {
	FirstName string
	LastName  string
	Email     string
	GitHub    string
	Company   string
	AvatarURL string
}

// ID derives the card identifier from the card's content. Identical
// submissions resolve to the same card.
func (d Data) ID() string {
	return DeriveID(d.FirstName, d.LastName, d.Email, d.AvatarURL)
}

// DeriveID hashes the given parts with sha256 and keeps the first IDLength
// hex characters. Parts are joined with a unit separator so that moving
// characters between adjacent fields changes the identifier.
func DeriveID(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])[:IDLength]
}

// IsWellFormedID reports whether id has the shape of a card identifier. It
// does not check that the card exists.
func IsWellFormedID(id string) bool {
	return idPattern.MatchString(id)
}
