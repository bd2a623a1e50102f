package validation

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidSlug is returned when a slug doesn't match the required format
	ErrInvalidSlug = errors.New("invalid slug format")

	// ErrSlugTooShort is returned when a slug is too short
	ErrSlugTooShort = errors.New("slug must be at least 3 characters")

	// ErrSlugTooLong is returned when a slug is too long
	ErrSlugTooLong = errors.New("slug must be at most 64 characters")

	// ErrInvalidInviteCode is returned for codes that cannot exist in storage
	ErrInvalidInviteCode = errors.New("invalid invite code")

	// ErrInvalidOrgName is returned for empty or oversized organization names
	ErrInvalidOrgName = errors.New("organization name must be 1-100 characters")

	// Format: ^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$
	slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)

	inviteCodeRegex = regexp.MustCompile(`^[0-9A-Z]{6,32}$`)

	slugStripRegex = regexp.MustCompile(`[^a-z0-9]+`)
)

const (
	MinInviteCodeLength = 6
	MaxInviteCodeLength = 32
)

// ValidateSlug validates a slug:
// - Must be 3-64 characters long
// - Must start and end with lowercase alphanumeric (a-z, 0-9)
// - Can contain hyphens in the middle
func ValidateSlug(slug string) error {
	slug = NormalizeSlug(slug)

	if len(slug) < 3 {
		return ErrSlugTooShort
	}
	if len(slug) > 64 {
		return ErrSlugTooLong
	}

	if !slugRegex.MatchString(slug) {
		return ErrInvalidSlug
	}

	return nil
}

// NormalizeSlug normalizes a slug by converting to lowercase and trimming whitespace
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// Slugify derives a slug candidate from a display name. The result may still
// fail ValidateSlug (e.g. for names without any letters or digits).
func Slugify(name string) string {
	s := slugStripRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	s = strings.Trim(s, "-")
	if len(s) > 56 {
		s = strings.TrimRight(s[:56], "-")
	}
	return s
}

// ValidateOrgName checks the display name of an organization.
func ValidateOrgName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return ErrInvalidOrgName
	}
	return nil
}

// NormalizeInviteCode trims and upper-cases a user-supplied invite code.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateInviteCode checks that a normalized code only uses the invite
// alphabet and has a plausible length.
func ValidateInviteCode(code string) error {
	if !inviteCodeRegex.MatchString(code) {
		return ErrInvalidInviteCode
	}
	return nil
}
