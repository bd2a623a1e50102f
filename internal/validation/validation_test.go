package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateSlug(t *testing.T) {
	tests := []struct {
		name string
		slug string
		want error
	}{
		{"valid", "acme-properties", nil},
		{"uppercase normalized", "  ACME ", nil},
		{"too short", "ab", ErrSlugTooShort},
		{"leading hyphen", "-acme", ErrInvalidSlug},
		{"underscore", "acme_co", ErrInvalidSlug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSlug(tt.slug)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "acme-properties-gmbh", Slugify("  Acme Properties, GmbH! "))
	require.Equal(t, "", Slugify("!!!"))
}

func TestInviteCode(t *testing.T) {
	require.Equal(t, "AB12CD34EF", NormalizeInviteCode("  ab12cd34ef\n"))

	require.NoError(t, ValidateInviteCode("AB12CD34EF"))
	require.ErrorIs(t, ValidateInviteCode("AB12"), ErrInvalidInviteCode)
	require.ErrorIs(t, ValidateInviteCode("AB12-CD34"), ErrInvalidInviteCode)
	require.ErrorIs(t, ValidateInviteCode("ab12cd34ef"), ErrInvalidInviteCode)
	require.ErrorIs(t, ValidateInviteCode(""), ErrInvalidInviteCode)
}
