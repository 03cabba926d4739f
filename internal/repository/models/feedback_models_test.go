package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubmissionValidate(t *testing.T) {
	cases := []struct {
		name    string
		sub     Submission
		wantErr string
	}{
		{
			name: "valid with options",
			sub:  Submission{Rating: 5, SelectedOptions: []string{"atendimento_otimo", "preco_bom"}, Comment: "Adorei!"},
		},
		{
			name: "valid without options or comment",
			sub:  Submission{Rating: 1},
		},
		{
			name:    "zero rating",
			sub:     Submission{Rating: 0},
			wantErr: "rating must be between 1 and 5",
		},
		{
			name:    "rating above five",
			sub:     Submission{Rating: 6},
			wantErr: "rating must be between 1 and 5",
		},
		{
			name:    "too many options",
			sub:     Submission{Rating: 4, SelectedOptions: []string{"preco_bom", "preco_alto", "ambiente_limpo", "ambiente_sujo"}},
			wantErr: "at most 3 options",
		},
		{
			name:    "duplicate options",
			sub:     Submission{Rating: 4, SelectedOptions: []string{"preco_bom", "preco_bom"}},
			wantErr: "distinct catalog ids",
		},
		{
			name:    "unknown option",
			sub:     Submission{Rating: 4, SelectedOptions: []string{"estacionamento"}},
			wantErr: "distinct catalog ids",
		},
		{
			name:    "comment too long",
			sub:     Submission{Rating: 3, Comment: strings.Repeat("a", MaxCommentLength+1)},
			wantErr: "comment exceeds",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.sub.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidSubmission)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestSubmissionNormalize(t *testing.T) {
	sub := Submission{
		Rating:          4,
		SelectedOptions: []string{" preco_bom ", "", "ambiente_limpo"},
		Comment:         "  Muito bom  ",
	}.Normalize()

	assert.Equal(t, []string{"preco_bom", "ambiente_limpo"}, sub.SelectedOptions)
	assert.Equal(t, "Muito bom", sub.Comment)
}

func TestCatalog(t *testing.T) {
	cats := Categories()
	assert.Len(t, cats, 8)

	cats[0].Label = "changed"
	c, ok := LookupCategory("atendimento_otimo")
	assert.True(t, ok)
	assert.Equal(t, "Ótimo Atendimento", c.Label)

	_, ok = LookupCategory("nope")
	assert.False(t, ok)
}

func TestHasValidRating(t *testing.T) {
	assert.True(t, FeedbackRecord{Rating: 1}.HasValidRating())
	assert.True(t, FeedbackRecord{Rating: 5}.HasValidRating())
	assert.False(t, FeedbackRecord{Rating: 0}.HasValidRating())
	assert.False(t, FeedbackRecord{Rating: 6}.HasValidRating())
}
