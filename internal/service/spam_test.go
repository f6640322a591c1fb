package service

import (
	"testing"
	"time"

	"showcase/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateSpam(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	veteran := &models.User{Bio: "Maintainer", CreatedAt: now.AddDate(-2, 0, 0)}
	newcomer := &models.User{CreatedAt: now.Add(-time.Hour)}

	tests := []struct {
		name string
		in   SpamInput
		want SpamIndicators
		spam bool
	}{
		{
			name: "Clean review",
			in:   SpamInput{Body: "Nice work on the docs.", Author: veteran, Now: now},
		},
		{
			name: "Shouting with bangs",
			in:   SpamInput{Body: "THIS IS AMAZING!! BEST EVER!!", Author: veteran, Now: now},
			want: SpamIndicators{ExcessiveCaps: true, Exclamations: true},
			spam: true,
		},
		{
			name: "Single exclamation run",
			in:   SpamInput{Body: "Works great!!", Author: veteran, Now: now},
		},
		{
			name: "Promotional word only",
			in:   SpamInput{Body: "Click through the demo, it is neat.", Author: veteran, Now: now},
			want: SpamIndicators{Promotional: true},
		},
		{
			name: "Keyword inside a word does not count",
			in:   SpamInput{Body: "The winner of the freeform category.", Author: veteran, Now: now},
		},
		{
			name: "New account with empty profile",
			in:   SpamInput{Body: "Solid library.", Author: newcomer, Now: now},
			want: SpamIndicators{NewAccount: true, EmptyProfile: true},
			spam: true,
		},
		{
			name: "Burst of reviews",
			in:   SpamInput{Body: "Solid library, free to use.", RecentReviews: 6, Author: veteran, Now: now},
			want: SpamIndicators{RecentReviews: true, Promotional: true},
			spam: true,
		},
		{
			name: "Five recent reviews is fine",
			in:   SpamInput{Body: "Solid library.", RecentReviews: 5, Author: veteran, Now: now},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateSpam(tt.in))
			assert.Equal(t, tt.spam, IsSpam(tt.in))
		})
	}
}

func TestEvaluateSpam_SocialLinksFillProfile(t *testing.T) {
	now := time.Now()
	author := &models.User{
		CreatedAt:   now.AddDate(0, -1, 0),
		SocialLinks: []models.SocialLink{{Platform: "github", URL: "https://github.com/someone"}},
	}
	assert.False(t, EvaluateSpam(SpamInput{Body: "Good.", Author: author, Now: now}).EmptyProfile)
}
