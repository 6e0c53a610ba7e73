package nearby

import (
	"net/url"
	"slices"
	"strings"

	"github.com/Cheertaboi/coupon-studio/internal/models"
)

// Criteria narrows a nearby list locally. Empty fields are inactive. A
// user only matches an active criterion when their privacy settings show
// the field it tests.
type Criteria struct {
	AgeRange          string   `json:"ageRange,omitempty"`
	Mood              string   `json:"mood,omitempty"`
	Availability      string   `json:"availability,omitempty"`
	Hobbies           []string `json:"hobbies,omitempty"`
	Interests         []string `json:"interests,omitempty"`
	RelationshipGoals []string `json:"relationshipGoals,omitempty"`
}

func (c Criteria) IsZero() bool {
	return c.AgeRange == "" && c.Mood == "" && c.Availability == "" &&
		len(c.Hobbies) == 0 && len(c.Interests) == 0 && len(c.RelationshipGoals) == 0
}

func (c Criteria) Matches(u models.NearbyUser) bool {
	info, p := u.ModularInfo, u.Privacy

	if c.AgeRange != "" && (!p.ShowAgeRange || info.AgeRange != c.AgeRange) {
		return false
	}
	if c.Mood != "" && (!p.ShowCurrentMood || info.CurrentMood != c.Mood) {
		return false
	}
	if c.Availability != "" && (!p.ShowAvailability || info.Availability != c.Availability) {
		return false
	}
	if len(c.Hobbies) > 0 && (!p.ShowHobbies || !overlaps(c.Hobbies, info.Hobbies)) {
		return false
	}
	if len(c.Interests) > 0 && (!p.ShowInterests || !overlaps(c.Interests, info.Interests)) {
		return false
	}
	if len(c.RelationshipGoals) > 0 && (!p.ShowRelationshipGoals || !overlaps(c.RelationshipGoals, info.RelationshipGoals)) {
		return false
	}
	return true
}

// Filter returns the users matching c, keeping their order.
func Filter(users []models.NearbyUser, c Criteria) []models.NearbyUser {
	if c.IsZero() {
		return users
	}
	out := make([]models.NearbyUser, 0, len(users))
	for _, u := range users {
		if c.Matches(u) {
			out = append(out, u)
		}
	}
	return out
}

// ParseCriteria reads criteria from query parameters. List values may be
// repeated or comma separated.
func ParseCriteria(q url.Values) Criteria {
	return Criteria{
		AgeRange:          strings.TrimSpace(q.Get("ageRange")),
		Mood:              strings.TrimSpace(q.Get("mood")),
		Availability:      strings.TrimSpace(q.Get("availability")),
		Hobbies:           listParam(q, "hobbies"),
		Interests:         listParam(q, "interests"),
		RelationshipGoals: listParam(q, "relationshipGoals"),
	}
}

func listParam(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func overlaps(want, have []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}
