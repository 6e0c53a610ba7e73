package models

import "time"

var (
	AgeRanges = []string{"teens", "20s", "30s", "40s", "50s", "60+"}

	AvailabilityOptions = []string{
		"open to chat", "busy", "available for quick chat", "do not disturb",
		"looking for activity partner", "free for coffee", "working",
	}
)

// ModularInfo is the self-description a user may choose to disclose.
type ModularInfo struct {
	Hobbies           []string `json:"hobbies,omitempty"`
	Interests         []string `json:"interests,omitempty"`
	RelationshipGoals []string `json:"relationshipGoals,omitempty"`
	AgeRange          string   `json:"ageRange,omitempty"`
	CurrentMood       string   `json:"currentMood,omitempty"`
	Availability      string   `json:"availability,omitempty"`
}

// Privacy holds one visibility flag per ModularInfo field. The zero value
// hides everything.
type Privacy struct {
	ShowHobbies           bool `json:"showHobbies"`
	ShowInterests         bool `json:"showInterests"`
	ShowRelationshipGoals bool `json:"showRelationshipGoals"`
	ShowAgeRange          bool `json:"showAgeRange"`
	ShowCurrentMood       bool `json:"showCurrentMood"`
	ShowAvailability      bool `json:"showAvailability"`
}

type UserProfile struct {
	UserID      string      `json:"userId"`
	ModularInfo ModularInfo `json:"modularInfo"`
	Privacy     Privacy     `json:"privacy"`
	LastUpdated time.Time   `json:"lastUpdated"`
}

// Visible returns a copy of info with every field hidden by p cleared.
func (info ModularInfo) Visible(p Privacy) ModularInfo {
	var out ModularInfo
	if p.ShowHobbies {
		out.Hobbies = append([]string(nil), info.Hobbies...)
	}
	if p.ShowInterests {
		out.Interests = append([]string(nil), info.Interests...)
	}
	if p.ShowRelationshipGoals {
		out.RelationshipGoals = append([]string(nil), info.RelationshipGoals...)
	}
	if p.ShowAgeRange {
		out.AgeRange = info.AgeRange
	}
	if p.ShowCurrentMood {
		out.CurrentMood = info.CurrentMood
	}
	if p.ShowAvailability {
		out.Availability = info.Availability
	}
	return out
}
