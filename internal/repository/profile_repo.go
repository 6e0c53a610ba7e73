package repository

import (
	"context"
	"errors"

	"github.com/Cheertaboi/coupon-studio/internal/docstore"
	"github.com/Cheertaboi/coupon-studio/internal/models"
)

const CollectionProfiles = "user_profiles"

type ProfileRepo struct {
	store docstore.Store
}

func NewProfileRepo(store docstore.Store) *ProfileRepo {
	return &ProfileRepo{store: store}
}

// Get returns nil, nil when the user has no profile.
func (r *ProfileRepo) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	doc, err := r.store.Get(ctx, CollectionProfiles, userID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	p := profileFromDocument(*doc)
	return &p, nil
}

// Save merges p into the stored profile.
func (r *ProfileRepo) Save(ctx context.Context, p models.UserProfile) error {
	info := p.ModularInfo
	priv := p.Privacy
	return r.store.Set(ctx, CollectionProfiles, p.UserID, docstore.Fields{
		"userId": p.UserID,
		"modularInfo": docstore.Fields{
			"hobbies":           stringsValue(info.Hobbies),
			"interests":         stringsValue(info.Interests),
			"relationshipGoals": stringsValue(info.RelationshipGoals),
			"ageRange":          info.AgeRange,
			"currentMood":       info.CurrentMood,
			"availability":      info.Availability,
		},
		"privacy": docstore.Fields{
			"showHobbies":           priv.ShowHobbies,
			"showInterests":         priv.ShowInterests,
			"showRelationshipGoals": priv.ShowRelationshipGoals,
			"showAgeRange":          priv.ShowAgeRange,
			"showCurrentMood":       priv.ShowCurrentMood,
			"showAvailability":      priv.ShowAvailability,
		},
		"lastUpdated": p.LastUpdated,
	}, true)
}

func profileFromDocument(d docstore.Document) models.UserProfile {
	f := d.Data
	info := nested(f, "modularInfo")
	priv := nested(f, "privacy")
	id := str(f, "userId")
	if id == "" {
		id = d.ID
	}
	return models.UserProfile{
		UserID: id,
		ModularInfo: models.ModularInfo{
			Hobbies:           stringList(info, "hobbies"),
			Interests:         stringList(info, "interests"),
			RelationshipGoals: stringList(info, "relationshipGoals"),
			AgeRange:          str(info, "ageRange"),
			CurrentMood:       str(info, "currentMood"),
			Availability:      str(info, "availability"),
		},
		Privacy: models.Privacy{
			ShowHobbies:           boolean(priv, "showHobbies"),
			ShowInterests:         boolean(priv, "showInterests"),
			ShowRelationshipGoals: boolean(priv, "showRelationshipGoals"),
			ShowAgeRange:          boolean(priv, "showAgeRange"),
			ShowCurrentMood:       boolean(priv, "showCurrentMood"),
			ShowAvailability:      boolean(priv, "showAvailability"),
		},
		LastUpdated: timestamp(f, "lastUpdated"),
	}
}
