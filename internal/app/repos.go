package app

import (
	"gorm.io/gorm"

	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/repos"
)

type Repos struct {
	Partnership    repos.PartnershipRepo
	Preferences    repos.PreferencesRepo
	UserProfile    repos.UserProfileRepo
	Accountability repos.AccountabilityRepo
	Goal           repos.GoalRepo
	Milestone      repos.MilestoneRepo
	CheckIn        repos.CheckInRepo
	Progress       repos.ProgressRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Partnership:    repos.NewPartnershipRepo(db, log),
		Preferences:    repos.NewPreferencesRepo(db, log),
		UserProfile:    repos.NewUserProfileRepo(db, log),
		Accountability: repos.NewAccountabilityRepo(db, log),
		Goal:           repos.NewGoalRepo(db, log),
		Milestone:      repos.NewMilestoneRepo(db, log),
		CheckIn:        repos.NewCheckInRepo(db, log),
		Progress:       repos.NewProgressRepo(db, log),
	}
}
