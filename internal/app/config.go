package app

import (
	"time"

	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/services"
	"github.com/focushive/buddy-service/internal/utils"
)

type Config struct {
	Weights           services.ScoreWeights
	Accountability    services.AccountabilityWeights
	Partnership       services.PartnershipOptions
	SweepInterval     time.Duration
	StagnantAfterDays int
	Environment       string
	Version           string
}

func LoadConfig(log *logger.Logger) Config {
	weights := services.DefaultScoreWeights()
	weights.Timezone = utils.GetEnvAsFloat("WEIGHT_TIMEZONE", weights.Timezone, log)
	weights.FocusArea = utils.GetEnvAsFloat("WEIGHT_FOCUS_AREA", weights.FocusArea, log)
	weights.CommunicationStyle = utils.GetEnvAsFloat("WEIGHT_COMMUNICATION", weights.CommunicationStyle, log)
	weights.Availability = utils.GetEnvAsFloat("WEIGHT_AVAILABILITY", weights.Availability, log)

	accountability := services.DefaultAccountabilityWeights()
	accountability.Checkins = utils.GetEnvAsFloat("ACC_WEIGHT_CHECKINS", accountability.Checkins, log)
	accountability.Goals = utils.GetEnvAsFloat("ACC_WEIGHT_GOALS", accountability.Goals, log)
	accountability.ResponseRate = utils.GetEnvAsFloat("ACC_WEIGHT_RESPONSE_RATE", accountability.ResponseRate, log)
	accountability.Streak = utils.GetEnvAsFloat("ACC_WEIGHT_STREAK", accountability.Streak, log)

	partnership := services.DefaultPartnershipOptions()
	partnership.PendingExpiry = time.Duration(
		utils.GetEnvAsInt("PENDING_EXPIRY_HOURS", 72, log)) * time.Hour
	partnership.HealthDecayAfter = time.Duration(
		utils.GetEnvAsInt("HEALTH_DECAY_AFTER_DAYS", 7, log)) * 24 * time.Hour
	partnership.HealthDecayPerDay = utils.GetEnvAsFloat("HEALTH_DECAY_PER_DAY", 0.05, log)
	partnership.InactiveEndAfter = time.Duration(
		utils.GetEnvAsInt("INACTIVE_END_AFTER_DAYS", 30, log)) * 24 * time.Hour

	return Config{
		Weights:           weights,
		Accountability:    accountability,
		Partnership:       partnership,
		SweepInterval:     time.Duration(utils.GetEnvAsInt("SWEEP_INTERVAL_SECONDS", 300, log)) * time.Second,
		StagnantAfterDays: utils.GetEnvAsInt("STAGNANT_AFTER_DAYS", 7, log),
		Environment:       utils.GetEnv("ENVIRONMENT", "development", log),
		Version:           utils.GetEnv("SERVICE_VERSION", "dev", log),
	}
}
