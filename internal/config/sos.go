package config

import "time"

type SOSConfig struct {
	FanOutConcurrency       int           `yaml:"fanout_concurrency"`
	ReminderInterval        time.Duration `yaml:"reminder_interval"`
	ReminderThreshold       time.Duration `yaml:"reminder_threshold"`
	ReminderMaxPerVolunteer int           `yaml:"reminder_max_per_volunteer"`
	AcceptSeedMessage       string        `yaml:"accept_seed_message"`
	EmailTimeout            time.Duration `yaml:"email_timeout"`
}

func loadSOSConfig() *SOSConfig {
	return &SOSConfig{
		FanOutConcurrency:       getEnvAsInt("SOS_FANOUT_CONCURRENCY", 16),
		ReminderInterval:        getEnvAsDuration("SOS_REMINDER_INTERVAL", 5*time.Minute),
		ReminderThreshold:       getEnvAsDuration("SOS_REMINDER_THRESHOLD", 5*time.Minute),
		ReminderMaxPerVolunteer: getEnvAsInt("SOS_REMINDER_MAX_PER_VOLUNTEER", 3),
		AcceptSeedMessage:       getEnv("SOS_ACCEPT_SEED_MESSAGE", "I've accepted your SOS request and am on my way to help. Please stay calm."),
		EmailTimeout:            getEnvAsDuration("SOS_EMAIL_TIMEOUT", 15*time.Second),
	}
}
