package config

type SMTPConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
	SSL       bool   `yaml:"ssl"`
}

// Enabled reports whether outbound email is configured at all.
func (s *SMTPConfig) Enabled() bool {
	return s.Host != "" && s.Username != ""
}

func loadSMTPConfig() *SMTPConfig {
	return &SMTPConfig{
		Host:      getEnv("SMTP_HOST", ""),
		Port:      getEnvAsInt("SMTP_PORT", 587),
		Username:  getEnv("SMTP_USERNAME", ""),
		Password:  getEnv("SMTP_PASSWORD", ""),
		FromEmail: getEnv("SMTP_FROM_EMAIL", "alerts@rescuelink.local"),
		FromName:  getEnv("SMTP_FROM_NAME", "RescueLink"),
		SSL:       getEnvAsBool("SMTP_SSL", false),
	}
}
