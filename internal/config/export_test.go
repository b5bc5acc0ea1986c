package config

// DetectFormat exports detectFormat for testing.
var DetectFormat = detectFormat

// MakeTestConfig returns a minimal valid Config.
func MakeTestConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:    "127.0.0.1:8080",
			TimeoutMS: 30000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Login: LoginConfig{
			Enabled: true,
			Methods: map[string]MethodConfig{
				"password": {
					PrincipalParams:  []string{"username"},
					CredentialParams: []string{"password"},
				},
			},
		},
	}
}
