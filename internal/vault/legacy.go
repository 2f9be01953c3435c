package vault

import (
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
)

const (
	envEmail  = "FPL_EMAIL"
	envPass   = "FPL_PASSWORD"
	envTeamID = "FPL_TEAM_ID"

	legacyEnvFileName  = ".env"
	legacyJSONFileName = "config.json"
)

// loadLegacy walks the plaintext fallback chain in priority order:
// process environment, then the legacy .env file, then the legacy JSON file.
// These sources exist only for backward compatibility and are read-only.
func (v *Vault) loadLegacy() (Credentials, error) {
	if creds := credentialsFromMap(envMap()); creds.complete() {
		v.logger.Info("loaded credentials from environment variables")
		return creds, nil
	}

	envFile := filepath.Join(v.configDir, legacyEnvFileName)
	if vars, err := godotenv.Read(envFile); err == nil {
		if creds := credentialsFromMap(vars); creds.complete() {
			v.logger.Info("loaded credentials from legacy env file", "path", envFile)
			return creds, nil
		}
	}

	jsonFile := filepath.Join(v.configDir, legacyJSONFileName)
	if raw, err := os.ReadFile(jsonFile); err == nil {
		var creds Credentials
		if err := sonic.Unmarshal(raw, &creds); err != nil {
			v.logger.Warn("legacy json config is malformed", "path", jsonFile, "error", err)
		} else if creds.complete() {
			v.logger.Info("loaded credentials from legacy json file", "path", jsonFile)
			return creds, nil
		}
	}

	return Credentials{}, ErrNotFound
}

func envMap() map[string]string {
	return map[string]string{
		envEmail:  os.Getenv(envEmail),
		envPass:   os.Getenv(envPass),
		envTeamID: os.Getenv(envTeamID),
	}
}

func credentialsFromMap(vars map[string]string) Credentials {
	return Credentials{
		Email:    vars[envEmail],
		Password: vars[envPass],
		TeamID:   vars[envTeamID],
	}
}
