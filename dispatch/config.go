package dispatch

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables holding the Viktor Spaces project credentials. All
// three are required; there are no defaults.
const (
	// EnvAPIURL is an exported constant or variable used by the dispatch proxy.
	EnvAPIURL = "VIKTOR_SPACES_API_URL"
	// EnvProjectName is an exported constant or variable used by the dispatch proxy.
	EnvProjectName = "VIKTOR_SPACES_PROJECT_NAME"
	// EnvProjectSecret is an exported constant or variable used by the dispatch proxy.
	EnvProjectSecret = "VIKTOR_SPACES_PROJECT_SECRET"
)

// Config defines a public type used by authflow APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	APIURL        string
	ProjectName   string
	ProjectSecret string
}

// ConfigFromEnv reads the three required values once, at process start. A
// missing value is a deployment error, reported before any network use, with
// every absent variable named so one redeploy fixes all of them.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		APIURL:        strings.TrimRight(strings.TrimSpace(os.Getenv(EnvAPIURL)), "/"),
		ProjectName:   strings.TrimSpace(os.Getenv(EnvProjectName)),
		ProjectSecret: strings.TrimSpace(os.Getenv(EnvProjectSecret)),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var missing []string
	if c.APIURL == "" {
		missing = append(missing, EnvAPIURL)
	}
	if c.ProjectName == "" {
		missing = append(missing, EnvProjectName)
	}
	if c.ProjectSecret == "" {
		missing = append(missing, EnvProjectSecret)
	}
	if len(missing) > 0 {
		return fmt.Errorf("viktor spaces environment not configured, required: %s", strings.Join(missing, ", "))
	}
	return nil
}
