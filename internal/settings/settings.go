package settings

import (
	"bufio"
	"log"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

var Settings *AppSettings

func NewSettings() *AppSettings {
	settings := AppSettings{
		SQLiteDatabase: getEnvOrDefault("BUILDWATCH_DB_PATH", "file:.///buildwatch.sqlite"),
		ConfigPath:     getEnvOrDefault("BUILDWATCH_CONFIG_PATH", "config.yml"),
	}
	return &settings
}

func getEnvOrDefault(key, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	return value
}

type AppSettings struct {
	SQLiteDatabase string
	ConfigPath     string
}

func (as *AppSettings) SQLiteDbString(readonly bool) string {
	params := make(url.Values)
	params.Add("_journal_mode", "WAL")
	params.Add("_busy_timeout", "5000")
	params.Add("_synchronous", "NORMAL")
	params.Add("_cache_size", "-20000")
	params.Add("_foreign_keys", "ON")
	if readonly {
		params.Add("mode", "ro")
	} else {
		params.Add("_txlock", "IMMEDIATE")
		params.Add("mode", "rwc")
	}

	return as.SQLiteDatabase + "?" + params.Encode()
}

// UserSettings is the persisted, user-editable configuration. It lives in
// the key-value store under a single key; the optional YAML config file
// only seeds it on first run.
type UserSettings struct {
	JenkinsURL      string `json:"jenkinsUrl"      yaml:"jenkins_url"`
	APIURL          string `json:"apiUrl"          yaml:"api_url"`
	PollingInterval int64  `json:"pollingInterval" yaml:"polling_interval_ms"`
	DefaultJob      string `json:"defaultJob"      yaml:"default_job"`
}

func DefaultUserSettings() UserSettings {
	return UserSettings{
		JenkinsURL:      "http://localhost:8082",
		APIURL:          "http://localhost:5000",
		PollingInterval: 5000,
		DefaultJob:      "Universal-Builder",
	}
}

func (us UserSettings) Interval() time.Duration {
	if us.PollingInterval <= 0 {
		return 5 * time.Second
	}
	return time.Duration(us.PollingInterval) * time.Millisecond
}

// ReadConfigFile overlays values from a YAML config file onto the
// defaults. A missing file is not an error.
func ReadConfigFile(path string) (UserSettings, error) {
	us := DefaultUserSettings()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return us, nil
		}
		return us, err
	}
	if err := yaml.Unmarshal(b, &us); err != nil {
		return us, err
	}
	return us, nil
}

func ReadDotenv(path string) {
	re := regexp.MustCompile(`^[^0-9][A-Z0-9_]+=.+$`)
	f, err := os.Open(path)
	if err != nil {
		log.Println("no dotenv file to read:", err)
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) > 0 && line[0] != '#' && re.Match(line) {
			split := strings.Split(string(line), "=")
			name := strings.TrimSpace(split[0])
			value := strings.TrimSpace(split[1])
			value = strings.Trim(value, `"`)
			os.Setenv(name, value)
		}
	}
}
