// Package i18n loads the message catalog nimbuild uses for diagnostic
// output: progress verbs, terminal states, and error descriptions. The
// default language is English; other languages are loaded from JSON
// files and merged on top of englishSet so a missing key always falls
// back cleanly.
package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/cloudfoundry/jibber_jabber"
	"github.com/go-errors/errors"
	"github.com/imdario/mergo"
	"github.com/sirupsen/logrus"
)

// Localizer holds the resolved message set for the running process.
type Localizer struct {
	Log *logrus.Entry
	S   MessageSet
}

// Loader handles dynamic loading of message catalogs from JSON files.
type Loader struct {
	catalogPath string
	log         *logrus.Entry
	cache       map[string]MessageSet
}

// NewLoader creates a loader rooted at catalogPath ("./messages" if empty).
func NewLoader(log *logrus.Entry, catalogPath string) *Loader {
	if catalogPath == "" {
		catalogPath = "./messages"
	}
	return &Loader{
		catalogPath: catalogPath,
		log:         log,
		cache:       make(map[string]MessageSet),
	}
}

// LoadFromJSON loads (or returns a cached) message set for languageCode.
func (l *Loader) LoadFromJSON(languageCode string) (*MessageSet, error) {
	if cached, ok := l.cache[languageCode]; ok {
		l.log.Debugf("loading message set for '%s' from cache", languageCode)
		return &cached, nil
	}

	path := filepath.Join(l.catalogPath, languageCode+".json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("message catalog not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read message catalog %s: %w", path, err)
	}

	var file messageFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse message catalog %s: %w", path, err)
	}

	set := mapToMessageSet(file.Messages)
	l.cache[languageCode] = set

	l.log.Infof("loaded message catalog for '%s' from %s", languageCode, path)
	return &set, nil
}

// AvailableLanguages lists the catalogs present under catalogPath.
func (l *Loader) AvailableLanguages() ([]LanguageMetadata, error) {
	languages := []LanguageMetadata{}

	if _, err := os.Stat(l.catalogPath); os.IsNotExist(err) {
		return languages, fmt.Errorf("message catalog directory not found: %s", l.catalogPath)
	}

	entries, err := os.ReadDir(l.catalogPath)
	if err != nil {
		return languages, fmt.Errorf("failed to read message catalog directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(l.catalogPath, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			l.log.Warnf("failed to read message catalog %s: %v", path, err)
			continue
		}
		var file messageFile
		if err := json.Unmarshal(data, &file); err != nil {
			l.log.Warnf("failed to parse message catalog %s: %v", path, err)
			continue
		}
		languages = append(languages, LanguageMetadata{Code: file.Code, Name: file.Name})
	}

	return languages, nil
}

// mapToMessageSet populates a MessageSet's string fields from a
// field-name-keyed map using reflection, the way the teacher's loader
// converts its own flat JSON catalogs.
func mapToMessageSet(messages map[string]string) MessageSet {
	ms := MessageSet{}

	v := reflect.ValueOf(&ms).Elem()
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		name := t.Field(i).Name
		if field.Kind() == reflect.String && field.CanSet() {
			if val, ok := messages[name]; ok {
				field.SetString(val)
			}
		}
	}

	return ms
}

// NewMessageSetFromConfig resolves the message set for configLanguage
// ("auto" triggers OS-locale detection via jibber_jabber), falling back
// to English on any load failure and always merging English in as a
// base so every field is populated.
func NewMessageSetFromConfig(log *logrus.Entry, configLanguage string, catalogPath string) (*MessageSet, error) {
	loader := NewLoader(log, catalogPath)

	language := configLanguage
	if configLanguage == "auto" {
		language = detectLanguage(jibber_jabber.DetectLanguage)
	}
	log.Info("language: " + language)

	set, err := loader.LoadFromJSON(language)
	if err != nil {
		log.Warnf("failed to load message catalog for '%s': %v. falling back to English.", language, err)
		set, err = loader.LoadFromJSON("en")
		if err != nil {
			return nil, errors.New("failed to load default English message catalog: " + err.Error())
		}
	}

	base, _ := loader.LoadFromJSON("en")
	if base != nil {
		_ = mergo.Merge(set, base)
	}
	_ = mergo.Merge(set, englishSet())

	return set, nil
}

// NewMessageSet is a thin convenience wrapper over
// NewMessageSetFromConfig for the default "./messages" catalog path.
func NewMessageSet(log *logrus.Entry, language string) *MessageSet {
	set, err := NewMessageSetFromConfig(log, language, "./messages")
	if err != nil {
		log.Errorf("failed to load message catalog: %v", err)
		fallback := englishSet()
		return fallback
	}
	return set
}

// detectLanguage extracts the user's language from the environment,
// defaulting to the POSIX "C" locale on detection failure.
func detectLanguage(langDetector func() (string, error)) string {
	if lang, err := langDetector(); err == nil {
		return lang
	}
	return "C"
}
