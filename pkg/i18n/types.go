package i18n

// MessageSet is a set of localized diagnostic messages nimbuild prints
// for build progress, errors, and CLI help text.
type MessageSet struct {
	Matching     string
	Updating     string
	Cleaning     string
	Installing   string
	Distributing string

	Updated     string
	Cleaned     string
	Installed   string
	Distributed string
	UpToDate    string

	Failed                string
	DependencyCycle       string
	AmbiguousMatch        string
	RuleNotFound          string
	DeadlockDetected      string
	DepdbMismatch         string
	DepdbReadError        string
	InstallPathUnresolved string
	UnknownTargetType     string

	Confirm string
	Cancel  string
	Yes     string
	No      string
}

// LanguageMetadata describes one loadable message set.
type LanguageMetadata struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// messageFile is the on-disk JSON shape for a message catalog.
type messageFile struct {
	Code     string            `json:"code"`
	Name     string            `json:"name"`
	Messages map[string]string `json:"messages"`
}
