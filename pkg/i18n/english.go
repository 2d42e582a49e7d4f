package i18n

// englishSet is the hardcoded fallback message set; every other
// language is merged on top of it so a missing key never surfaces a
// blank string.
func englishSet() *MessageSet {
	return &MessageSet{
		Matching:     "Matching",
		Updating:     "Updating",
		Cleaning:     "Cleaning",
		Installing:   "Installing",
		Distributing: "Distributing",

		Updated:     "updated",
		Cleaned:     "cleaned",
		Installed:   "installed",
		Distributed: "distributed",
		UpToDate:    "up to date",

		Failed:                "failed",
		DependencyCycle:       "dependency cycle detected",
		AmbiguousMatch:        "ambiguous rule match",
		RuleNotFound:          "no rule matches target",
		DeadlockDetected:      "scheduler deadlock detected",
		DepdbMismatch:         "dependency database out of date",
		DepdbReadError:        "dependency database could not be read",
		InstallPathUnresolved: "install path could not be resolved",
		UnknownTargetType:     "unknown target type",

		Confirm: "Confirm",
		Cancel:  "Cancel",
		Yes:     "yes",
		No:      "no",
	}
}
