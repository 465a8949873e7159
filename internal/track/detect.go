package track

// Package is one user's tracked item as persisted in the store.
// LastDetails holds the previously observed summary line and is the
// comparison key for change detection.
type Package struct {
	Number      string `json:"number"`
	LastStatus  string `json:"last_status"`
	LastDetails string `json:"last_details"`
}

// NewPackage returns a freshly added package that has never been checked.
func NewPackage(number string) Package {
	return Package{Number: number, LastStatus: string(HeaderNew)}
}

// Changed reports whether a fetched snapshot warrants a notification for
// the package. Link-mode carriers (UPS) are exempt: they carry no live
// data, only a deep link, so they never auto-notify.
func Changed(p Package, s Snapshot) bool {
	if s.Carrier == CarrierUPS {
		return false
	}
	return s.Summary != p.LastDetails
}

// ApplySnapshot folds a changed snapshot back into the package.
// Callers must only invoke it when Changed returned true.
func ApplySnapshot(p *Package, s Snapshot) {
	p.LastStatus = string(s.Header)
	p.LastDetails = s.Summary
}
