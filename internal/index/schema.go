package index

// ReportIndex defines the interface for report indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type ReportIndex interface {
	UpsertReport(r ReportRow, body string) error
	DeleteReport(path string) error
	GetChecksum(path string) (string, error)
	GetReport(path string) (*ReportRow, error)
	ListReports(category string, limit int) ([]ReportRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Settings
	Ping() error
	Close() error
}

// Settings is the key/value store used for application state such as the
// category list.
type Settings interface {
	GetSetting(key string) (value string, ok bool, err error)
	SetSetting(key, value string) error
}

// Verify *DB satisfies ReportIndex at compile time.
var _ ReportIndex = (*DB)(nil)
