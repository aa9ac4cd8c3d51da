package catalog

import "time"

// Game is a user-published game build with its storefront metadata.
type Game struct {
	ID           string
	UserID       string
	Title        string
	Description  string
	Thumbnail    string
	AuthorName   string
	FilePath     string
	ViewCount    int64
	InstallCount int64
	// CreatorName is the publishing user's display name; read-only.
	CreatorName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Version is a launcher release entry.
type Version struct {
	ID        string
	Title     string
	Version   string
	Link      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Counter names a per-game popularity counter.
type Counter string

const (
	Views    Counter = "view"
	Installs Counter = "install"
)

func (c Counter) column() (string, bool) {
	switch c {
	case Views:
		return "view_count", true
	case Installs:
		return "install_count", true
	}
	return "", false
}
