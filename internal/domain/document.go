package domain

import "time"

const (
	usersRoot          = "users/"
	publishedPagesRoot = "publishedPages/"
)

func UserPath(uid string) string { return usersRoot + uid }

func PagePath(pageID string) string { return publishedPagesRoot + pageID }

// PublishedDocument is the record stored at publishedPages/{id}. The ID is
// the path segment and is not part of the stored value.
type PublishedDocument struct {
	ID        string `json:"-"`
	HTML      string `json:"html"`
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
	Views     int64  `json:"views,omitempty"`
}

func (d PublishedDocument) PublishedAt() time.Time {
	return time.UnixMilli(d.Timestamp)
}

// UserRecord is the record stored at users/{uid}.
type UserRecord struct {
	PlanType   string `json:"planType"`
	LatestPage string `json:"latestPage,omitempty"`
}

func (u UserRecord) Plan() PlanTier {
	return ParsePlan(u.PlanType)
}

// User is the signed-in identity resolved by the identity provider.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}
