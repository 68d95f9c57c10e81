package models

// MinimalUser is the projection returned by the user service for display
// purposes. This core never stores users.
type MinimalUser struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
}
